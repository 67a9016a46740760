package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	HTTP    HTTPConfig
	OpenAI  OpenAIConfig
	Redis   RedisConfig
	Fetcher FetcherConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type FetcherConfig struct {
	ContentTimeout   time.Duration
	IconTimeout      time.Duration
	LogoPageTimeout  time.Duration
	UserAgent        string
	MinContentLength int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func Load() (*Config, error) {
	// .env is optional; real deployments use plain environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		HTTP: HTTPConfig{
			Port:         getEnvInt("PORT", 8080),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:     os.Getenv("OPENAI_API_KEY"),
			BaseURL:    os.Getenv("OPENAI_BASE_URL"),
			Model:      getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
			MaxRetries: getEnvInt("OPENAI_MAX_RETRIES", 3),
			RetryDelay: getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
			Timeout:    getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Fetcher: FetcherConfig{
			ContentTimeout:   getEnvDuration("FETCHER_CONTENT_TIMEOUT", 45*time.Second),
			IconTimeout:      getEnvDuration("FETCHER_ICON_TIMEOUT", 15*time.Second),
			LogoPageTimeout:  getEnvDuration("FETCHER_LOGO_PAGE_TIMEOUT", 30*time.Second),
			UserAgent:        getEnv("FETCHER_USER_AGENT", defaultUserAgent),
			MinContentLength: getEnvInt("FETCHER_MIN_CONTENT_LENGTH", 50),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAI.APIKey == "" && c.Environment != "test" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}

	if c.Fetcher.MinContentLength < 0 {
		return fmt.Errorf("FETCHER_MIN_CONTENT_LENGTH must not be negative")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}

	// Bare numbers are treated as seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return fallback
}
