package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/models"
	"profiler-pipeline/internal/pkg/logger"
)

// LLMService wraps the OpenAI-compatible chat API behind a circuit breaker
// and a bounded retry loop. All model traffic in the pipeline goes through
// here so backoff and failure accounting live in one place.
type LLMService struct {
	client  *openai.Client
	cfg     config.OpenAIConfig
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewLLMService(cfg config.OpenAIConfig, log *logger.Logger) *LLMService {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &LLMService{
		client:  openai.NewClientWithConfig(clientCfg),
		cfg:     cfg,
		breaker: breaker,
		logger:  log,
	}
}

func (s *LLMService) Model() string {
	return s.cfg.Model
}

// CreateChatCompletion runs a non-streaming completion with retries.
func (s *LLMService) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = s.cfg.Model
	}

	var resp openai.ChatCompletionResponse
	err := s.withRetry(ctx, "chat_completion", func() error {
		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.client.CreateChatCompletion(ctx, req)
		})
		if err != nil {
			return err
		}
		resp = result.(openai.ChatCompletionResponse)
		return nil
	})
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return resp, nil
}

// CreateChatCompletionStream opens a streaming completion. Only the stream
// open is retried; callers own reading and closing the stream.
func (s *LLMService) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	if req.Model == "" {
		req.Model = s.cfg.Model
	}
	req.Stream = true

	var stream *openai.ChatCompletionStream
	err := s.withRetry(ctx, "chat_completion_stream", func() error {
		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.client.CreateChatCompletionStream(ctx, req)
		})
		if err != nil {
			return err
		}
		stream = result.(*openai.ChatCompletionStream)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *LLMService) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		startTime := time.Now()
		err := fn()
		if err == nil {
			s.logger.LogService("llm", operation, time.Since(startTime), map[string]interface{}{
				"attempt": attempt,
				"model":   s.cfg.Model,
			}, nil)
			return nil
		}
		lastErr = err

		s.logger.LogService("llm", operation, time.Since(startTime), map[string]interface{}{
			"attempt": attempt,
			"model":   s.cfg.Model,
		}, err)

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.NewExternalError("LLM_CIRCUIT_OPEN", "model backend temporarily unavailable").WithCause(err)
		}
		if ctx.Err() != nil || !isRetryableLLMError(err) {
			break
		}
		if attempt == s.cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(s.cfg.RetryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return models.NewTimeoutError("LLM_CANCELLED", "model request cancelled").WithCause(ctx.Err())
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) || isTimeoutError(lastErr) {
		return models.NewTimeoutError("LLM_TIMEOUT", "model request timed out").WithCause(lastErr)
	}
	return models.NewModelError("LLM_REQUEST_FAILED", fmt.Sprintf("%s failed after %d attempts", operation, s.cfg.MaxRetries)).WithCause(lastErr)
}

// isRetryableLLMError keeps client-side mistakes (bad request, auth) from
// burning retry attempts; rate limits and server errors are worth retrying.
func isRetryableLLMError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false
		}
	}
	return true
}
