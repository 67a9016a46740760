package services

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(config.LogConfig{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return log
}

func testFetcherConfig() config.FetcherConfig {
	return config.FetcherConfig{
		ContentTimeout:   5 * time.Second,
		IconTimeout:      5 * time.Second,
		LogoPageTimeout:  5 * time.Second,
		UserAgent:        "test-agent",
		MinContentLength: 50,
	}
}

func testSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStoreWithClient(client, testLogger(t))
	t.Cleanup(func() { store.Close() })

	return store, mr
}
