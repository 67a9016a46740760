package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"profiler-pipeline/internal/config"
	"profiler-pipeline/internal/handlers"
	"profiler-pipeline/internal/pkg/logger"
	"profiler-pipeline/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := services.NewSessionStore(cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	llm := services.NewLLMService(cfg.OpenAI, log)
	fetcher := services.NewContentFetcher(cfg.Fetcher, log)
	icons := services.NewIconResolver(cfg.Fetcher, log)
	orchestrator := services.NewAgentOrchestrator(llm, fetcher, icons, store, log)
	router := services.NewResponseRouter(store, log)
	generator := services.NewFollowUpGenerator(llm, log)

	engine := handlers.SetupRouter(handlers.Dependencies{
		Agent:    handlers.NewAgentHandler(orchestrator, router, store, log),
		FollowUp: handlers.NewFollowUpHandler(generator, store, log),
		Logo:     handlers.NewLogoHandler(fetcher, icons, store, log),
		Session:  handlers.NewSessionHandler(store, store, log),
		Logger:   log,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("starting server", "port", cfg.HTTP.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
	}

	log.Info("server stopped")
}
