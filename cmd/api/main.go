// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/portfolio-site/portfolio-api/internal/config"
	"github.com/portfolio-site/portfolio-api/internal/handler"
	"github.com/portfolio-site/portfolio-api/internal/leetcode"
	"github.com/portfolio-site/portfolio-api/internal/llm"
	"github.com/portfolio-site/portfolio-api/internal/mail"
	"github.com/portfolio-site/portfolio-api/internal/prompt"
	"github.com/portfolio-site/portfolio-api/internal/service"
	"github.com/portfolio-site/portfolio-api/internal/store"
	"github.com/portfolio-site/portfolio-api/pkg/logger"
	"github.com/portfolio-site/portfolio-api/pkg/tracing"
)

const serviceName = "portfolio-api"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
		Service:     serviceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting API server",
		zap.String("env", cfg.Env),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("store_backend", cfg.StoreBackend),
	)

	ctx := context.Background()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Persona and prompt table
	persona, err := prompt.LoadPersona(cfg.PersonaFile)
	if err != nil {
		log.Fatal("failed to load persona", zap.Error(err))
	}
	prompts := prompt.NewBuilder(persona)

	// Chat store
	chatStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open chat store", zap.Error(err))
	}

	// LLM client
	llmClient, err := llm.NewClient(ctx, llm.Provider(cfg.LLMProvider), llmSettings(cfg))
	if err != nil {
		log.Fatal("failed to create LLM client", zap.Error(err))
	}
	log.Info("LLM client ready", zap.String("provider", llmClient.Name()), zap.String("model", llmClient.Model()))

	// Services
	chatSvc := service.NewChatService(chatStore, llmClient, prompts, service.ChatOptions{
		MaxSteps:       cfg.LLMMaxSteps,
		MaxTokens:      cfg.LLMMaxTokens,
		PersistTimeout: cfg.PersistTimeout,
	}, log)

	sender := mail.NewSMTPSender(mail.Config{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPassword,
	}, log)
	contactSvc := service.NewContactService(sender, persona.Name, cfg.EmailAdmin, log)

	// Router
	router := handler.NewRouter(handler.RouterConfig{
		Chat:              handler.NewChatHandler(chatSvc, log),
		Turns:             handler.NewTurnHandler(chatSvc, log),
		Contact:           handler.NewContactHandler(contactSvc),
		LeetCode:          handler.NewLeetCodeHandler(leetcode.NewClient(cfg.LeetCodeURL), log),
		Health:            handler.NewHealthHandler(chatStore),
		JWTSecret:         cfg.JWTSecret,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// In-flight assistant turns are written after their response ends.
	if err := chatSvc.Wait(shutdownCtx); err != nil {
		log.Warn("pending chat turns not persisted before shutdown", zap.Error(err))
	}

	if err := chatStore.Close(shutdownCtx); err != nil {
		log.Warn("failed to close chat store", zap.Error(err))
	}
	if c, ok := llmClient.(io.Closer); ok {
		c.Close()
	}

	log.Info("server stopped")
}

func llmSettings(cfg *config.Config) llm.Settings {
	switch llm.Provider(cfg.LLMProvider) {
	case llm.ProviderOpenAI:
		return llm.Settings{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel}
	case llm.ProviderAnthropic:
		return llm.Settings{APIKey: cfg.AnthropicAPIKey, Model: cfg.AnthropicModel}
	case llm.ProviderArk:
		return llm.Settings{APIKey: cfg.ArkAPIKey, Model: cfg.ArkModel, BaseURL: cfg.ArkBaseURL, Region: cfg.ArkRegion}
	default:
		return llm.Settings{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}
	}
}
