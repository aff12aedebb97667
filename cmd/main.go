/*
Package main is the entry point for the Messenger Server.

It is responsible for loading configuration, initializing the global logging system,
connecting the document store and the response generator, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messenger/internal/app/assistant"
	"messenger/internal/app/chat"
	"messenger/internal/app/friends"
	"messenger/internal/app/messages"
	"messenger/internal/app/store"
	"messenger/internal/configs"
	"messenger/internal/handler"
	"messenger/internal/pkg/logx"
	"messenger/internal/pkg/retry"
)

const (
	// reactionRetryAttempts bounds how many times the reaction aggregation unit is tried.
	reactionRetryAttempts = 3

	// reactionRetryDelay is the fixed pause between reaction attempts.
	reactionRetryDelay = 1 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("gemini_model", cfg.GeminiModel).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect the document store and run migrations
	documentStore, err := store.NewPostgresStore(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to connect to database")
	}
	defer documentStore.Close()

	// Initialize the response generator
	generator, err := assistant.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SmartReplyMax)
	if err != nil {
		logx.Fatal(err, "Failed to initialize assistant")
	}

	// Wire the session layer
	chatDeps := chat.Deps{
		Registry:  chat.NewRegistry(),
		Messages:  messages.NewFacade(documentStore),
		Friends:   friends.NewManager(documentStore),
		Generator: generator,
		ReactionRetry: retry.Policy{
			Attempts: reactionRetryAttempts,
			Delay:    reactionRetryDelay,
		},
	}

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Config: cfg,
		Chat:   chatDeps,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Messenger Server starting on http://localhost%s (WebSocket at /ws)", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
