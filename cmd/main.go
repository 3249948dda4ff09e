package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hanzigo/backend/adapters/gemini"
	"github.com/hanzigo/backend/adapters/mongo"
	"github.com/hanzigo/backend/adapters/stt"
	"github.com/hanzigo/backend/domain/repositories"
	"github.com/hanzigo/backend/internal/api"
	"github.com/hanzigo/backend/internal/observability"
	"github.com/hanzigo/backend/internal/websocket"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx := context.Background()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	geminiClient, err := gemini.NewClient(ctx, gemini.NewConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
	}

	var transcriber repositories.Transcriber = geminiClient
	if os.Getenv("STT_PROVIDER") == "google" {
		transcriber = stt.NewGoogleTranscriber(stt.NewConfigFromEnv(), logger)
		logger.Info("Using Google Cloud Speech transcriber")
	}

	mongoClient, err := mongo.NewClient(logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	sessionRepo := mongo.NewSessionRepository(mongoClient.Database)

	metrics := observability.NewMetrics("hanzigo")

	// Initialize WebSocket hub
	hub := websocket.NewHub(geminiClient, geminiClient, transcriber, sessionRepo, metrics, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, geminiClient, geminiClient, sessionRepo, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := mongoClient.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close MongoDB connection", zap.Error(err))
	}

	logger.Info("Server exited")
}
