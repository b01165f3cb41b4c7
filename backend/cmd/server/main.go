package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/api"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/services"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/config"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	sm := services.NewServiceManager(log, cfg)
	err = sm.Start(startCtx)
	cancelStart()
	if err != nil {
		log.Fatal("Failed to start services", zap.Error(err))
	}
	defer sm.Shutdown(context.Background())

	handler := api.NewHandler(sm.Orchestrator(), services.FetchConfig(cfg), log.Named("api"))
	router := api.NewRouter(handler, log, cfg.IsProduction())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// A cold batch embeds and extracts every admitted article
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
