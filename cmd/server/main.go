package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/symptom-dx-server/internal/api"
	"github.com/symptom-dx-server/internal/bootstrap"
	"github.com/symptom-dx-server/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := bootstrap.NewLogger(cfg.Logging, os.Stderr)
	logger.Infof("Starting symptom diagnosis server on %s:%d", cfg.Server.Host, cfg.Server.Port)

	engine, err := bootstrap.NewEngine(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create diagnosis engine: %v", err)
	}
	defer engine.Close()

	// Create server
	server := api.NewServer(configManager, engine.Engine, logger, version)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.Errorf("Server failed: %v", err)
		return
	}

	logger.Info("Server stopped")
}
