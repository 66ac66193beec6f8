// Package main provides the API server entry point for the scan gateway service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scan-gateway/internal/api"
	"github.com/scan-gateway/internal/config"
	"github.com/scan-gateway/internal/logging"
	"github.com/scan-gateway/internal/quota"
	"github.com/scan-gateway/internal/sendflow"
	"github.com/scan-gateway/internal/service"
	"github.com/scan-gateway/internal/storage"
	"github.com/scan-gateway/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Wire the scan pipeline
	draftStore := sendflow.NewRedisStore(redis, cfg.Scan.DraftTTL)
	eventRepo := storage.NewScanEventRepository(postgres)

	// Scan history is written off the request path; the writer retries and
	// circuit-breaks around Postgres on its own.
	eventWriter, err := worker.NewEventWriter(&worker.EventWriterConfig{
		Sink:   eventRepo,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create event writer")
	}
	defer eventWriter.Stop()

	scanService, err := service.NewScanService(&service.ScanServiceConfig{
		Drafts:            draftStore,
		Events:            eventWriter,
		OpenFallbackDelay: cfg.Scan.FormOpenFallbackDelay,
		MaxPayloadBytes:   cfg.Scan.MaxPayloadBytes,
		Logger:            logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scan service")
	}

	scanQuota, err := quota.NewTracker(&quota.TrackerConfig{
		Redis:         redis.Client(),
		FreeTierScans: cfg.RateLimit.QuotaFreeTier,
		PaidTierScans: cfg.RateLimit.QuotaPaidTier,
		Window:        cfg.RateLimit.QuotaWindow,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create scan quota tracker")
	}

	// Create API server
	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			FreeTierRPS:     cfg.RateLimit.FreeTier,
			PaidTierRPS:     cfg.RateLimit.PaidTier,
			HistoryPageSize: cfg.Scan.HistoryPageSize,
		},
		scanService,
		draftStore,
		eventRepo,
		scanQuota,
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Error("Server stopped")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Scan gateway started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}

	logger.Info("Server exited")
}
