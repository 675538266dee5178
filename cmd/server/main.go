package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whoyao/xiaozhi-esp32-server/internal/asr"
	"github.com/whoyao/xiaozhi-esp32-server/internal/config"
	"github.com/whoyao/xiaozhi-esp32-server/internal/metrics"
	"github.com/whoyao/xiaozhi-esp32-server/internal/server"
	"github.com/whoyao/xiaozhi-esp32-server/internal/storage"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "asr-gateway"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("http_address", cfg.HTTP.Address),
		slog.String("asr_cluster", cfg.ASR.Cluster),
		slog.String("asr_url", cfg.ASR.URL),
		slog.String("language", cfg.ASR.Language),
		slog.Int("segment_duration_ms", cfg.ASR.SegmentDuration),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Bool("storage_enabled", cfg.Storage.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize session audio storage (if enabled)
	var store asr.AudioStore
	if cfg.Storage.Enabled {
		writer, err := storage.NewWriter(cfg.Storage.OutputDir, logger)
		if err != nil {
			logger.Error("Failed to create audio storage", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = writer
		logger.Info("Session audio storage initialized",
			slog.String("output_dir", cfg.Storage.OutputDir),
		)
	}

	// Initialize recognition client
	asrClient, err := asr.NewClient(asr.Config{
		AppID:           cfg.ASR.AppID,
		Cluster:         cfg.ASR.Cluster,
		AccessToken:     cfg.ASR.AccessToken,
		URL:             cfg.ASR.URL,
		Language:        cfg.ASR.Language,
		SegmentDuration: cfg.ASR.GetSegmentDuration(),
		ConnectTimeout:  cfg.ASR.GetConnectTimeoutDuration(),
		ReceiveTimeout:  cfg.ASR.GetReceiveTimeoutDuration(),
		SuccessCode:     cfg.ASR.SuccessCode,
	}, logger, appMetrics, store)
	if err != nil {
		logger.Error("Failed to create recognition client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Recognition client initialized",
		slog.String("cluster", cfg.ASR.Cluster),
	)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, asrClient, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server (stop accepting new requests; in-flight sessions
	// finish within the shutdown window)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := asrClient.GetStats()
	logger.Info("Final session statistics",
		slog.Uint64("total_sessions", stats.TotalSessions),
		slog.Uint64("succeeded", stats.Succeeded),
		slog.Uint64("failed", stats.Failed),
		slog.Float64("success_rate", stats.SuccessRate),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
