// Command docviewd is the document viewer processing service.
//
// Usage:
//
//	docviewd                         # run with defaults on :8000
//	docviewd -config docviewd.yaml   # run with a config file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/config"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/convert"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/document"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/events"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/handler"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/ingest"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/runcmd"
	"github.com/Dmacq-Software-Private-Limited/dmacq-doc-viewer/server"
)

func main() {
	configPath := flag.String("config", "", "path to docviewd.yaml config file")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	// A local .env is optional; ignore its absence.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "docviewd:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("docviewd: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dirs := convert.Dirs{
		Uploads:    cfg.Storage.UploadsDir,
		Converted:  cfg.Storage.ConvertedDir,
		Thumbnails: cfg.Storage.ThumbnailsDir,
	}
	if err := dirs.Ensure(); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	eventLog, err := events.Open(cfg.Storage.EventsDBPath, logger)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer eventLog.Close()
	eventLog.StartRetention(ctx, cfg.Storage.EventsRetentionDays, 24*time.Hour)

	conv := convert.New(convert.Config{
		Dirs:           dirs,
		Run:            runcmd.Run,
		ConvertTimeout: cfg.Convert.Timeout,
		ProbeTimeout:   cfg.Convert.ProbeTimeout,
		Logger:         logger,
	})
	registry := handler.NewRegistry(handler.Config{
		Converter:    conv,
		Run:          runcmd.Run,
		ProbeTimeout: cfg.Convert.ProbeTimeout,
		Logger:       logger,
	})
	ing := ingest.New(ingest.Config{
		Store:       document.NewStore(),
		Annotations: document.NewAnnotationStore(),
		Registry:    registry,
		Converter:   conv,
		Events:      eventLog,
		Logger:      logger,
	})
	svc := server.New(server.Config{
		Ingest:         ing,
		Events:         eventLog,
		Logger:         logger,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("docviewd: listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("docviewd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
