package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-to-text/api/internal/app"
	"image-to-text/api/internal/config"
	"image-to-text/api/internal/handle"
	"image-to-text/api/internal/httpserver"
	"image-to-text/api/internal/logger"
	"image-to-text/api/internal/store"
)

func main() {
	if err := run(); err != nil {
		logger.Default.Fatalf("%v", err)
	}
}

// run returns instead of exiting so deferred cleanup always runs.
func run() error {
	log := logger.Default
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines, err := app.BuildEngines(cfg, log)
	if err != nil {
		return err
	}
	svc := app.NewService(cfg, engines, log)

	h := handle.New(svc, log)
	h.DefaultTimeout = cfg.RequestTimeout
	h.MaxBodyBytes = cfg.MaxUploadBytes

	hist, err := app.OpenHistory(ctx, log)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if hist != nil {
		defer hist.DB.Close()
		svc.Recorder = hist.Repo
		h.History = hist.Repo
		h.Ping = hist.DB.PingContext
		go store.RunJanitor(ctx, hist.Repo, cfg.HistoryRetention, time.Hour, log)
	}

	addr := ":" + cfg.Port
	if err := httpserver.Serve(ctx, addr, httpserver.NewRouter(h, cfg.CORSOrigins), log); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}
