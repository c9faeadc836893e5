package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"image-to-text/api/internal/app"
	"image-to-text/api/internal/config"
	"image-to-text/api/internal/handle"
	"image-to-text/api/internal/httpserver"
	"image-to-text/api/internal/logger"
	"image-to-text/api/internal/store"
	"image-to-text/api/internal/telegram"
)

func main() {
	token := config.MustEnv("TELEGRAM_BOT_TOKEN")
	if err := run(token); err != nil {
		logger.Default.Fatalf("%v", err)
	}
}

// run returns instead of exiting so deferred cleanup always runs.
func run(token string) error {
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

	hist, err := app.OpenHistory(ctx, log)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if hist != nil {
		defer hist.DB.Close()
		svc.Recorder = hist.Repo
		h.Ping = hist.DB.PingContext
		go store.RunJanitor(ctx, hist.Repo, cfg.HistoryRetention, time.Hour, log)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	r, err := telegram.NewRouter(bot, token, svc, cfg.BotWorkers, log)
	if err != nil {
		return err
	}
	defer r.Close()
	r.Languages = cfg.TesseractLangs
	r.ConvertTimeout = cfg.RequestTimeout

	// ListenForWebhook registers on DefaultServeMux, so health lives there too.
	http.HandleFunc("/healthz", h.Healthz)
	addr := "0.0.0.0:" + cfg.Port

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		return startWebhookMode(ctx, addr, bot, r, webhookURL, log)
	}
	startPollingMode(ctx, addr, bot, r, log)
	return nil
}

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, log *zap.SugaredLogger) error {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Infow("webhook updates channel closed")
	}()

	log.Infow("webhook mode", "addr", addr, "path", path)
	if err := httpserver.Serve(ctx, addr, http.DefaultServeMux, log); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, log *zap.SugaredLogger) {
	go func() {
		if err := httpserver.Serve(ctx, addr, http.DefaultServeMux, log); err != nil {
			log.Errorw("health server stopped", "err", err)
		}
	}()
	runPolling(ctx, bot, r.HandleUpdate, log)
}
