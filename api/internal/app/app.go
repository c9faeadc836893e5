// Package app assembles engines, the conversion service and optional
// history from a Config. Both binaries share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"image-to-text/api/internal/config"
	"image-to-text/api/internal/convert"
	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/ocr/gemini"
	"image-to-text/api/internal/ocr/openai"
	"image-to-text/api/internal/ocr/tesseract"
	"image-to-text/api/internal/ocr/yandex"
	"image-to-text/api/internal/store"
)

var ErrNoEngines = errors.New("no recognition engine configured: set GEMINI_API_KEY, OPENAI_API_KEY, YC_OAUTH_TOKEN+YC_FOLDER_ID or TESSERACT_ENABLED")

// BuildEngines registers every backend whose credentials are present, in
// preference order gemini, openai, yandex, tesseract.
func BuildEngines(cfg *config.Config, log *zap.SugaredLogger) (*ocr.Engines, error) {
	engs := ocr.NewEngines()
	if cfg.GeminiAPIKey != "" {
		engs.Register(gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel))
	}
	if cfg.OpenAIAPIKey != "" {
		engs.Register(openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.OpenAILogprobs))
	}
	if cfg.YCOAuthToken != "" && cfg.YCFolderID != "" {
		engs.Register(yandex.New(cfg.YCOAuthToken, cfg.YCFolderID))
	}
	if cfg.TesseractEnabled {
		if tesseract.Enabled {
			engs.Register(tesseract.New(cfg.TesseractLangs))
		} else {
			log.Warnw("TESSERACT_ENABLED is set but the binary was built without the tesseract tag")
		}
	}
	if engs.Len() == 0 {
		return nil, ErrNoEngines
	}
	if cfg.DefaultEngine != "" {
		if err := engs.SetDefault(cfg.DefaultEngine); err != nil {
			return nil, fmt.Errorf("DEFAULT_ENGINE: %w", err)
		}
	}
	log.Infow("engines ready", "engines", engs.Names(), "default", engs.Default())
	return engs, nil
}

// NewService builds the conversion service for cfg.
func NewService(cfg *config.Config, engs *ocr.Engines, log *zap.SugaredLogger) *convert.Service {
	svc := convert.NewService(engs, cfg.Policy(), log)
	svc.MaxPixels = cfg.MaxPixels
	svc.Timeout = cfg.RequestTimeout
	return svc
}

// History is the optional Postgres conversion log.
type History struct {
	DB   *sql.DB
	Repo *store.ConversionRepo
}

// OpenHistory connects when a DSN is configured and returns nil otherwise.
func OpenHistory(ctx context.Context, log *zap.SugaredLogger) (*History, error) {
	dsn := store.ResolveDSN()
	if dsn == "" {
		log.Infow("history disabled: no DATABASE_URL or POSTGRES_PASSWORD")
		return nil, nil
	}
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	log.Infow("db connected", "dsn", store.SafeDSNSummary(dsn))
	repo := store.NewConversionRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &History{DB: db, Repo: repo}, nil
}
