package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"image-to-text/api/internal/convert"
	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/store"
)

// History is the read side of the conversion log.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Conversion, error)
}

type Handle struct {
	svc *convert.Service
	log *zap.SugaredLogger

	// History is nil when no database is configured.
	History History
	// Ping checks backing services for /healthz; nil means always healthy.
	Ping           func(ctx context.Context) error
	DefaultTimeout time.Duration
	MaxBodyBytes   int64
}

func New(svc *convert.Service, log *zap.SugaredLogger) *Handle {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handle{
		svc:            svc,
		log:            log,
		DefaultTimeout: 180 * time.Second,
		MaxBodyBytes:   20 << 20,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors to HTTP statuses.
func (h *Handle) writeError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "image is too large"})
	case errors.Is(err, imageprep.ErrTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "image dimensions are too large"})
	case errors.Is(err, convert.ErrInvalidImage):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid image format"})
	case errors.Is(err, ocr.ErrUnknownEngine):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, convert.ErrRecognition):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: ocr.UserMessage(err)})
	default:
		h.log.Errorw("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// requestTimeout reads X-Request-Timeout or ?timeoutSec, in seconds.
func (h *Handle) requestTimeout(r *http.Request) time.Duration {
	deadline := h.DefaultTimeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return deadline
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type enginesResp struct {
	Default string   `json:"default"`
	Engines []string `json:"engines"`
}

func (h *Handle) Engines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, enginesResp{
		Default: h.svc.Engines.Default(),
		Engines: h.svc.Engines.Names(),
	})
}

func (h *Handle) Conversions(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "history is disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.History.Recent(r.Context(), store.ClampLimit(limit))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
