// Package convert runs one image through a recognition backend and the
// text acceptance gate.
package convert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/store"
	"image-to-text/api/internal/textcheck"
	"image-to-text/api/internal/util"
)

// NoTextMessage is shown instead of rejected text.
const NoTextMessage = "No readable text found in the image. Please try with a clearer image."

const (
	SourceWeb      = "web"
	SourceUpload   = "upload"
	SourceTelegram = "telegram"
)

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrRecognition  = errors.New("recognition failed")
)

// Recorder receives every completed conversion.
type Recorder interface {
	Record(ctx context.Context, c store.Conversion) error
}

// Request carries either a data URL or raw image bytes.
type Request struct {
	DataURL   string
	Image     []byte
	MIME      string
	Engine    string
	Model     string
	Languages []string
	Source    string
	ChatID    int64
}

// Outcome is what callers present. Text is empty unless Accepted.
type Outcome struct {
	ID                 string           `json:"id"`
	Text               string           `json:"text"`
	Accepted           bool             `json:"accepted"`
	Reason             textcheck.Reason `json:"reason"`
	Message            string           `json:"message,omitempty"`
	Score              float64          `json:"score"`
	Confidence         float64          `json:"confidence"`
	ConfidenceReported bool             `json:"confidenceReported"`
	Engine             string           `json:"engine"`
	Model              string           `json:"model"`
	ImageHash          string           `json:"imageHash"`
	Duration           time.Duration    `json:"-"`
	DurationMs         int64            `json:"durationMs"`
}

type Service struct {
	Engines   *ocr.Engines
	Policy    textcheck.Policy
	MaxPixels int
	// Timeout bounds a conversion whose context has no deadline.
	Timeout  time.Duration
	Recorder Recorder
	Log      *zap.SugaredLogger
}

func NewService(engines *ocr.Engines, policy textcheck.Policy, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		Engines:   engines,
		Policy:    policy,
		MaxPixels: imageprep.DefaultMaxPixels,
		Log:       log,
	}
}

// Convert decodes and prepares the image, asks the engine for text and
// gates it. Backend failures wrap ErrRecognition; bad input wraps
// ErrInvalidImage; an unknown engine wraps ocr.ErrUnknownEngine.
func (s *Service) Convert(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()

	img, _, err := decode(req)
	if err != nil {
		return Outcome{}, err
	}
	eng, err := s.Engines.GetEngine(req.Engine)
	if err != nil {
		return Outcome{}, err
	}
	prep, err := imageprep.Prepare(img, s.MaxPixels)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if prep.Scaled {
		s.Log.Debugw("image downscaled", "width", prep.Width, "height", prep.Height)
	}

	if _, ok := ctx.Deadline(); !ok && s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	res, err := eng.Recognize(ctx, ocr.Input{
		Image:     prep.Data,
		MIME:      prep.MIME,
		Languages: req.Languages,
		Model:     req.Model,
	})
	if err != nil {
		s.Log.Warnw("recognition failed", "engine", eng.Name(), "err", err)
		return Outcome{}, fmt.Errorf("%w: %s: %w", ErrRecognition, eng.Name(), err)
	}

	conf, reported := s.confidence(res.Confidence)
	v := s.Policy.Validate(res.Text, conf)
	if math.IsNaN(conf) {
		// rejected above; NaN has no JSON encoding
		conf = 0
	}

	model := res.Model
	if model == "" {
		model = eng.GetModel()
	}
	out := Outcome{
		ID:                 uuid.NewString(),
		Text:               v.Text,
		Accepted:           v.Accepted,
		Reason:             v.Reason,
		Score:              v.Score,
		Confidence:         conf,
		ConfidenceReported: reported,
		Engine:             eng.Name(),
		Model:              model,
		ImageHash:          util.SHA256Hex(img),
		Duration:           time.Since(start),
	}
	out.DurationMs = out.Duration.Milliseconds()
	if !out.Accepted {
		out.Message = NoTextMessage
	}

	s.Log.Infow("conversion done",
		"id", out.ID, "source", req.Source, "engine", out.Engine, "model", out.Model,
		"accepted", out.Accepted, "reason", out.Reason, "score", out.Score,
		"confidence", out.Confidence, "dur_ms", out.DurationMs)

	s.record(ctx, req, out)
	return out, nil
}

func (s *Service) confidence(c *float64) (float64, bool) {
	if c == nil {
		return s.Policy.NeutralConfidence, false
	}
	v := *c
	if !math.IsNaN(v) {
		v = math.Max(0, math.Min(100, v))
	}
	return v, true
}

func (s *Service) record(ctx context.Context, req Request, out Outcome) {
	if s.Recorder == nil {
		return
	}
	id, _ := uuid.Parse(out.ID)
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.Recorder.Record(rctx, store.Conversion{
		ID:                 id,
		CreatedAt:          time.Now().UTC(),
		Source:             req.Source,
		ChatID:             req.ChatID,
		Engine:             out.Engine,
		Model:              out.Model,
		ImageHash:          out.ImageHash,
		Accepted:           out.Accepted,
		Reason:             string(out.Reason),
		Score:              out.Score,
		Confidence:         out.Confidence,
		ConfidenceReported: out.ConfidenceReported,
		Text:               out.Text,
		DurationMs:         out.DurationMs,
	})
	if err != nil {
		s.Log.Warnw("history record failed", "id", out.ID, "err", err)
	}
}

func decode(req Request) ([]byte, string, error) {
	if req.DataURL != "" {
		mime, data, err := util.ParseImageDataURL(req.DataURL)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
		return data, mime, nil
	}
	if len(req.Image) == 0 {
		return nil, "", fmt.Errorf("%w: no image provided", ErrInvalidImage)
	}
	mime := util.PickMIME(req.MIME, "", req.Image)
	if !util.IsImageMIME(mime) {
		return nil, "", fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, mime)
	}
	return req.Image, mime, nil
}
