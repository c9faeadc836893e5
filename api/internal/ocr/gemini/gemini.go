package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/util"
)

const (
	DefaultModel = "gemini-2.0-flash"
	maxAttempts  = 3
)

type Engine struct {
	APIKey string
	Model  string
	prompt string
	opts   []option.ClientOption
}

func New(apiKey, model string, opts ...option.ClientOption) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  model,
		prompt: util.LoadPrompt("ocr", "gemini", Prompt),
		opts:   opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Recognize sends the instruction prompt and the image in one user turn.
// Gemini reports no confidence, so Result.Confidence stays nil.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if e.APIKey == "" {
		return ocr.Result{}, errors.New("GEMINI_API_KEY is empty")
	}
	if len(in.Image) == 0 {
		return ocr.Result{}, errors.New("gemini: empty image")
	}
	model := e.Model
	if in.Model != "" {
		model = in.Model
	}

	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(model)
	if m == nil {
		return ocr.Result{}, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = generationConfig()

	mime := util.PickMIME(in.MIME, "", in.Image)
	parts := []genai.Part{
		genai.Text(e.prompt),
		genai.Blob{MIMEType: mime, Data: in.Image},
	}

	resp, err := generateWithRetry(ctx, maxAttempts, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		return m.GenerateContent(ctx, parts...)
	})
	if err != nil {
		return ocr.Result{}, fmt.Errorf("gemini generate: %w", err)
	}
	return ocr.Result{
		Text:  util.StripCodeFences(firstText(resp)),
		Model: model,
	}, nil
}

func generationConfig() genai.GenerationConfig {
	return genai.GenerationConfig{
		Temperature:     ptrFloat32(0.1),
		TopP:            ptrFloat32(0.8),
		TopK:            ptrInt32(40),
		MaxOutputTokens: ptrInt32(2048),
	}
}

// generateWithRetry retries transient failures with a linear backoff and
// stops early once ctx is done or the error is permanent.
func generateWithRetry(
	ctx context.Context,
	attempts int,
	call func(context.Context) (*genai.GenerateContentResponse, error),
) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(err) {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// permanentMarkers are status names that a retry cannot fix.
var permanentMarkers = []string{
	"INVALID_ARGUMENT", "InvalidArgument",
	"PERMISSION_DENIED", "PermissionDenied",
	"UNAUTHENTICATED", "Unauthenticated",
	"NOT_FOUND", "NotFound",
	"API key not valid", "API_KEY_INVALID",
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := 0
	var gerr *googleapi.Error
	var coded interface{ HTTPCode() int }
	switch {
	case errors.As(err, &gerr):
		code = gerr.Code
	case errors.As(err, &coded):
		code = coded.HTTPCode()
	}
	switch code {
	case 400, 401, 403, 404:
		return false
	}
	msg := err.Error()
	for _, m := range permanentMarkers {
		if strings.Contains(msg, m) {
			return false
		}
	}
	return true
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
