package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/util"
)

const (
	DefaultOCRURL = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"
	DefaultModel  = "page"
)

type Engine struct {
	URL      string
	iamc     *IamClient
	folderID string
	httpc    *http.Client
}

func New(oauth2Token, folderID string) *Engine {
	return &Engine{
		URL:      DefaultOCRURL,
		iamc:     NewIamClient(oauth2Token),
		folderID: folderID,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string     { return "yandex" }
func (e *Engine) GetModel() string { return DefaultModel }

type request struct {
	Content       string   `json:"content"`
	MimeType      string   `json:"mimeType,omitempty"`      // "JPEG" | "PNG" | "PDF"
	LanguageCodes []string `json:"languageCodes,omitempty"` // ["ru","en"]
	Model         string   `json:"model,omitempty"`         // "page" | "handwritten"
}

type textLine struct {
	Text string `json:"text,omitempty"`
}

type textBlock struct {
	Lines []textLine `json:"lines,omitempty"`
}

type textAnnotation struct {
	FullText string      `json:"fullText,omitempty"`
	Blocks   []textBlock `json:"blocks,omitempty"`
}

type response struct {
	Result *struct {
		TextAnnotation *textAnnotation `json:"textAnnotation,omitempty"`
	} `json:"result,omitempty"`
}

// Recognize calls the Vision OCR API. The service reports no usable
// document-level confidence, so the result carries none.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if e.folderID == "" {
		return ocr.Result{}, errors.New("YC_FOLDER_ID is empty")
	}
	img := in.Image
	mime := util.SniffMimeForOCR(img)
	if mime == "" {
		// Vision OCR reads only JPEG, PNG and PDF
		converted, err := imageprep.ToPNG(img)
		if err != nil {
			return ocr.Result{}, fmt.Errorf("yandex ocr: unsupported image type %q: %w", in.MIME, err)
		}
		img, mime = converted, util.SniffMimeForOCR(converted)
	}
	model := DefaultModel
	if in.Model != "" {
		model = in.Model
	}
	payload, err := json.Marshal(request{
		Content:       base64.StdEncoding.EncodeToString(img),
		MimeType:      mime,
		LanguageCodes: languageCodes(in.Languages),
		Model:         model,
	})
	if err != nil {
		return ocr.Result{}, err
	}

	resp, err := e.post(ctx, payload)
	if err != nil {
		return ocr.Result{}, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// one retry with a fresh token
		resp.Body.Close()
		e.iamc.Invalidate()
		if resp, err = e.post(ctx, payload); err != nil {
			return ocr.Result{}, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ocr.Result{}, fmt.Errorf("yandex ocr %d: %s", resp.StatusCode, string(x))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ocr.Result{}, err
	}
	return ocr.Result{Text: out.text(), Model: model}, nil
}

func (e *Engine) post(ctx context.Context, payload []byte) (*http.Response, error) {
	iamToken, err := e.iamc.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+iamToken)
	req.Header.Set("x-folder-id", e.folderID)
	return e.httpc.Do(req)
}

func (r *response) text() string {
	if r == nil || r.Result == nil || r.Result.TextAnnotation == nil {
		return ""
	}
	ta := r.Result.TextAnnotation
	if t := strings.TrimSpace(ta.FullText); t != "" {
		return t
	}
	var lines []string
	for _, b := range ta.Blocks {
		for _, l := range b.Lines {
			if s := strings.TrimSpace(l.Text); s != "" {
				lines = append(lines, s)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// languageCodes maps Tesseract style codes (eng, rus) to the two-letter
// codes the API expects. An empty list asks for auto-detection.
func languageCodes(langs []string) []string {
	if len(langs) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if short, ok := iso639[l]; ok {
			l = short
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

var iso639 = map[string]string{
	"eng": "en",
	"rus": "ru",
	"deu": "de",
	"fra": "fr",
	"spa": "es",
	"ita": "it",
	"ukr": "uk",
	"kaz": "kk",
	"tur": "tr",
}
