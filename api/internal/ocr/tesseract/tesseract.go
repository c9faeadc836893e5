//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/ocr"
)

const Enabled = true

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	img, err := imageprep.ToPNG(in.Image)
	if err != nil {
		return ocr.Result{}, err
	}

	c := gosseract.NewClient()
	defer c.Close()

	langs := e.languages(in.Languages)
	if err := c.SetLanguage(langs...); err != nil {
		return ocr.Result{}, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return ocr.Result{}, fmt.Errorf("set psm: %w", err)
	}
	if wl := whitelist(langs); wl != "" {
		if err := c.SetWhitelist(wl); err != nil {
			return ocr.Result{}, fmt.Errorf("set whitelist: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}

	var confs []float64
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		for _, b := range boxes {
			if strings.TrimSpace(b.Word) != "" {
				confs = append(confs, b.Confidence)
			}
		}
	}

	return ocr.Result{
		Text:       strings.TrimSpace(text),
		Confidence: meanConfidence(confs),
		Model:      strings.Join(langs, "+"),
	}, nil
}
