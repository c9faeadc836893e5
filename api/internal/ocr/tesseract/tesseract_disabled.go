//go:build !tesseract

package tesseract

import (
	"context"
	"errors"

	"image-to-text/api/internal/ocr"
)

var ErrNotCompiled = errors.New("tesseract backend is not compiled in, rebuild with -tags tesseract")

const Enabled = false

func (e *Engine) Recognize(context.Context, ocr.Input) (ocr.Result, error) {
	return ocr.Result{}, ErrNotCompiled
}
