//go:build !tesseract

package tesseract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"image-to-text/api/internal/ocr"
)

func TestRecognizeNotCompiled(t *testing.T) {
	assert.False(t, Enabled)
	_, err := New(nil).Recognize(context.Background(), ocr.Input{Image: []byte{1}})
	assert.ErrorIs(t, err, ErrNotCompiled)
}
