package tesseract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New(nil)
	assert.Equal(t, []string{"eng"}, e.Languages)
	assert.Equal(t, "tesseract", e.Name())

	e = New([]string{" eng ", "", "rus"})
	assert.Equal(t, []string{"eng", "rus"}, e.Languages)
	assert.Equal(t, "eng+rus", e.GetModel())
	assert.Equal(t, []string{"deu"}, e.languages([]string{"deu"}))
	assert.Equal(t, []string{"eng", "rus"}, e.languages(nil))
}

func TestWhitelist(t *testing.T) {
	assert.Equal(t, asciiWhitelist, whitelist([]string{"eng"}))
	assert.Empty(t, whitelist([]string{"eng", "rus"}))
}

func TestMeanConfidence(t *testing.T) {
	assert.Nil(t, meanConfidence(nil))
	c := meanConfidence([]float64{90, 70, 50})
	require.NotNil(t, c)
	assert.InDelta(t, 70, *c, 1e-9)
}
