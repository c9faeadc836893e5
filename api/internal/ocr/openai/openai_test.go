package openai

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-to-text/api/internal/ocr"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func completion(content string, logprobs []float64) map[string]any {
	toks := make([]map[string]any, 0, len(logprobs))
	for _, lp := range logprobs {
		toks = append(toks, map[string]any{"token": "x", "logprob": lp, "bytes": []int{120}, "top_logprobs": []any{}})
	}
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
			"logprobs":      map[string]any{"content": toks},
		}},
	}
}

func newServer(t *testing.T, reply map[string]any, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if seen != nil {
			_ = json.Unmarshal(body, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRecognizeWithLogprobs(t *testing.T) {
	var req map[string]any
	srv := newServer(t, completion("Hello world", []float64{0, 0}), &req)

	e := New("sk-test", "", srv.URL+"/", true)
	res, err := e.Recognize(context.Background(), ocr.Input{Image: pngMagic, Languages: []string{"eng"}})
	require.NoError(t, err)

	assert.Equal(t, "Hello world", res.Text)
	assert.Equal(t, DefaultModel, res.Model)
	require.NotNil(t, res.Confidence)
	assert.InDelta(t, 100, *res.Confidence, 1e-9)
	assert.Equal(t, true, req["logprobs"])

	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	parts := user["content"].([]any)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Contains(t, img["url"], "data:image/png;base64,")
	assert.Equal(t, "high", img["detail"])
}

func TestRecognizeWithoutLogprobs(t *testing.T) {
	var req map[string]any
	srv := newServer(t, completion("```\nTotal 12\n```", nil), &req)

	e := New("sk-test", "gpt-4o", srv.URL+"/", false)
	res, err := e.Recognize(context.Background(), ocr.Input{Image: pngMagic, Model: "gpt-4.1"})
	require.NoError(t, err)
	assert.Equal(t, "Total 12", res.Text)
	assert.Equal(t, "gpt-4.1", res.Model)
	assert.Nil(t, res.Confidence)
	_, has := req["logprobs"]
	assert.False(t, has)
}

func TestRecognizeNoKey(t *testing.T) {
	_, err := New("", "", "", false).Recognize(context.Background(), ocr.Input{Image: pngMagic})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestConfidenceFromLogprobs(t *testing.T) {
	assert.Nil(t, confidenceFromLogprobs(nil))

	c := confidenceFromLogprobs([]float64{math.Log(0.5), math.Log(0.5)})
	require.NotNil(t, c)
	assert.InDelta(t, 50, *c, 1e-9)
}
