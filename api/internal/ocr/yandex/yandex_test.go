package yandex

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/gif"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-to-text/api/internal/ocr"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newTestEngine(t *testing.T, ocrHandler http.HandlerFunc) (*Engine, *int32) {
	t.Helper()
	var iamCalls int32
	iam := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&iamCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"iamToken": "tok" + string(rune('0'+n))})
	}))
	t.Cleanup(iam.Close)
	srv := httptest.NewServer(ocrHandler)
	t.Cleanup(srv.Close)

	e := New("oauth", "folder")
	e.URL = srv.URL
	e.iamc.URL = iam.URL
	return e, &iamCalls
}

func TestRecognizeFullText(t *testing.T) {
	var got request
	e, iamCalls := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		assert.Equal(t, "folder", r.Header.Get("x-folder-id"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"fullText":"  Hello world  "}}}`))
	})

	res, err := e.Recognize(context.Background(), ocr.Input{Image: pngMagic, Languages: []string{"eng", "rus"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", res.Text)
	assert.Nil(t, res.Confidence)
	assert.Equal(t, "PNG", got.MimeType)
	assert.Equal(t, []string{"en", "ru"}, got.LanguageCodes)
	assert.Equal(t, DefaultModel, got.Model)

	_, err = e.Recognize(context.Background(), ocr.Input{Image: pngMagic})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(iamCalls), "token is cached")
}

func TestRecognizeFallsBackToLines(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"blocks":[{"lines":[{"text":"one"},{"text":" "},{"text":"two"}]}]}}}`))
	})
	res, err := e.Recognize(context.Background(), ocr.Input{Image: pngMagic})
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", res.Text)
}

func TestRecognizeRefreshesTokenOn401(t *testing.T) {
	var calls int32
	e, iamCalls := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer tok2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"fullText":"ok"}}}`))
	})
	res, err := e.Recognize(context.Background(), ocr.Input{Image: pngMagic})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, int32(2), atomic.LoadInt32(iamCalls))
}

func TestRecognizeErrors(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := e.Recognize(context.Background(), ocr.Input{Image: pngMagic})
	assert.ErrorContains(t, err, "yandex ocr 429")

	_, err = e.Recognize(context.Background(), ocr.Input{Image: []byte("GIF89a....")})
	assert.ErrorContains(t, err, "unsupported image type")

	_, err = New("oauth", "").Recognize(context.Background(), ocr.Input{Image: pngMagic})
	assert.ErrorContains(t, err, "YC_FOLDER_ID")
}

func TestRecognizeSendsGIFAsPNG(t *testing.T) {
	var got request
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":{"textAnnotation":{"fullText":"gif text"}}}`))
	})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewGray(image.Rect(0, 0, 10, 10)), nil))

	res, err := e.Recognize(context.Background(), ocr.Input{Image: buf.Bytes(), MIME: "image/gif"})
	require.NoError(t, err)
	assert.Equal(t, "gif text", res.Text)
	assert.Equal(t, "PNG", got.MimeType)
	raw, err := base64.StdEncoding.DecodeString(got.Content)
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
}

func TestLanguageCodes(t *testing.T) {
	assert.Equal(t, []string{"*"}, languageCodes(nil))
	assert.Equal(t, []string{"*"}, languageCodes([]string{" "}))
	assert.Equal(t, []string{"en", "ja"}, languageCodes([]string{"ENG", "ja"}))
}
