package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-to-text/api/internal/convert"
	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/store"
	"image-to-text/api/internal/textcheck"
	"image-to-text/api/internal/util"
)

type stubEngine struct {
	text string
	conf *float64
	err  error
	dl   time.Time
}

func (s *stubEngine) Name() string     { return "stub" }
func (s *stubEngine) GetModel() string { return "stub-1" }
func (s *stubEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	s.dl, _ = ctx.Deadline()
	return ocr.Result{Text: s.text, Confidence: s.conf}, s.err
}

type stubHistory struct {
	limit int
	rows  []store.Conversion
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]store.Conversion, error) {
	s.limit = limit
	return s.rows, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))))
	return buf.Bytes()
}

func newHandle(eng *stubEngine) *Handle {
	reg := ocr.NewEngines()
	reg.Register(eng)
	return New(convert.NewService(reg, textcheck.DefaultPolicy(), nil), nil)
}

func postJSON(h http.HandlerFunc, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/convert", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestConvertOversizedDimensions(t *testing.T) {
	eng := &stubEngine{text: "never", conf: ocr.Confidence(88)}
	h := newHandle(eng)
	h.svc.MaxPixels = 2

	body, _ := json.Marshal(ConvertRequest{Image: util.MakeDataURL("image/png", pngBytes(t))})
	rec := postJSON(h.Convert, string(body), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "dimensions")
	assert.True(t, eng.dl.IsZero())
}

func TestConvertAccepted(t *testing.T) {
	eng := &stubEngine{text: "What time is the meeting?", conf: ocr.Confidence(88)}
	h := newHandle(eng)

	body, _ := json.Marshal(ConvertRequest{Image: util.MakeDataURL("image/png", pngBytes(t))})
	start := time.Now()
	rec := postJSON(h.Convert, string(body), map[string]string{"X-Request-Timeout": "7"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out convert.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Accepted)
	assert.Equal(t, "What time is the meeting?", out.Text)
	assert.Equal(t, "stub", out.Engine)
	assert.WithinDuration(t, start.Add(7*time.Second), eng.dl, 2*time.Second)
}

func TestConvertRejected(t *testing.T) {
	h := newHandle(&stubEngine{text: "~~ ## %%", conf: ocr.Confidence(99)})
	body, _ := json.Marshal(ConvertRequest{Image: util.MakeDataURL("image/png", pngBytes(t))})
	rec := postJSON(h.Convert, string(body), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out convert.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Accepted)
	assert.Empty(t, out.Text)
	assert.Equal(t, convert.NoTextMessage, out.Message)
}

func TestConvertBadRequests(t *testing.T) {
	h := newHandle(&stubEngine{})

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"bad json", "{", http.StatusBadRequest, "bad json"},
		{"missing image", `{}`, http.StatusBadRequest, "image is required"},
		{"not a data url", `{"image":"aGVsbG8="}`, http.StatusBadRequest, "Invalid image format"},
		{"unknown engine", `{"image":"` + util.MakeDataURL("image/png", pngBytes(t)) + `","engine":"nope"}`, http.StatusBadRequest, "unknown engine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(h.Convert, tt.body, nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.msg)
		})
	}
}

func TestConvertBackendFailure(t *testing.T) {
	h := newHandle(&stubEngine{err: errors.New("googleapi: Error 403: PERMISSION_DENIED")})
	body, _ := json.Marshal(ConvertRequest{Image: util.MakeDataURL("image/png", pngBytes(t))})
	rec := postJSON(h.Convert, string(body), nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, ocr.UserMessage(errors.New("PERMISSION_DENIED")), e.Error)
}

func TestConvertBodyLimit(t *testing.T) {
	h := newHandle(&stubEngine{})
	h.MaxBodyBytes = 64
	rec := postJSON(h.Convert, `{"image":"`+strings.Repeat("A", 200)+`"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func multipartBody(t *testing.T, field, ctype string, data []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="x"`)
	hdr.Set("Content-Type", ctype)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write(data)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	h := newHandle(&stubEngine{text: "Receipt total 12.50 for lunch", conf: ocr.Confidence(75)})

	body, ct := multipartBody(t, "file", "image/png", pngBytes(t), map[string]string{"languages": "eng"})
	req := httptest.NewRequest(http.MethodPost, "/v1/convert/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out convert.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Accepted)
}

func TestUploadRejectsNonImages(t *testing.T) {
	h := newHandle(&stubEngine{})

	body, ct := multipartBody(t, "file", "text/plain", []byte("hello"), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/convert/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please select an image file")

	body, ct = multipartBody(t, "other", "image/png", pngBytes(t), nil)
	req = httptest.NewRequest(http.MethodPost, "/v1/convert/upload", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestConversions(t *testing.T) {
	h := newHandle(&stubEngine{})

	rec := httptest.NewRecorder()
	h.Conversions(rec, httptest.NewRequest(http.MethodGet, "/v1/conversions", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	hist := &stubHistory{rows: []store.Conversion{{Engine: "stub", Accepted: true, Text: "hi"}}}
	h.History = hist
	rec = httptest.NewRecorder()
	h.Conversions(rec, httptest.NewRequest(http.MethodGet, "/v1/conversions?limit=5000", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, hist.limit)

	var rows []store.Conversion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "hi", rows[0].Text)
}

func TestHealthz(t *testing.T) {
	h := newHandle(&stubEngine{})
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.Ping = func(context.Context) error { return errors.New("conn refused") }
	rec = httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestTimeout(t *testing.T) {
	h := newHandle(&stubEngine{})
	req := httptest.NewRequest(http.MethodPost, "/v1/convert?timeoutSec=12", nil)
	assert.Equal(t, 12*time.Second, h.requestTimeout(req))

	req.Header.Set("X-Request-Timeout", "3")
	assert.Equal(t, 3*time.Second, h.requestTimeout(req))

	req = httptest.NewRequest(http.MethodPost, "/v1/convert?timeoutSec=-1", nil)
	assert.Equal(t, 180*time.Second, h.requestTimeout(req))
}
