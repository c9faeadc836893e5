package handle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"image-to-text/api/internal/convert"
	"image-to-text/api/internal/util"
)

type ConvertRequest struct {
	Image     string   `json:"image"` // data:image/<type>;base64,<payload>
	Engine    string   `json:"engine,omitempty"`
	Model     string   `json:"model,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// Convert handles images captured by the browser camera or pasted as data URLs.
func (h *Handle) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "image is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout(r))
	defer cancel()

	out, err := h.svc.Convert(ctx, convert.Request{
		DataURL:   strings.TrimSpace(req.Image),
		Engine:    req.Engine,
		Model:     req.Model,
		Languages: req.Languages,
		Source:    convert.SourceWeb,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Upload handles multipart uploads from the file picker. The image is
// read from the "file" field; engine, model and languages are optional
// form fields.
func (h *Handle) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	if err := r.ParseMultipartForm(h.MaxBodyBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad multipart form: " + err.Error()})
		return
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "file is required"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.writeError(w, fmt.Errorf("read upload: %w", err))
		return
	}
	mime := util.PickMIME("", "", data)
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		mime = ct
	}
	if !util.IsImageMIME(mime) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Please select an image file"})
		return
	}

	var langs []string
	if v := strings.TrimSpace(r.FormValue("languages")); v != "" {
		langs = strings.Split(v, ",")
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout(r))
	defer cancel()

	out, err := h.svc.Convert(ctx, convert.Request{
		Image:     data,
		MIME:      mime,
		Engine:    r.FormValue("engine"),
		Model:     r.FormValue("model"),
		Languages: langs,
		Source:    convert.SourceUpload,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
