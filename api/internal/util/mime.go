package util

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strings"
)

// ErrInvalidImageFormat is returned for anything that is not a base64 image data URI.
var ErrInvalidImageFormat = errors.New("invalid image format")

var imageDataURLRe = regexp.MustCompile(`^data:(image/\w+);base64,(.+)$`)

// ParseImageDataURL splits data:image/<type>;base64,<payload> into the MIME
// type and decoded bytes.
func ParseImageDataURL(s string) (string, []byte, error) {
	m := imageDataURLRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", nil, ErrInvalidImageFormat
	}
	data, err := decodeBase64(m[2])
	if err != nil || len(data) == 0 {
		return "", nil, ErrInvalidImageFormat
	}
	return m[1], data, nil
}

// Standard base64 first, then URL-safe and unpadded variants.
func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

// MakeDataURL is the inverse of ParseImageDataURL.
func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	return http.DetectContentType(b)
}

// SniffMimeForOCR returns the short format names some OCR APIs expect.
func SniffMimeForOCR(b []byte) string {
	switch SniffMimeHTTP(b) {
	case "image/jpeg":
		return "JPEG"
	case "image/png":
		return "PNG"
	case "application/pdf":
		return "PDF"
	}
	return ""
}

// PickMIME prefers the explicit type, then a hint (e.g. from a data URI),
// then sniffs the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		return SniffMimeHTTP(data)
	}
	return "image/jpeg"
}

// IsImageMIME reports whether mime names an image/* type.
func IsImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
