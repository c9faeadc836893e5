// Package imageprep decodes uploaded images and shrinks the ones that are
// too large to send to a recognition backend.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels caps width*height before downscaling.
const DefaultMaxPixels = 18_000_000

// ErrTooLarge is returned when the declared dimensions exceed the decode ceiling.
var ErrTooLarge = errors.New("image dimensions too large")

// DecodeCeiling is the largest width*height that is decoded at all for a
// given downscale limit.
func DecodeCeiling(maxPixels int) int {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return 4 * maxPixels
}

// Prepared is an image ready for a backend.
type Prepared struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
	Scaled bool
}

// CheckSize reads only the image header and fails with ErrTooLarge when
// width*height exceeds ceiling.
func CheckSize(data []byte, ceiling int) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("decode image: empty bounds")
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(ceiling) {
		return image.Config{}, "", fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	return cfg, format, nil
}

// Decode checks the header against ceiling before decoding the pixels.
func Decode(data []byte, ceiling int) (image.Image, string, error) {
	if _, _, err := CheckSize(data, ceiling); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// passThrough lists the formats every backend accepts as sent.
var passThrough = map[string]bool{"jpeg": true, "png": true, "webp": true}

// Prepare decodes data and, when it exceeds maxPixels, rescales it to fit
// and re-encodes it as JPEG. JPEG, PNG and WebP within the limit are
// returned as is; other formats are re-encoded as PNG. Anything above
// DecodeCeiling(maxPixels) is refused before decoding.
// maxPixels <= 0 means DefaultMaxPixels.
func Prepare(data []byte, maxPixels int) (Prepared, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	img, format, err := Decode(data, DecodeCeiling(maxPixels))
	if err != nil {
		return Prepared{}, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Prepared{}, fmt.Errorf("decode image: empty bounds")
	}
	if w*h <= maxPixels {
		if passThrough[format] {
			return Prepared{Data: data, MIME: "image/" + format, Width: w, Height: h}, nil
		}
		var out bytes.Buffer
		if err := png.Encode(&out, img); err != nil {
			return Prepared{}, fmt.Errorf("encode png: %w", err)
		}
		return Prepared{Data: out.Bytes(), MIME: "image/png", Width: w, Height: h}, nil
	}

	scale := math.Sqrt(float64(maxPixels) / float64(w*h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90}); err != nil {
		return Prepared{}, fmt.Errorf("encode scaled image: %w", err)
	}
	return Prepared{Data: out.Bytes(), MIME: "image/jpeg", Width: newW, Height: newH, Scaled: true}, nil
}

// ToPNG re-encodes any decodable image as PNG. PNG input is returned unchanged.
func ToPNG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if format == "png" {
		return data, nil
	}
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}
