// Package tesseract runs recognition locally through libtesseract.
// The real backend is compiled only with the "tesseract" build tag.
package tesseract

import (
	"strings"
)

const asciiWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 .,!?;:'\"()-"

type Engine struct {
	Languages []string
}

func New(langs []string) *Engine {
	clean := make([]string, 0, len(langs))
	for _, l := range langs {
		if l = strings.TrimSpace(l); l != "" {
			clean = append(clean, l)
		}
	}
	if len(clean) == 0 {
		clean = []string{"eng"}
	}
	return &Engine{Languages: clean}
}

func (e *Engine) Name() string     { return "tesseract" }
func (e *Engine) GetModel() string { return strings.Join(e.Languages, "+") }

func (e *Engine) languages(override []string) []string {
	if len(override) > 0 {
		return override
	}
	return e.Languages
}

// whitelist limits output to the characters the text cleaner keeps. It only
// applies to English, other scripts would lose their letters.
func whitelist(langs []string) string {
	for _, l := range langs {
		if l != "eng" {
			return ""
		}
	}
	return asciiWhitelist
}

// meanConfidence averages per-word confidences, already on a 0..100 scale.
func meanConfidence(confs []float64) *float64 {
	if len(confs) == 0 {
		return nil
	}
	var sum float64
	for _, c := range confs {
		sum += c
	}
	v := sum / float64(len(confs))
	return &v
}
