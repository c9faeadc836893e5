package ocr

import (
	"context"
	"errors"
	"net"
	"strings"
)

// UserMessage turns a backend failure into a notice fit for end users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Recognition timed out. Please try again."
	}
	if errors.Is(err, context.Canceled) {
		return "Request was cancelled."
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return "Network error. Please check your internet connection."
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "api key") || strings.Contains(msg, "API_KEY"):
		return "API configuration error. Please check the recognition API key."
	case strings.Contains(lower, "quota") || strings.Contains(msg, "429"):
		return "API quota exceeded. Please check the recognition API usage."
	case strings.Contains(lower, "failed to fetch") || strings.Contains(lower, "network"):
		return "Network error. Please check your internet connection."
	case strings.Contains(msg, "403") || strings.Contains(msg, "PERMISSION_DENIED"):
		return "API permission denied. Please check the API key permissions."
	case strings.Contains(msg, "400") || strings.Contains(msg, "INVALID_ARGUMENT"):
		return "Invalid request. The image format may not be supported."
	}
	return "Processing error: " + msg
}
