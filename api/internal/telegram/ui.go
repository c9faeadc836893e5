package telegram

import (
	"strings"

	"image-to-text/api/internal/convert"
	"image-to-text/api/internal/util"
)

const maxReplyRunes = 3900

const (
	startText = "Send me a photo or an image file and I will reply with the text I can read on it.\n" +
		"Several photos sent as an album are stitched into one page.\n" +
		"Commands: /health, /engine"
	busyText     = "⏳ Still working on your previous image, please wait."
	acceptedText = "Image received, converting…"
)

func resultText(out convert.Outcome) string {
	if !out.Accepted {
		return "🔍 " + convert.NoTextMessage
	}
	return "📝 Recognized text:\n\n" + util.Truncate(out.Text, maxReplyRunes)
}

func engineUsage(current string, available []string) string {
	var b strings.Builder
	b.WriteString("Current engine: ")
	b.WriteString(current)
	b.WriteString("\nUsage:\n")
	for _, n := range available {
		b.WriteString("/engine ")
		b.WriteString(n)
		b.WriteString(" [model]\n")
	}
	b.WriteString("/engine reset")
	return b.String()
}
