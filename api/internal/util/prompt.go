package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPrompt returns <PROMPT_DIR>/<provider>/<name>.txt when it exists and is
// non-empty, otherwise fallback. PROMPT_DIR unset means fallback.
func LoadPrompt(name, provider, fallback string) string {
	base := strings.TrimSpace(os.Getenv("PROMPT_DIR"))
	if base == "" || provider == "" {
		return fallback
	}
	p := filepath.Join(base, strings.ToLower(provider), fmt.Sprintf("%s.txt", name))
	if b, err := os.ReadFile(p); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s
		}
	}
	return fallback
}
