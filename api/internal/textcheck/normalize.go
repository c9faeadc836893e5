package textcheck

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// keptPunct is the punctuation that survives the character filter.
const keptPunct = `.,!?;:'"()-`

func isKept(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(keptPunct, r)
}

// isMark reports whether r is neither alphanumeric nor whitespace.
func isMark(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}

// Normalize cleans raw text with the default policy.
func Normalize(raw string) string {
	return DefaultPolicy().Normalize(raw)
}

// Normalize filters disallowed characters, drops lines made only of stray
// marks, applies the substitution table and collapses whitespace.
func (p Policy) Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	filtered := strings.Map(func(r rune) rune {
		if isKept(r) {
			return r
		}
		return -1
	}, raw)

	lines := strings.Split(filtered, "\n")
	kept := lines[:0]
	for _, line := range lines {
		content := strings.TrimSpace(line)
		if isStrayMarks(content) || isMarkRun(content) {
			continue
		}
		kept = append(kept, line)
	}

	s := p.substitute(strings.Join(kept, "\n"))
	return strings.Join(strings.Fields(s), " ")
}

// isStrayMarks matches a line of one or two marks, e.g. "-" or "'.".
func isStrayMarks(content string) bool {
	n := utf8.RuneCountInString(content)
	return n >= 1 && n <= 2 && onlyMarks(content)
}

// isMarkRun matches a line of three or more marks, e.g. "-----".
func isMarkRun(content string) bool {
	return utf8.RuneCountInString(content) >= 3 && onlyMarks(content)
}

func onlyMarks(s string) bool {
	for _, r := range s {
		if !isMark(r) {
			return false
		}
	}
	return true
}
