package textcheck

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}{2,}`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)
)

// commonWords are matched as case-insensitive substrings, not whole words.
var commonWords = []string{
	"what", "when", "where", "why", "how", "who",
	"the", "and", "for", "are", "but", "not",
	"this", "that", "with", "have", "from", "they",
}

// Signals are the lexical features the classifier looks at.
type Signals struct {
	Words          int
	Sentences      int
	HasQuestion    bool
	HasDigits      bool
	HasCommonWords bool
}

// Analyze extracts Signals from cleaned text.
func Analyze(cleaned string) Signals {
	lower := strings.ToLower(cleaned)
	s := Signals{
		Words:       len(wordRe.FindAllString(cleaned, -1)),
		Sentences:   len(sentenceRe.FindAllString(cleaned, -1)),
		HasQuestion: strings.ContainsRune(cleaned, '?'),
		HasDigits:   strings.IndexFunc(cleaned, unicode.IsDigit) >= 0,
	}
	for _, w := range commonWords {
		if strings.Contains(lower, w) {
			s.HasCommonWords = true
			break
		}
	}
	return s
}

// Meaningful requires at least two co-occurring signals.
func (s Signals) Meaningful() bool {
	hasRealWords := s.Words >= 2
	hasCompleteSentences := s.Sentences >= 1
	hasMeaningfulNumbers := s.HasDigits && s.Words >= 1

	switch {
	case hasRealWords && s.HasCommonWords:
		return true
	case hasCompleteSentences && s.Words >= 3:
		return true
	case s.HasQuestion && s.Words >= 2:
		return true
	case hasMeaningfulNumbers && s.Words >= 1:
		return true
	}
	return false
}

// IsMeaningful reports whether cleaned looks like real text rather than noise.
func IsMeaningful(cleaned string) bool {
	return Analyze(cleaned).Meaningful()
}
