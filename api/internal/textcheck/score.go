package textcheck

import (
	"math"
	"strings"
	"unicode"
)

// scoredPunct is not penalised by Score. Parentheses are kept by Normalize
// but still count as noise here.
const scoredPunct = `.,!?;:'"-`

// Score rates cleaned text by its composition, independently of what the
// backend claims. The result is never negative.
func Score(cleaned string) float64 {
	words := len(wordRe.FindAllString(cleaned, -1))

	var total, letters, noise int
	for _, r := range cleaned {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r), strings.ContainsRune(scoredPunct, r):
		default:
			noise++
		}
	}

	denom := float64(max(total, 1))
	letterRatio := float64(letters) / denom
	noiseRatio := float64(noise) / denom

	return math.Max(0, float64(words)*10+letterRatio*50-noiseRatio*100)
}
