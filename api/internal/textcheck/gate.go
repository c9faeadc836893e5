package textcheck

import "unicode/utf8"

// Reason explains a Verdict.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonLowConfidence Reason = "low_confidence"
	ReasonNotMeaningful Reason = "not_meaningful"
)

// Verdict is the outcome of the acceptance gate. Text is empty unless the
// verdict is accepted.
type Verdict struct {
	Text     string  `json:"text"`
	Accepted bool    `json:"accepted"`
	Reason   Reason  `json:"reason"`
	Score    float64 `json:"score"`
}

// Validate normalises raw text and gates it with the default policy.
func Validate(raw string, confidence float64) Verdict {
	return DefaultPolicy().Validate(raw, confidence)
}

// Validate normalises raw text and gates it.
func (p Policy) Validate(raw string, confidence float64) Verdict {
	return p.Gate(p.Normalize(raw), confidence)
}

// Gate decides whether already cleaned text may be shown. A NaN confidence
// never passes.
func (p Policy) Gate(cleaned string, confidence float64) Verdict {
	score := Score(cleaned)
	if !IsMeaningful(cleaned) {
		return Verdict{Reason: ReasonNotMeaningful, Score: score}
	}
	minLen := max(p.MinLength, 1)
	if score > p.MinScore && confidence > p.MinConfidence && utf8.RuneCountInString(cleaned) >= minLen {
		return Verdict{Text: cleaned, Accepted: true, Reason: ReasonOK, Score: score}
	}
	return Verdict{Reason: ReasonLowConfidence, Score: score}
}
