// Package textcheck cleans recognised text and decides whether it is worth
// showing to the user. Everything here is pure and safe for concurrent use.
package textcheck

import (
	"fmt"
	"strings"
)

// Substitution rewrites one glyph that recognisers commonly confuse.
type Substitution struct {
	From rune
	To   rune
}

// DefaultSubstitutions is the glyph correction table, applied in order.
// It trades byte fidelity for readability: real "0" and "5" digits are
// rewritten too. "@", "[" and "|" never survive the character filter, so
// their rules only fire for policies that widen the filter in the future.
var DefaultSubstitutions = []Substitution{
	{From: '@', To: 'a'},
	{From: '!', To: 'i'},
	{From: '[', To: 'l'},
	{From: '|', To: 'l'},
	{From: '0', To: 'o'},
	{From: '5', To: 's'},
}

const (
	SubstitutionsDefault = "default"
	SubstitutionsOff     = "off"
)

// Policy holds every tunable of the cleaner and the acceptance gate.
type Policy struct {
	// MinScore is the exclusive lower bound for Score.
	MinScore float64
	// MinConfidence is the exclusive lower bound for backend confidence.
	MinConfidence float64
	// MinLength is the minimum rune count of the cleaned text; values below 1
	// are treated as 1.
	MinLength int
	// NeutralConfidence stands in for backends that report no confidence.
	NeutralConfidence float64
	// Substitutions are applied by Normalize in order. Nil disables rewriting.
	Substitutions []Substitution
}

// DefaultPolicy returns the empirically chosen defaults.
func DefaultPolicy() Policy {
	return Policy{
		MinScore:          20,
		MinConfidence:     30,
		MinLength:         1,
		NeutralConfidence: 50,
		Substitutions:     DefaultSubstitutions,
	}
}

// ParseSubstitutions resolves a substitution table by name.
func ParseSubstitutions(name string) ([]Substitution, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SubstitutionsDefault:
		return DefaultSubstitutions, nil
	case SubstitutionsOff, "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown substitution table %q (use %q or %q)", name, SubstitutionsDefault, SubstitutionsOff)
	}
}

func (p Policy) substitute(s string) string {
	for _, sub := range p.Substitutions {
		s = strings.ReplaceAll(s, string(sub.From), string(sub.To))
	}
	return s
}
