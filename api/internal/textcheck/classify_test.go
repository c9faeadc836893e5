package textcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	s := Analyze("Hello world. Bye now! 42")
	assert.Equal(t, 4, s.Words)
	assert.Equal(t, 2, s.Sentences)
	assert.False(t, s.HasQuestion)
	assert.True(t, s.HasDigits)
	assert.False(t, s.HasCommonWords)
}

func TestIsMeaningful(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "empty", in: "", want: false},
		{name: "question with options", in: "What is the capital of France? A. Paris B. London", want: true},
		{name: "real words with stop word", in: "the cat", want: true},
		{name: "sentence of three words", in: "Bonjour mon ami.", want: true},
		{name: "two word question", in: "Zyx qwv?", want: true},
		{name: "number with a word", in: "Room 12", want: true},
		{name: "junk tokens", in: "teh qick", want: false},
		{name: "single word", in: "Paris", want: false},
		{name: "digits only", in: "12 34", want: false},
		{name: "single letters", in: "x y z.", want: false},
		{name: "short sentence", in: "Qx vz.", want: false},
		{name: "lone question mark word", in: "Zyx?", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMeaningful(tt.in))
		})
	}
}

func TestCommonWordsMatchSubstrings(t *testing.T) {
	// "another" contains "the", which is enough.
	assert.True(t, Analyze("another thing").HasCommonWords)
	assert.True(t, IsMeaningful("ANOTHER xq"))
	assert.False(t, Analyze("teh qick").HasCommonWords)
}
