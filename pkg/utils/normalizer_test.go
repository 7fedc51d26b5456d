package utils_test

import (
	"testing"

	"github.com/robalyx/retract/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestTextNormalizer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		want     string
		contains string
		hasMatch bool
	}{
		{name: "empty string", input: "", want: "", contains: "test", hasMatch: false},
		{name: "basic string", input: "Hello World", want: "hello world", contains: "hello", hasMatch: true},
		{name: "string with diacritics", input: "héllo wörld", want: "hello world", contains: "world", hasMatch: true},
		{name: "mixed case with spaces", input: "HéLLo   WöRLD", want: "hello world", contains: "HELLO", hasMatch: true},
		{name: "no match in string", input: "hello world", want: "hello world", contains: "goodbye", hasMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := utils.NewTextNormalizer()
			assert.Equal(t, tt.want, n.Normalize(tt.input))
			assert.Equal(t, tt.hasMatch, n.Contains(tt.input, tt.contains))
		})
	}
}

func TestTextNormalizerWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "punctuation is dropped", input: "How do I fix this?!", want: []string{"how", "do", "i", "fix", "this"}},
		{name: "apostrophes kept", input: "Don't stop", want: []string{"don't", "stop"}},
		{name: "accents folded", input: "Café résumé", want: []string{"cafe", "resume"}},
		{name: "empty input", input: "   ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, utils.NewTextNormalizer().Words(tt.input))
		})
	}
}
