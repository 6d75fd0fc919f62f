package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords_LowercasesAndSplits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"prose", "How does JSON migration work?", []string{"how", "does", "json", "migration", "work"}},
		{"punctuation stripped", "rate-limit: 429!", []string{"rate", "limit", "429"}},
		{"contraction kept whole", "don't stop", []string{"don't", "stop"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"get_user_by_id", []string{"get", "user", "by", "id"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"plain", []string{"plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIdentifier(tt.input))
		})
	}
}

func TestNewCounter_SelectsWordBackend(t *testing.T) {
	// Given: the default provider list
	counter := NewCounter()

	// Then: the word counter is selected
	assert.Equal(t, "word", counter.Name())

	// And: counting splits identifiers into subwords
	assert.Equal(t, 4, counter.Count("getUserById"))
	assert.Equal(t, 3, counter.Count("plain text here"))
}

func TestCharEstimate_UsesDivisor(t *testing.T) {
	counter := CharEstimate()
	assert.Equal(t, "chars", counter.Name())

	text := strings.Repeat("a", 55)
	assert.Equal(t, 10, counter.Count(text))
	assert.Equal(t, 0, counter.Count(""))
}
