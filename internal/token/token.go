// Package token provides query/content tokenization and token counting.
// Counting backends are capability providers selected once at startup;
// the character estimate is the documented fallback when no subword
// counter is available, flagged but never an error.
package token

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
)

// wordRegex matches word tokens, keeping underscores and apostrophes so
// identifiers and contractions survive as single tokens.
var wordRegex = regexp.MustCompile(`[a-zA-Z0-9_']+`)

// Words splits text into lower-cased word tokens using a word-boundary
// regex. Deterministic and dependency-free; never fails.
func Words(text string) []string {
	matches := wordRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, strings.ToLower(strings.Trim(m, "'")))
	}
	return tokens
}

// SplitIdentifier splits camelCase, PascalCase, and snake_case tokens
// so file names and field names match prose vocabulary.
func SplitIdentifier(tok string) []string {
	if strings.Contains(tok, "_") {
		var out []string
		for _, part := range strings.Split(tok, "_") {
			if part != "" {
				out = append(out, splitCamel(part)...)
			}
		}
		return out
	}
	return splitCamel(tok)
}

func splitCamel(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	var cur strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if cur.Len() > 0 {
					out = append(out, cur.String())
					cur.Reset()
				}
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// Counter estimates token counts for chunk sizing decisions. Counts are
// advisory, not guaranteed exact.
type Counter interface {
	// Count returns the estimated token count for text.
	Count(text string) int

	// Name identifies the counting backend.
	Name() string
}

// CharsPerToken is the character-estimate divisor used by the fallback
// counter. Empirically close to subword tokenizers on English prose.
const CharsPerToken = 5.5

// wordCounter counts subword-split word tokens.
type wordCounter struct{}

func (wordCounter) Name() string { return "word" }

func (wordCounter) Count(text string) int {
	n := 0
	for _, w := range wordRegex.FindAllString(text, -1) {
		parts := SplitIdentifier(w)
		if len(parts) == 0 {
			n++
			continue
		}
		n += len(parts)
	}
	return n
}

// charCounter estimates tokens from character length.
type charCounter struct{}

func (charCounter) Name() string { return "chars" }

func (charCounter) Count(text string) int {
	return int(float64(len(text)) / CharsPerToken)
}

// counterProvider pairs a counter with an availability probe.
type counterProvider struct {
	counter   Counter
	available func() bool
}

// providers is the ordered capability list. Selection happens once in
// NewCounter; there is no per-call fallback branching.
var providers = []counterProvider{
	{counter: wordCounter{}, available: func() bool { return true }},
	{counter: charCounter{}, available: func() bool { return true }},
}

// NewCounter selects the first available counting backend. When only
// the character estimate is usable, the degradation is logged once.
func NewCounter() Counter {
	for i, p := range providers {
		if p.available() {
			if i > 0 {
				slog.Warn("token counter degraded",
					slog.String("backend", p.counter.Name()))
			}
			return p.counter
		}
	}
	// Unreachable: charCounter is always available.
	return charCounter{}
}

// CharEstimate exposes the fallback estimator directly, for callers that
// need a counter with no word-splitting cost.
func CharEstimate() Counter { return charCounter{} }
