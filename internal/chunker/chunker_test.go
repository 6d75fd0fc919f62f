package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkb/ragkit/internal/doc"
)

// testConfig keeps chunks small enough to exercise merge/split logic
// with short fixtures.
func testConfig() Config {
	return Config{TargetTokens: 40, OverlapTokens: 8, MinTokens: 10}
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("alpha%d", i)
	}
	return strings.Join(parts, " ")
}

func TestNew_RejectsInvalidSizing(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative target", Config{TargetTokens: -1, OverlapTokens: 1, MinTokens: 1}},
		{"overlap at target", Config{TargetTokens: 40, OverlapTokens: 40, MinTokens: 10}},
		{"min at target", Config{TargetTokens: 40, OverlapTokens: 8, MinTokens: 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c, err := New(testConfig())
	require.NoError(t, err)

	assert.Empty(t, c.Chunk("", doc.Metadata{}))
	assert.Empty(t, c.Chunk("   \n\t\n  ", doc.Metadata{}))
}

func TestChunk_SingleHeadingDocument_OneChunk(t *testing.T) {
	// Given: one appropriately sized section under one heading
	c, err := New(testConfig())
	require.NoError(t, err)
	text := "# Migration Guide\n" + words(25)

	// When: chunking
	chunks := c.Chunk(text, doc.Metadata{DocID: "guide"})

	// Then: the document survives as a single chunk equal to the input
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(text), chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Meta.ChunkIndex)
	assert.Equal(t, 1, chunks[0].Meta.TotalChunks)
}

func TestChunk_SplitsAtHeadings(t *testing.T) {
	// Given: two sections, each above the minimum size
	c, err := New(testConfig())
	require.NoError(t, err)
	text := "# First Section\n" + words(20) + "\n# Second Section\n" + words(20)

	// When: chunking
	chunks := c.Chunk(text, doc.Metadata{DocID: "guide"})

	// Then: each section is its own chunk, starting at its heading
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "# First Section"))
	assert.True(t, strings.HasPrefix(chunks[1].Content, "# Second Section"))
	assert.Equal(t, 2, chunks[0].Meta.TotalChunks)
	assert.Equal(t, 1, chunks[1].Meta.ChunkIndex)
}

func TestChunk_MergesUndersizedSections(t *testing.T) {
	// Given: three tiny sections, each below the minimum token count
	c, err := New(testConfig())
	require.NoError(t, err)
	text := "# One\n" + words(3) + "\n# Two\n" + words(3) + "\n# Three\n" + words(3)

	// When: chunking
	chunks := c.Chunk(text, doc.Metadata{DocID: "guide"})

	// Then: sections merge forward into a single chunk
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "# One")
	assert.Contains(t, chunks[0].Content, "# Three")
}

func TestChunk_SplitsOversizedSegment(t *testing.T) {
	// Given: a long unheaded document well past the split threshold
	cfg := testConfig()
	c, err := New(cfg)
	require.NoError(t, err)
	text := words(200)

	// When: chunking
	chunks := c.Chunk(text, doc.Metadata{DocID: "guide"})
	require.Greater(t, len(chunks), 1)

	// Then: every chunk except the last respects both token bounds
	limit := int(float64(cfg.TargetTokens) * 1.3)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, ch.Meta.TokenCount, limit,
			"chunk %d exceeds token ceiling", ch.Meta.ChunkIndex)
		assert.GreaterOrEqual(t, ch.Meta.TokenCount, cfg.MinTokens,
			"chunk %d below token minimum", ch.Meta.ChunkIndex)
	}
}

func TestChunk_ShortLeadBeforeLongBody_MeetsMinimum(t *testing.T) {
	// Given: a tiny lead paragraph followed by a body far past the split
	// threshold, so the cascade separates the lead at the paragraph break
	cfg := testConfig()
	c, err := New(cfg)
	require.NoError(t, err)
	text := "tiny intro words here\n\n" + words(200)

	// When: chunking
	chunks := c.Chunk(text, doc.Metadata{DocID: "guide"})
	require.Greater(t, len(chunks), 1)

	// Then: the lead is merged forward instead of surviving as an
	// undersized chunk
	assert.Contains(t, chunks[0].Content, "tiny intro words here")
	assert.Contains(t, chunks[0].Content, "alpha0")

	// And: every chunk except the last stays within the token bounds
	limit := int(float64(cfg.TargetTokens) * 1.3)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, ch.Meta.TokenCount, cfg.MinTokens,
			"chunk %d below token minimum", ch.Meta.ChunkIndex)
		assert.LessOrEqual(t, ch.Meta.TokenCount, limit,
			"chunk %d exceeds token ceiling", ch.Meta.ChunkIndex)
	}
}

func TestChunk_SlidingWindowsOverlap(t *testing.T) {
	// Given: an oversized document with a configured overlap
	c, err := New(testConfig())
	require.NoError(t, err)
	chunks := c.Chunk(words(200), doc.Metadata{DocID: "guide"})
	require.Greater(t, len(chunks), 1)

	// Then: each window starts before the previous one ends
	for i := 1; i < len(chunks); i++ {
		var prevStart, prevEnd, curStart, curEnd int
		_, err := fmt.Sscanf(chunks[i-1].Meta.CharRange, "%d-%d", &prevStart, &prevEnd)
		require.NoError(t, err)
		_, err = fmt.Sscanf(chunks[i].Meta.CharRange, "%d-%d", &curStart, &curEnd)
		require.NoError(t, err)
		assert.Less(t, curStart, prevEnd, "window %d does not overlap its predecessor", i)
	}
}

func TestChunk_CharRangeMatchesSource(t *testing.T) {
	// Given: a chunked document
	c, err := New(testConfig())
	require.NoError(t, err)
	text := "# First Section\n" + words(20) + "\n# Second Section\n" + words(20)
	chunks := c.Chunk(text, doc.Metadata{DocID: "guide"})

	// Then: char_range offsets slice the source back to the chunk content
	for _, ch := range chunks {
		var start, end int
		_, err := fmt.Sscanf(ch.Meta.CharRange, "%d-%d", &start, &end)
		require.NoError(t, err)
		assert.Equal(t, strings.TrimSpace(text[start:end]), ch.Content)
	}
}

func TestChunk_StampsInheritedMetadata(t *testing.T) {
	// Given: document-level metadata
	c, err := New(testConfig())
	require.NoError(t, err)
	meta := doc.Metadata{
		Source:     "guides/slack.md",
		SourceType: doc.SourceTypeFile,
		DocID:      "slack-guide",
		Tag:        "slack-migration",
	}

	// When: chunking
	chunks := c.Chunk("# Guide\n"+words(25), meta)
	require.Len(t, chunks, 1)

	// Then: chunk inherits document metadata and gains chunk fields
	m := chunks[0].Meta
	assert.Equal(t, "guides/slack.md", m.Source)
	assert.Equal(t, "slack-migration", m.Tag)
	assert.NotEmpty(t, m.ChunkID)
	assert.Greater(t, m.TokenCount, 0)
	assert.Equal(t, doc.NewChunkID("slack-guide", chunks[0].Content), m.ChunkID)
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"# Title", true},
		{"### Deep Title", true},
		{"<h2>Section</h2>", true},
		{"<H1 class=\"x\">Top</H1>", true},
		{"Migration Steps:", true},
		{"this is lowercase:", false},
		{strings.Repeat("Word ", 30) + ":", false},
		{"plain text line", false},
		{"", false},
		{"#hashtag not heading", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, isHeading(tt.line))
		})
	}
}
