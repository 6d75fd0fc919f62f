// Package chunker splits raw document text into token-bounded,
// heading-aware segments. Heading boundaries are preferred over fixed
// windows; only oversized segments fall through to the sliding-window
// separator cascade.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openkb/ragkit/internal/doc"
	"github.com/openkb/ragkit/internal/token"
)

// Sizing defaults, in tokens.
const (
	DefaultTargetTokens  = 800
	DefaultOverlapTokens = 200
	DefaultMinTokens     = 150

	// mergeCeiling bounds undersized-segment merging: a merge is allowed
	// only while the combined segment stays below 1.5x target.
	mergeCeiling = 1.5

	// splitThreshold marks a segment as oversized at 1.3x target.
	splitThreshold = 1.3
)

// Config configures the chunker. Zero values take the package defaults.
type Config struct {
	TargetTokens  int
	OverlapTokens int
	MinTokens     int
}

// DefaultConfig returns the standard chunk sizing.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  DefaultTargetTokens,
		OverlapTokens: DefaultOverlapTokens,
		MinTokens:     DefaultMinTokens,
	}
}

// Chunker splits documents using a token counter selected at startup.
type Chunker struct {
	cfg     Config
	counter token.Counter
}

// New creates a chunker, failing fast on invalid sizing. Thresholds are
// never silently clamped.
func New(cfg Config) (*Chunker, error) {
	if cfg.TargetTokens == 0 {
		cfg.TargetTokens = DefaultTargetTokens
	}
	if cfg.OverlapTokens == 0 {
		cfg.OverlapTokens = DefaultOverlapTokens
	}
	if cfg.MinTokens == 0 {
		cfg.MinTokens = DefaultMinTokens
	}
	if cfg.TargetTokens < 0 || cfg.OverlapTokens < 0 || cfg.MinTokens < 0 {
		return nil, fmt.Errorf("chunker: negative sizing (target=%d overlap=%d min=%d)",
			cfg.TargetTokens, cfg.OverlapTokens, cfg.MinTokens)
	}
	if cfg.OverlapTokens >= cfg.TargetTokens {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than target %d",
			cfg.OverlapTokens, cfg.TargetTokens)
	}
	if cfg.MinTokens >= cfg.TargetTokens {
		return nil, fmt.Errorf("chunker: min %d must be smaller than target %d",
			cfg.MinTokens, cfg.TargetTokens)
	}
	return &Chunker{cfg: cfg, counter: token.NewCounter()}, nil
}

// segment is a provisional heading-derived slice of the source text.
// Offsets are byte positions into the original document.
type segment struct {
	start int
	end   int
}

// Heading patterns: markdown #-prefixed and single-line HTML h1-h6.
var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)
	htmlHeading     = regexp.MustCompile(`(?i)^<h[1-6][^>]*>`)
)

// maxTitleLineLen bounds the "short title-case line ending in :" rule.
const maxTitleLineLen = 80

// isHeading reports whether a line starts a new section.
func isHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if markdownHeading.MatchString(trimmed) || htmlHeading.MatchString(trimmed) {
		return true
	}
	// Short title-case line ending in a colon, e.g. "Migration Steps:"
	if len(trimmed) > maxTitleLineLen || !strings.HasSuffix(trimmed, ":") {
		return false
	}
	words := strings.Fields(strings.TrimSuffix(trimmed, ":"))
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		r := rune(w[0])
		if r >= 'a' && r <= 'z' {
			return false
		}
	}
	return true
}

// Chunk splits text into sized chunks, inheriting meta onto every output
// chunk and attaching chunk_index, total_chunks, char_range, and
// token_count. Empty or whitespace-only input yields an empty list.
func (c *Chunker) Chunk(text string, meta doc.Metadata) []doc.Document {
	if strings.TrimSpace(text) == "" {
		return []doc.Document{}
	}

	segs := c.splitAtHeadings(text)
	segs = c.mergeUndersized(text, segs)

	// Expand oversized segments through the separator cascade.
	var final []segment
	limit := int(float64(c.cfg.TargetTokens) * splitThreshold)
	for _, s := range segs {
		if c.count(text[s.start:s.end]) > limit {
			final = append(final, c.slidingSplit(text, s)...)
		} else {
			final = append(final, s)
		}
	}

	// The cascade can strand a sub-minimum remainder ahead of an
	// oversized part. Merge those forward like heading segments so only
	// the trailing chunk may fall below the minimum.
	final = c.mergeUndersized(text, final)

	docs := make([]doc.Document, 0, len(final))
	for i, s := range final {
		content := strings.TrimSpace(text[s.start:s.end])
		if content == "" {
			continue
		}
		m := meta.Clone()
		m.ChunkIndex = i
		m.TotalChunks = len(final)
		m.CharRange = fmt.Sprintf("%d-%d", s.start, s.end)
		m.TokenCount = c.count(content)
		m.ChunkID = doc.NewChunkID(meta.DocID, content)
		docs = append(docs, doc.Document{Content: content, Meta: m})
	}

	// Re-stamp totals in case empty segments were dropped.
	if len(docs) != len(final) {
		for i := range docs {
			docs[i].Meta.ChunkIndex = i
			docs[i].Meta.TotalChunks = len(docs)
		}
	}
	return docs
}

func (c *Chunker) count(text string) int {
	return c.counter.Count(text)
}

// splitAtHeadings splits text at heading lines. Each segment begins with
// its heading line; a document with no headings is a single segment.
func (c *Chunker) splitAtHeadings(text string) []segment {
	var segs []segment
	start := 0
	offset := 0
	first := true

	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var next int
		var line string
		if lineEnd < 0 {
			line = text[offset:]
			next = len(text)
		} else {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		}

		if isHeading(line) && !first && offset > start {
			segs = append(segs, segment{start: start, end: offset})
			start = offset
		}
		if strings.TrimSpace(line) != "" {
			first = false
		}
		offset = next
	}
	if start < len(text) {
		segs = append(segs, segment{start: start, end: len(text)})
	}
	return segs
}

// mergeUndersized merges segments below the minimum token count into
// the following segment, provided the combination stays below 1.5x
// target. A trailing undersized segment is left as-is.
func (c *Chunker) mergeUndersized(text string, segs []segment) []segment {
	if len(segs) < 2 {
		return segs
	}
	ceiling := int(float64(c.cfg.TargetTokens) * mergeCeiling)

	var out []segment
	i := 0
	for i < len(segs) {
		cur := segs[i]
		for i+1 < len(segs) && c.count(text[cur.start:cur.end]) < c.cfg.MinTokens {
			next := segs[i+1]
			combined := c.count(text[cur.start:next.end])
			if combined >= ceiling {
				break
			}
			cur = segment{start: cur.start, end: next.end}
			i++
		}
		out = append(out, cur)
		i++
	}
	return out
}

// separators is the split cascade: paragraph, line, sentence-ending
// punctuation, word, then hard character split.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// slidingSplit splits an oversized segment, applying the configured
// overlap (in characters) between consecutive windows. Offsets remain
// relative to the original document text.
func (c *Chunker) slidingSplit(text string, s segment) []segment {
	maxChars := int(float64(c.cfg.TargetTokens) * token.CharsPerToken)
	overlapChars := int(float64(c.cfg.OverlapTokens) * token.CharsPerToken)

	spans := splitRecursive(text[s.start:s.end], separators, maxChars)

	out := make([]segment, 0, len(spans))
	for i, sp := range spans {
		start := s.start + sp.start
		if i > 0 && overlapChars > 0 {
			start -= overlapChars
			if start < s.start {
				start = s.start
			}
		}
		out = append(out, segment{start: start, end: s.start + sp.end})
	}
	return out
}

// span is a half-open range relative to the text handed to splitRecursive.
type span struct {
	start int
	end   int
}

// splitRecursive splits text into spans no longer than maxChars using
// the separator cascade. Pieces are packed greedily; a piece that still
// exceeds the budget recurses with the next separator.
func splitRecursive(text string, seps []string, maxChars int) []span {
	if len(text) <= maxChars {
		return []span{{0, len(text)}}
	}
	sep := seps[0]
	if sep == "" {
		// Hard split at the character budget.
		var out []span
		for start := 0; start < len(text); start += maxChars {
			end := start + maxChars
			if end > len(text) {
				end = len(text)
			}
			out = append(out, span{start, end})
		}
		return out
	}

	// Locate parts between separators, separator included in the
	// preceding part so offsets stay contiguous.
	var parts []span
	start := 0
	for {
		idx := strings.Index(text[start:], sep)
		if idx < 0 {
			parts = append(parts, span{start, len(text)})
			break
		}
		end := start + idx + len(sep)
		parts = append(parts, span{start, end})
		start = end
	}
	if len(parts) == 1 {
		// Separator not present; try the next one.
		return splitRecursive(text, seps[1:], maxChars)
	}

	var out []span
	cur := span{parts[0].start, parts[0].start}
	flush := func() {
		if cur.end > cur.start {
			out = append(out, cur)
		}
	}
	for _, p := range parts {
		plen := p.end - p.start
		if plen > maxChars {
			flush()
			// Recurse into the oversized part with finer separators.
			for _, sub := range splitRecursive(text[p.start:p.end], seps[1:], maxChars) {
				out = append(out, span{p.start + sub.start, p.start + sub.end})
			}
			cur = span{p.end, p.end}
			continue
		}
		if cur.end-cur.start+plen > maxChars {
			flush()
			cur = span{p.start, p.start}
		}
		cur.end = p.end
	}
	flush()
	return out
}
