// Package doc defines the retrievable unit of content (a document chunk)
// and its flat metadata model. Metadata values are restricted to scalar
// types so records serialize cleanly into the persistence layer.
package doc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// SourceType identifies the origin system of a document.
type SourceType string

const (
	SourceTypeEmail      SourceType = "email"
	SourceTypeSharePoint SourceType = "sharepoint"
	SourceTypeBlog       SourceType = "blog"
	SourceTypeTranscript SourceType = "transcript"
	SourceTypeFile       SourceType = "file"
)

// Metadata is the structured record attached to every chunk.
// Well-known fields are typed; source-specific extras go in Extra and
// must hold only string, int, float64, or bool values.
type Metadata struct {
	Source      string     // Origin path or URL
	SourceType  SourceType // email, sharepoint, blog, transcript, file
	Tag         string     // Domain tag (e.g., "slack-migration")
	Title       string     // Document or section title
	Filename    string
	FolderPath  string
	DocID       string // Parent document identifier
	ChunkID     string // Stable chunk identifier, assigned at creation
	ChunkIndex  int    // 0-based position within the parent document
	TotalChunks int
	CharRange   string // "start-end" offsets into the source text
	TokenCount  int    // Advisory, from the token counter

	// Duplicate-cluster bookkeeping, maintained by the deduplicator.
	RelevanceCount        int    // Starts at 1, +1 per merged duplicate
	OriginalSources       string // Comma-joined doc_ids of merged duplicates
	DuplicateSimilarities string // Comma-joined similarity scores

	// Extra holds source-specific fields. Scalar values only.
	Extra map[string]any
}

// Document is an immutable unit of retrievable text.
type Document struct {
	Content string
	Meta    Metadata
}

// ErrNestedMetadata reports a non-scalar metadata value.
type ErrNestedMetadata struct {
	Key string
}

func (e ErrNestedMetadata) Error() string {
	return fmt.Sprintf("metadata key %q holds a non-scalar value", e.Key)
}

// ScalarValue reports whether v is representable in the flat metadata model.
func ScalarValue(v any) bool {
	switch v.(type) {
	case string, int, int32, int64, float32, float64, bool:
		return true
	}
	return false
}

// Flatten produces the flat string-keyed mapping required by the storage
// layer. Zero-valued well-known fields are omitted. Returns an error if
// any Extra value is non-scalar; nil values are rejected, not propagated.
func (m *Metadata) Flatten() (map[string]any, error) {
	out := make(map[string]any, 16+len(m.Extra))

	putStr := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	putStr("source", m.Source)
	putStr("source_type", string(m.SourceType))
	putStr("tag", m.Tag)
	putStr("title", m.Title)
	putStr("filename", m.Filename)
	putStr("folder_path", m.FolderPath)
	putStr("doc_id", m.DocID)
	putStr("chunk_id", m.ChunkID)
	putStr("char_range", m.CharRange)
	putStr("original_sources", m.OriginalSources)
	putStr("duplicate_similarities", m.DuplicateSimilarities)

	if m.TotalChunks > 0 {
		out["chunk_index"] = m.ChunkIndex
		out["total_chunks"] = m.TotalChunks
	}
	if m.TokenCount > 0 {
		out["token_count"] = m.TokenCount
	}
	if m.RelevanceCount > 0 {
		out["relevance_count"] = m.RelevanceCount
	}

	for k, v := range m.Extra {
		if v == nil || !ScalarValue(v) {
			return nil, ErrNestedMetadata{Key: k}
		}
		out[k] = v
	}

	return out, nil
}

// Clone returns a deep copy of the metadata (Extra map included).
func (m *Metadata) Clone() Metadata {
	out := *m
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// SetExtra stores a source-specific field, rejecting non-scalar values.
func (m *Metadata) SetExtra(key string, val any) error {
	if val == nil || !ScalarValue(val) {
		return ErrNestedMetadata{Key: key}
	}
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[key] = val
	return nil
}

// SearchableText returns the metadata fields that participate in
// technical-term boosting: tag, title, filename, and folder path.
func (m *Metadata) SearchableText() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{m.Tag, m.Title, m.Filename, m.FolderPath} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// ExtraKeys returns the Extra keys in sorted order, for deterministic
// iteration during merges and serialization.
func (m *Metadata) ExtraKeys() []string {
	if len(m.Extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FingerprintPrefixLen is the number of leading content characters that
// participate in the identity fingerprint.
const FingerprintPrefixLen = 200

// Fingerprint returns a cheap identity hash over source plus the first
// FingerprintPrefixLen characters of content. Used to drop exact and
// near-exact repeats returned by overlapping search strategies; distinct
// from the embedding-similarity deduplicator.
func (d *Document) Fingerprint() string {
	prefix := d.Content
	if len(prefix) > FingerprintPrefixLen {
		prefix = prefix[:FingerprintPrefixLen]
	}
	h := sha256.Sum256([]byte(d.Meta.Source + "\x00" + prefix))
	return hex.EncodeToString(h[:16])
}

// ID returns the chunk identifier, falling back to the fingerprint when
// no chunk_id was assigned (e.g., documents from external stores).
func (d *Document) ID() string {
	if d.Meta.ChunkID != "" {
		return d.Meta.ChunkID
	}
	return d.Fingerprint()
}

// NewChunkID derives a stable chunk identifier from the parent document
// and chunk content. Content-addressed so IDs survive re-chunking of
// unchanged text.
func NewChunkID(docID, content string) string {
	h := sha256.Sum256([]byte(docID + "\x00" + content))
	return hex.EncodeToString(h[:8])
}
