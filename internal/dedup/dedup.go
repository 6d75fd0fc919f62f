// Package dedup detects near-duplicate chunks via embedding cosine
// similarity and merges duplicate metadata into a single surviving
// record. This prevents redundant context and double-counted relevance
// at ingestion time; the cheap fingerprint dedup at query time lives in
// the retrieval package.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/openkb/ragkit/internal/doc"
	"github.com/openkb/ragkit/internal/embed"
)

// DefaultThreshold is the inclusive cosine-similarity threshold above
// which two chunks are considered duplicates.
const DefaultThreshold = 0.85

// Stats accumulates deduplication counters across calls until Reset.
type Stats struct {
	TotalChecked    int // Pairs compared
	DuplicatesFound int // Pairs at or above threshold
	ChunksMerged    int // Chunks merged away
}

// Config configures the deduplicator.
type Config struct {
	// Threshold is the inclusive cosine-similarity cutoff, in [0,1].
	Threshold float64
}

// Deduplicator clusters near-duplicate chunks. The embedding function
// is pluggable; comparisons cost O(n^2) within a batch and O(n*m)
// against an existing corpus, acceptable for the bounded batch sizes of
// ingestion runs (tens to low hundreds of chunks).
type Deduplicator struct {
	embedder  embed.Embedder
	threshold float64

	mu    sync.Mutex
	stats Stats
}

// New creates a deduplicator. An out-of-range threshold fails fast.
func New(embedder embed.Embedder, cfg Config) (*Deduplicator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("dedup: embedder is required")
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("dedup: threshold %v outside [0,1]", threshold)
	}
	return &Deduplicator{embedder: embedder, threshold: threshold}, nil
}

// Stats returns a snapshot of the cumulative counters.
func (d *Deduplicator) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Reset clears the cumulative counters.
func (d *Deduplicator) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = Stats{}
}

// DeduplicateWithinBatch pairwise-compares all chunks in one batch and
// merges every pair at or above the threshold. The earlier chunk (first
// seen) survives; a chunk already merged away is skipped as a future
// comparison target. Returns the surviving chunks in original order.
func (d *Deduplicator) DeduplicateWithinBatch(ctx context.Context, chunks []doc.Document) ([]doc.Document, error) {
	if len(chunks) < 2 {
		return chunks, nil
	}

	vectors, err := d.embedder.EmbedBatch(ctx, contents(chunks))
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	merged := make([]bool, len(chunks))
	out := make([]doc.Document, len(chunks))
	copy(out, chunks)

	for i := 0; i < len(out); i++ {
		if merged[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(out); j++ {
			if merged[j] {
				continue
			}
			d.countChecked()
			sim := embed.CosineSimilarity(vectors[i], vectors[j])
			if sim < d.threshold {
				continue
			}
			mergeInto(&out[i], &out[j], sim)
			merged[j] = true
			d.countMerged()
		}
	}

	survivors := make([]doc.Document, 0, len(out))
	for i, c := range out {
		if !merged[i] {
			survivors = append(survivors, c)
		}
	}
	if n := len(chunks) - len(survivors); n > 0 {
		slog.Debug("batch dedup merged chunks",
			slog.Int("merged", n),
			slog.Int("survivors", len(survivors)))
	}
	return survivors, nil
}

// DeduplicateAgainstExisting compares new chunks against the existing
// corpus. A new chunk at or above the threshold against any existing
// chunk is merged into the most similar one; existing chunks are never
// discarded, only enriched. Returns the surviving new chunks and the
// updated existing chunks.
func (d *Deduplicator) DeduplicateAgainstExisting(ctx context.Context, newChunks, existing []doc.Document) ([]doc.Document, []doc.Document, error) {
	if len(newChunks) == 0 || len(existing) == 0 {
		return newChunks, existing, nil
	}

	newVecs, err := d.embedder.EmbedBatch(ctx, contents(newChunks))
	if err != nil {
		return nil, nil, fmt.Errorf("embed new chunks: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	existingVecs, err := d.embedder.EmbedBatch(ctx, contents(existing))
	if err != nil {
		return nil, nil, fmt.Errorf("embed existing chunks: %w", err)
	}

	updated := make([]doc.Document, len(existing))
	copy(updated, existing)

	var survivors []doc.Document
	for i, nc := range newChunks {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		bestIdx := -1
		bestSim := 0.0
		for j := range updated {
			d.countChecked()
			sim := embed.CosineSimilarity(newVecs[i], existingVecs[j])
			if sim >= d.threshold && sim > bestSim {
				bestIdx, bestSim = j, sim
			}
		}
		if bestIdx < 0 {
			survivors = append(survivors, nc)
			continue
		}
		mergeInto(&updated[bestIdx], &nc, bestSim)
		d.countMerged()
	}

	return survivors, updated, nil
}

// mergeInto folds the duplicate's record into the survivor. The
// survivor's content is never replaced; its relevance count increments,
// the duplicate's doc_id and the triggering similarity accumulate, and
// metadata keys the survivor lacks are added under an alt_ prefix.
func mergeInto(survivor, duplicate *doc.Document, similarity float64) {
	m := &survivor.Meta

	if m.RelevanceCount == 0 {
		m.RelevanceCount = 1
	}
	m.RelevanceCount++

	if m.OriginalSources == "" {
		m.OriginalSources = m.DocID
	}
	if duplicate.Meta.DocID != "" {
		m.OriginalSources = joinComma(m.OriginalSources, duplicate.Meta.DocID)
	}

	m.DuplicateSimilarities = joinComma(m.DuplicateSimilarities,
		fmt.Sprintf("%.3f", similarity))

	// Carry over fields the survivor lacks, prefixed so nothing on the
	// surviving record is overwritten.
	dupFlat, err := duplicate.Meta.Flatten()
	if err != nil {
		return
	}
	survFlat, err := m.Flatten()
	if err != nil {
		return
	}
	for _, key := range sortedKeys(dupFlat) {
		switch key {
		case "relevance_count", "original_sources", "duplicate_similarities",
			"chunk_id", "chunk_index", "total_chunks", "char_range":
			continue
		}
		if _, present := survFlat[key]; present {
			continue
		}
		_ = m.SetExtra("alt_"+key, dupFlat[key])
	}
}

func joinComma(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + ", " + next
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contents(chunks []doc.Document) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func (d *Deduplicator) countChecked() {
	d.mu.Lock()
	d.stats.TotalChecked++
	d.mu.Unlock()
}

func (d *Deduplicator) countMerged() {
	d.mu.Lock()
	d.stats.DuplicatesFound++
	d.stats.ChunksMerged++
	d.mu.Unlock()
}
