// Package store provides the lexical (BM25) index and the in-process
// vector store backing the retrieval core. Both are built at ingestion
// time and treated as immutable snapshots while serving queries;
// rebuilds go through atomic file swaps, never in-place mutation.
package store

import (
	"context"

	"github.com/openkb/ragkit/internal/doc"
)

// LexicalResult is a single BM25 hit. Score is an unbounded relevance
// value, higher is better.
type LexicalResult struct {
	Doc          doc.Document
	Score        float64
	MatchedTerms []string
}

// LexicalIndex provides keyword search over the corpus.
type LexicalIndex interface {
	// Index adds documents to the index.
	Index(ctx context.Context, docs []doc.Document) error

	// Search returns documents matching query, scored by BM25.
	Search(ctx context.Context, query string, k int) ([]LexicalResult, error)

	// Delete removes documents by chunk ID.
	Delete(ctx context.Context, ids []string) error

	// Stats returns index statistics.
	Stats() IndexStats

	// Close releases resources.
	Close() error
}

// IndexStats describes a lexical index.
type IndexStats struct {
	DocumentCount int
}

// VectorResult is a single nearest-neighbor hit. Distance follows the
// store's metric (cosine: 0 identical, 2 opposite); Score is the
// normalized similarity in [0,1].
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStore provides approximate nearest-neighbor search over
// embeddings keyed by chunk ID.
type VectorStore interface {
	// Add inserts vectors; an existing ID is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// Contains reports whether an ID exists.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Save and Load persist the store with atomic file replacement.
	Save(path string) error
	Load(path string) error

	// Close releases resources.
	Close() error
}

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension.
	Dimensions int

	// Metric is "cos" (default) or "l2".
	Metric string

	// M is the HNSW max connections per layer.
	M int

	// EfSearch is the HNSW query-time search width.
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible HNSW defaults.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   64,
	}
}
