package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/openkb/ragkit/internal/doc"
	"github.com/openkb/ragkit/internal/embed"
)

// ScoredDocument pairs a document with a retrieval-stage score. The
// score convention depends on the producer: vector searchers return
// cosine distance (lower is more similar) unless they declare
// otherwise.
type ScoredDocument struct {
	Doc   doc.Document
	Score float64
}

// SemanticSearcher is the reference vector-search handle: an HNSW graph
// plus a document catalog, queried through an embedding function. It is
// the in-process implementation of the similarity-search contract the
// retrieval core consumes; remote vector databases implement the same
// interface elsewhere.
type SemanticSearcher struct {
	mu       sync.RWMutex
	vectors  *HNSWStore
	embedder embed.Embedder
	catalog  map[string]doc.Document
}

// NewSemanticSearcher creates a searcher backed by a fresh HNSW store
// sized to the embedder's dimensions.
func NewSemanticSearcher(embedder embed.Embedder) (*SemanticSearcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("semantic searcher: embedder is required")
	}
	vectors, err := NewHNSWStore(DefaultVectorStoreConfig(embedder.Dimensions()))
	if err != nil {
		return nil, err
	}
	return &SemanticSearcher{
		vectors:  vectors,
		embedder: embedder,
		catalog:  make(map[string]doc.Document),
	}, nil
}

// Index embeds and stores documents. Ingestion-time only; the searcher
// is treated as an immutable snapshot while serving queries.
func (s *SemanticSearcher) Index(ctx context.Context, docs []doc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
		ids[i] = d.ID()
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vectors.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}
	for i, d := range docs {
		s.catalog[ids[i]] = d
	}
	return nil
}

// SimilaritySearchWithScore embeds the query and returns the k nearest
// documents with their cosine distances (lower is more similar).
func (s *SemanticSearcher) SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]ScoredDocument, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits, err := s.vectors.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredDocument, 0, len(hits))
	for _, hit := range hits {
		d, ok := s.catalog[hit.ID]
		if !ok {
			continue
		}
		out = append(out, ScoredDocument{Doc: d, Score: float64(hit.Distance)})
	}
	return out, nil
}

// ScoreIsSimilarity reports the score convention: this searcher returns
// distances.
func (s *SemanticSearcher) ScoreIsSimilarity() bool { return false }

// Existing returns the indexed corpus ordered by chunk ID, for
// deduplication of new batches against it.
func (s *SemanticSearcher) Existing() []doc.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.catalog))
	for id := range s.catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]doc.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.catalog[id])
	}
	return out
}

// Replace swaps a document's record in the catalog, used after dedup
// enriches an existing chunk's metadata. The embedding is unchanged
// because content never changes on merge.
func (s *SemanticSearcher) Replace(d doc.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.catalog[d.ID()]; ok {
		s.catalog[d.ID()] = d
	}
}

// Count returns the number of indexed documents.
func (s *SemanticSearcher) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catalog)
}

// Stats returns index statistics.
func (s *SemanticSearcher) Stats() IndexStats {
	return IndexStats{DocumentCount: s.Count()}
}

// Save persists vectors and catalog next to each other. The catalog
// uses the same temp-file + rename pattern as the vector files.
func (s *SemanticSearcher) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.vectors.Save(path); err != nil {
		return err
	}

	catalogPath := path + ".docs"
	tmpPath := catalogPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create catalog file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(s.catalog); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close catalog file: %w", err)
	}
	return os.Rename(tmpPath, catalogPath)
}

// Load restores vectors and catalog from disk.
func (s *SemanticSearcher) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vectors.Load(path); err != nil {
		return err
	}

	file, err := os.Open(path + ".docs")
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer file.Close()

	catalog := make(map[string]doc.Document)
	if err := gob.NewDecoder(file).Decode(&catalog); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	s.catalog = catalog
	return nil
}

// Close releases resources.
func (s *SemanticSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vectors.Close()
}
