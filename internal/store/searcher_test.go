package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkb/ragkit/internal/doc"
	"github.com/openkb/ragkit/internal/embed"
)

func newSearcher(t *testing.T) *SemanticSearcher {
	t.Helper()
	s, err := NewSemanticSearcher(embed.NewStaticEmbedder())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSemanticSearcher_RequiresEmbedder(t *testing.T) {
	_, err := NewSemanticSearcher(nil)
	assert.Error(t, err)
}

func TestSemanticSearcher_IndexAndSearch(t *testing.T) {
	// Given: an indexed corpus with one topical match
	s := newSearcher(t)
	ctx := context.Background()

	err := s.Index(ctx, []doc.Document{
		testDoc("1", "migrating slack channels to microsoft teams"),
		testDoc("2", "quarterly financial report and budget planning"),
		testDoc("3", "office lunch menu for the holiday party"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count())

	// When: querying close to one document's vocabulary
	hits, err := s.SimilaritySearchWithScore(ctx, "slack channels migration to teams", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	// Then: the topical match has the smallest distance
	assert.Equal(t, "1", hits[0].Doc.ID())
	for _, h := range hits[1:] {
		assert.GreaterOrEqual(t, h.Score, hits[0].Score)
	}

	// And: scores follow the distance convention
	assert.False(t, s.ScoreIsSimilarity())
}

func TestSemanticSearcher_SearchEmptyCorpus(t *testing.T) {
	s := newSearcher(t)

	hits, err := s.SimilaritySearchWithScore(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSemanticSearcher_Existing_SortedByID(t *testing.T) {
	s := newSearcher(t)
	ctx := context.Background()

	require.NoError(t, s.Index(ctx, []doc.Document{
		testDoc("b", "second document"),
		testDoc("a", "first document"),
	}))

	existing := s.Existing()
	require.Len(t, existing, 2)
	assert.Equal(t, "a", existing[0].ID())
	assert.Equal(t, "b", existing[1].ID())
}

func TestSemanticSearcher_Replace_UpdatesCatalogOnly(t *testing.T) {
	// Given: an indexed document
	s := newSearcher(t)
	ctx := context.Background()
	d := testDoc("1", "original content here")
	require.NoError(t, s.Index(ctx, []doc.Document{d}))

	// When: the dedup pass enriches its metadata
	d.Meta.RelevanceCount = 2
	d.Meta.OriginalSources = "1, 2"
	s.Replace(d)

	// Then: the catalog reflects the enrichment
	existing := s.Existing()
	require.Len(t, existing, 1)
	assert.Equal(t, 2, existing[0].Meta.RelevanceCount)

	// And: replacing an unknown ID is a no-op
	s.Replace(testDoc("ghost", "not indexed"))
	assert.Equal(t, 1, s.Count())
}

func TestSemanticSearcher_SaveAndLoad_Roundtrip(t *testing.T) {
	// Given: a populated searcher saved to disk
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	s, err := NewSemanticSearcher(embed.NewStaticEmbedder())
	require.NoError(t, err)
	require.NoError(t, s.Index(ctx, []doc.Document{
		testDoc("1", "slack migration runbook"),
		testDoc("2", "sharepoint permissions guide"),
	}))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	// When: loading into a fresh searcher
	loaded := newSearcher(t)
	require.NoError(t, loaded.Load(path))

	// Then: documents and search both survive
	assert.Equal(t, 2, loaded.Count())
	hits, err := loaded.SimilaritySearchWithScore(ctx, "slack migration", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].Doc.ID())
}
