package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkb/ragkit/internal/doc"
)

func memIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func testDoc(id, content string) doc.Document {
	return doc.Document{
		Content: content,
		Meta: doc.Metadata{
			Source:  "docs/" + id + ".md",
			DocID:   id,
			ChunkID: id,
		},
	}
}

func TestBleveIndex_IndexAndSearch_Basic(t *testing.T) {
	// Given: an index with three chunks
	idx := memIndex(t)
	ctx := context.Background()

	err := idx.Index(ctx, []doc.Document{
		testDoc("1", "configure slack channel migration"),
		testDoc("2", "configure sharepoint permissions"),
		testDoc("3", "teams user mapping csv"),
	})
	require.NoError(t, err)

	// When: searching a keyword
	results, err := idx.Search(ctx, "migration", 10)
	require.NoError(t, err)

	// Then: the matching chunk is found and scored
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Doc.ID())
	assert.Greater(t, results[0].Score, 0.0)
	assert.Contains(t, results[0].MatchedTerms, "migration")
}

func TestBleveIndex_Search_MetadataFieldsAreSearchable(t *testing.T) {
	// Given: a chunk whose tag carries the matching term
	idx := memIndex(t)
	ctx := context.Background()

	d := testDoc("1", "step one then step two")
	d.Meta.Tag = "slack-migration"
	require.NoError(t, idx.Index(ctx, []doc.Document{d}))

	// When: searching the tag vocabulary
	results, err := idx.Search(ctx, "slack", 10)
	require.NoError(t, err)

	// Then: the chunk is found via metadata
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].Doc.ID())
}

func TestBleveIndex_Search_BlankQueryReturnsEmpty(t *testing.T) {
	idx := memIndex(t)
	require.NoError(t, idx.Index(context.Background(),
		[]doc.Document{testDoc("1", "content")}))

	results, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleveIndex_Search_ReconstructsStoredFields(t *testing.T) {
	// Given: a chunk with full metadata
	idx := memIndex(t)
	ctx := context.Background()

	d := testDoc("1", "json payload for the migration api")
	d.Meta.SourceType = doc.SourceTypeSharePoint
	d.Meta.Title = "Migration API"
	d.Meta.Filename = "api.md"
	require.NoError(t, idx.Index(ctx, []doc.Document{d}))

	// When: searching
	results, err := idx.Search(ctx, "payload", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Then: stored fields come back on the hit
	got := results[0].Doc
	assert.Equal(t, "json payload for the migration api", got.Content)
	assert.Equal(t, doc.SourceTypeSharePoint, got.Meta.SourceType)
	assert.Equal(t, "Migration API", got.Meta.Title)
	assert.Equal(t, "1", got.Meta.ChunkID)
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := memIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []doc.Document{
		testDoc("1", "alpha migration"),
		testDoc("2", "beta migration"),
	}))
	require.NoError(t, idx.Delete(ctx, []string{"1"}))

	results, err := idx.Search(ctx, "migration", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].Doc.ID())
	assert.Equal(t, 1, idx.Stats().DocumentCount)
}

func TestBleveIndex_Stats(t *testing.T) {
	idx := memIndex(t)
	assert.Equal(t, 0, idx.Stats().DocumentCount)

	require.NoError(t, idx.Index(context.Background(), []doc.Document{
		testDoc("1", "one"), testDoc("2", "two"),
	}))
	assert.Equal(t, 2, idx.Stats().DocumentCount)
}

func TestBleveIndex_ClosedIndexFails(t *testing.T) {
	idx, err := NewBleveIndex("")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "query", 1)
	assert.Error(t, err)
	err = idx.Index(context.Background(), []doc.Document{testDoc("1", "x")})
	assert.Error(t, err)
}
