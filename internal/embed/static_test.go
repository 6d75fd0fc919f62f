package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Embed_Deterministic(t *testing.T) {
	// Given: one embedder
	e := NewStaticEmbedder()
	defer e.Close()

	// When: embedding the same text twice
	a, err := e.Embed(context.Background(), "slack to teams migration")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "slack to teams migration")
	require.NoError(t, err)

	// Then: vectors are identical
	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
}

func TestStaticEmbedder_Embed_UnitNorm(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "metadata mapping for sharepoint")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedder_Embed_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()

	vec, err := e.Embed(context.Background(), "   \n ")
	require.NoError(t, err)
	assert.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	// Given: two near-identical texts and one unrelated text
	e := NewStaticEmbedder()
	defer e.Close()
	ctx := context.Background()

	a, err := e.Embed(ctx, "how to migrate slack channels to microsoft teams")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "how to migrate slack channels into microsoft teams")
	require.NoError(t, err)
	c, err := e.Embed(ctx, "quarterly revenue spreadsheet formulas explained")
	require.NoError(t, err)

	// Then: the near-duplicates are closer than the unrelated pair
	assert.Greater(t, CosineSimilarity(a, b), CosineSimilarity(a, c))
	assert.Greater(t, CosineSimilarity(a, b), 0.8)
}

func TestStaticEmbedder_EmbedBatch_PreservesOrder(t *testing.T) {
	e := NewStaticEmbedder()
	defer e.Close()
	ctx := context.Background()

	texts := []string{"first text", "second text", "third text"}
	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch vector %d differs from single embed", i)
	}
}

func TestStaticEmbedder_ClosedEmbedderFails(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestNormalizeVector(t *testing.T) {
	out := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)

	// Zero vectors pass through unchanged
	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
