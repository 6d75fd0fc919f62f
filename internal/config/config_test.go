package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 800, cfg.Chunker.TargetTokens)
	assert.Equal(t, 200, cfg.Chunker.OverlapTokens)
	assert.Equal(t, 150, cfg.Chunker.MinTokens)
	assert.Equal(t, 0.85, cfg.Dedup.Threshold)
	assert.Equal(t, 0.7, cfg.Retrieval.SimilarityWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.NgramWeight)
	assert.Equal(t, 5.0, cfg.Retrieval.BoostCeiling)
	assert.Equal(t, 2000, cfg.Retrieval.PerDocCharCap)
	assert.Equal(t, 12000, cfg.Retrieval.ContextCharBudget)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Chunker, cfg.Chunker)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	// Given: a config file overriding two fields
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
chunker:
  target_tokens: 400
retrieval:
  similarity_weight: 0.6
  ngram_weight: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// When: loading
	cfg, err := Load(path)
	require.NoError(t, err)

	// Then: overridden fields change, the rest keep defaults
	assert.Equal(t, 400, cfg.Chunker.TargetTokens)
	assert.Equal(t, 0.6, cfg.Retrieval.SimilarityWeight)
	assert.Equal(t, 0.4, cfg.Retrieval.NgramWeight)
	assert.Equal(t, 0.85, cfg.Dedup.Threshold)
}

func TestLoad_FailsFastOnInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"threshold above one", "dedup:\n  threshold: 1.2\n"},
		{"negative target", "chunker:\n  target_tokens: -10\n"},
		{"overlap at target", "chunker:\n  target_tokens: 100\n  overlap_tokens: 100\n"},
		{"zero boost ceiling", "retrieval:\n  boost_ceiling: -1\n"},
		{"malformed yaml", "chunker: [not a mapping\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoad_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := NewConfig()
	cfg.Chunker.TargetTokens = 600
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 600, loaded.Chunker.TargetTokens)
}
