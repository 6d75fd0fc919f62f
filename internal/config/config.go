// Package config loads and validates the ragkit YAML configuration.
// Out-of-range values fail fast at load time; nothing is silently
// clamped.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	rkerrors "github.com/openkb/ragkit/internal/errors"
)

// Config is the complete ragkit configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Index     IndexConfig     `yaml:"index"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig configures where indexes live on disk.
type IndexConfig struct {
	// Dir is the index directory. Holds the BM25 index and the vector
	// store files.
	Dir string `yaml:"dir"`
}

// ChunkerConfig configures chunk sizing in tokens.
type ChunkerConfig struct {
	TargetTokens  int `yaml:"target_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	MinTokens     int `yaml:"min_tokens"`
}

// DedupConfig configures the embedding-similarity deduplicator.
type DedupConfig struct {
	// Threshold is the inclusive cosine-similarity cutoff, in [0,1].
	Threshold float64 `yaml:"threshold"`
}

// RetrievalConfig configures the unified retriever. The weighting split
// is tuned for the migration/support corpus; semantic relevance
// dominates and the technical-term signal nudges ties.
type RetrievalConfig struct {
	SimilarityWeight  float64 `yaml:"similarity_weight"`
	NgramWeight       float64 `yaml:"ngram_weight"`
	BoostCeiling      float64 `yaml:"boost_ceiling"`
	CandidateMultiple int     `yaml:"candidate_multiple"`
	PerDocCharCap     int     `yaml:"per_doc_char_cap"`
	ContextCharBudget int     `yaml:"context_char_budget"`
	MaxResults        int     `yaml:"max_results"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// NewConfig creates a Config with the tuned defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Dir: defaultIndexDir(),
		},
		Chunker: ChunkerConfig{
			TargetTokens:  800,
			OverlapTokens: 200,
			MinTokens:     150,
		},
		Dedup: DedupConfig{
			Threshold: 0.85,
		},
		Retrieval: RetrievalConfig{
			SimilarityWeight:  0.7,
			NgramWeight:       0.3,
			BoostCeiling:      5.0,
			CandidateMultiple: 4,
			PerDocCharCap:     2000,
			ContextCharBudget: 12000,
			MaxResults:        10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file, applying defaults for absent fields.
// A missing file returns defaults without error; a malformed or invalid
// file fails.
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, rkerrors.New(rkerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("read config %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, rkerrors.ConfigError(
			fmt.Sprintf("parse config %s", path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return rkerrors.ConfigError("marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return rkerrors.ConfigError("create config directory", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate fails fast on out-of-range values.
func (c *Config) Validate() error {
	if c.Chunker.TargetTokens <= 0 {
		return rkerrors.ConfigError(
			fmt.Sprintf("chunker.target_tokens %d must be positive", c.Chunker.TargetTokens), nil)
	}
	if c.Chunker.OverlapTokens < 0 || c.Chunker.OverlapTokens >= c.Chunker.TargetTokens {
		return rkerrors.ConfigError(
			fmt.Sprintf("chunker.overlap_tokens %d must be in [0, target_tokens)", c.Chunker.OverlapTokens), nil)
	}
	if c.Chunker.MinTokens < 0 || c.Chunker.MinTokens >= c.Chunker.TargetTokens {
		return rkerrors.ConfigError(
			fmt.Sprintf("chunker.min_tokens %d must be in [0, target_tokens)", c.Chunker.MinTokens), nil)
	}
	if c.Dedup.Threshold < 0 || c.Dedup.Threshold > 1 {
		return rkerrors.New(rkerrors.ErrCodeThresholdRange,
			fmt.Sprintf("dedup.threshold %v outside [0,1]", c.Dedup.Threshold), nil)
	}
	r := c.Retrieval
	if r.SimilarityWeight < 0 || r.SimilarityWeight > 1 ||
		r.NgramWeight < 0 || r.NgramWeight > 1 {
		return rkerrors.ConfigError("retrieval weights must be in [0,1]", nil)
	}
	if r.BoostCeiling <= 0 {
		return rkerrors.ConfigError(
			fmt.Sprintf("retrieval.boost_ceiling %v must be positive", r.BoostCeiling), nil)
	}
	if r.CandidateMultiple < 1 {
		return rkerrors.ConfigError(
			fmt.Sprintf("retrieval.candidate_multiple %d must be at least 1", r.CandidateMultiple), nil)
	}
	if r.PerDocCharCap <= 0 || r.ContextCharBudget <= 0 {
		return rkerrors.ConfigError("retrieval character caps must be positive", nil)
	}
	if r.MaxResults <= 0 {
		return rkerrors.ConfigError(
			fmt.Sprintf("retrieval.max_results %d must be positive", r.MaxResults), nil)
	}
	return nil
}

// DefaultConfigPath returns the user-level config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ragkit", "config.yaml")
	}
	return filepath.Join(home, ".ragkit", "config.yaml")
}

func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ragkit", "index")
	}
	return filepath.Join(home, ".ragkit", "index")
}
