// Package retrieval implements the query-time entry point: vector
// candidates with reranking headroom, an optional BM25 union, n-gram
// technical boosting, a weighted score combination, cheap fingerprint
// dedup, and budget-capped truncation. Pure ranking over pre-built
// structures; no network or LLM calls happen here.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/openkb/ragkit/internal/doc"
	rkerrors "github.com/openkb/ragkit/internal/errors"
	"github.com/openkb/ragkit/internal/ngram"
	"github.com/openkb/ragkit/internal/store"
)

// Defaults for the score combination and budget enforcement. The
// weighting split and boost ceiling are tuned constants, configurable
// rather than hard invariants.
const (
	DefaultSimilarityWeight  = 0.7
	DefaultNgramWeight       = 0.3
	DefaultBoostCeiling      = 5.0
	DefaultCandidateMultiple = 4
	DefaultPerDocCharCap     = 2000
	DefaultContextCharBudget = 12000
)

// Config tunes the retriever. Zero values take the package defaults.
type Config struct {
	// SimilarityWeight and NgramWeight combine the normalized vector
	// similarity and the normalized n-gram boost. Semantic relevance
	// dominates; the technical signal nudges ties.
	SimilarityWeight float64
	NgramWeight      float64

	// BoostCeiling caps the raw n-gram boost before normalization.
	BoostCeiling float64

	// CandidateMultiple sizes the vector candidate pool as a multiple
	// of the requested k, giving the reranker headroom.
	CandidateMultiple int

	// PerDocCharCap truncates each document's content before budget
	// accumulation.
	PerDocCharCap int

	// ContextCharBudget bounds the total character length of all
	// returned contents.
	ContextCharBudget int

	// Explain records matched boost terms on each result.
	Explain bool
}

// DefaultConfig returns the tuned default configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityWeight:  DefaultSimilarityWeight,
		NgramWeight:       DefaultNgramWeight,
		BoostCeiling:      DefaultBoostCeiling,
		CandidateMultiple: DefaultCandidateMultiple,
		PerDocCharCap:     DefaultPerDocCharCap,
		ContextCharBudget: DefaultContextCharBudget,
	}
}

// VectorSearcher is the mandatory vector-search collaborator. Scores
// are cosine distances (lower better) unless ScoreIsSimilarity reports
// otherwise.
type VectorSearcher interface {
	SimilaritySearchWithScore(ctx context.Context, query string, k int) ([]store.ScoredDocument, error)
	ScoreIsSimilarity() bool
}

// Result is one ranked document with its component scores.
type Result struct {
	Doc doc.Document

	// Score is the combined ranking score in [0,1].
	Score float64

	// Similarity is the normalized vector similarity in [0,1]; zero for
	// candidates discovered only by the lexical leg.
	Similarity float64

	// LexicalScore is the raw BM25 score, zero when unmatched.
	LexicalScore float64

	// Boost is the raw n-gram boost before capping.
	Boost float64

	// BoostTerms lists matched technical terms when Explain is set.
	BoostTerms []string
}

// Retriever orchestrates the ranking pipeline. The lexical index is
// optional; a nil index degrades to vector-only candidates.
type Retriever struct {
	searcher VectorSearcher
	lexical  store.LexicalIndex
	detector *ngram.Detector
	cfg      Config
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLexicalIndex supplies the optional BM25 index.
func WithLexicalIndex(idx store.LexicalIndex) Option {
	return func(r *Retriever) {
		r.lexical = idx
	}
}

// WithDetector replaces the default technical-query detector.
func WithDetector(d *ngram.Detector) Option {
	return func(r *Retriever) {
		r.detector = d
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(r *Retriever) {
		r.cfg = cfg
	}
}

// WithLogger sets the logger used for degradation notices.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// New creates a Retriever. An invalid configuration fails fast.
func New(searcher VectorSearcher, opts ...Option) (*Retriever, error) {
	if searcher == nil {
		return nil, rkerrors.ConfigError("retrieval: vector searcher is required", nil)
	}
	r := &Retriever{
		searcher: searcher,
		detector: ngram.NewDetector(),
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := validate(r.cfg); err != nil {
		return nil, err
	}
	return r, nil
}

func validate(cfg Config) error {
	if cfg.SimilarityWeight < 0 || cfg.SimilarityWeight > 1 {
		return rkerrors.ConfigError(
			fmt.Sprintf("similarity weight %v outside [0,1]", cfg.SimilarityWeight), nil)
	}
	if cfg.NgramWeight < 0 || cfg.NgramWeight > 1 {
		return rkerrors.ConfigError(
			fmt.Sprintf("ngram weight %v outside [0,1]", cfg.NgramWeight), nil)
	}
	if cfg.SimilarityWeight+cfg.NgramWeight == 0 {
		return rkerrors.ConfigError("weights must not both be zero", nil)
	}
	if cfg.BoostCeiling <= 0 {
		return rkerrors.ConfigError(
			fmt.Sprintf("boost ceiling %v must be positive", cfg.BoostCeiling), nil)
	}
	if cfg.CandidateMultiple < 1 {
		return rkerrors.ConfigError(
			fmt.Sprintf("candidate multiple %d must be at least 1", cfg.CandidateMultiple), nil)
	}
	if cfg.PerDocCharCap <= 0 || cfg.ContextCharBudget <= 0 {
		return rkerrors.ConfigError("character caps must be positive", nil)
	}
	return nil
}

// candidate is a document in the working pool, keyed by chunk ID and
// kept in first-discovery order (vector hits first).
type candidate struct {
	doc          doc.Document
	similarity   float64
	lexicalScore float64
}

// Retrieve returns the final ranked, deduplicated, budget-capped
// document list for the query. An unreachable vector store yields an
// error matching rkerrors.ErrRetrievalUnavailable; an empty corpus
// yields an empty list.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	headroom := k * r.cfg.CandidateMultiple

	var (
		vectorHits  []store.ScoredDocument
		lexicalHits []store.LexicalResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.searcher.SimilaritySearchWithScore(gctx, query, headroom)
		if err != nil {
			return rkerrors.RetrievalError("vector search failed", err)
		}
		vectorHits = hits
		return nil
	})
	if r.lexical != nil {
		g.Go(func() error {
			// The lexical leg is additive: a failure degrades to
			// vector-only rather than aborting the query. The expanded
			// query widens lexical recall; vector search keeps the
			// original phrasing.
			hits, err := r.lexical.Search(gctx, r.detector.ExpandedQuery(query), headroom)
			if err != nil {
				r.logger.Warn("lexical search failed, continuing vector-only",
					slog.String("query", query),
					slog.Any("error", err))
				return nil
			}
			lexicalHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pool := r.mergeCandidates(vectorHits, lexicalHits)
	if len(pool) == 0 {
		return []Result{}, nil
	}

	detection := r.detector.Detect(query)
	results := r.scoreCandidates(pool, detection)

	results = dedupeByFingerprint(results)

	// Stable sort keeps first-discovery order on ties, so vector-search
	// order remains the primary tiebreak.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return r.enforceBudget(results), nil
}

// mergeCandidates unions vector and lexical hits keyed by chunk ID.
// Vector hits come first so discovery order favors semantic matches.
func (r *Retriever) mergeCandidates(vectorHits []store.ScoredDocument, lexicalHits []store.LexicalResult) []candidate {
	pool := make([]candidate, 0, len(vectorHits)+len(lexicalHits))
	index := make(map[string]int, len(vectorHits))

	for _, hit := range vectorHits {
		id := hit.Doc.ID()
		if _, seen := index[id]; seen {
			continue
		}
		index[id] = len(pool)
		pool = append(pool, candidate{
			doc:        hit.Doc,
			similarity: r.normalizeSimilarity(hit.Score),
		})
	}
	for _, hit := range lexicalHits {
		id := hit.Doc.ID()
		if at, seen := index[id]; seen {
			pool[at].lexicalScore = hit.Score
			continue
		}
		index[id] = len(pool)
		pool = append(pool, candidate{
			doc:          hit.Doc,
			lexicalScore: hit.Score,
		})
	}
	return pool
}

// normalizeSimilarity maps the searcher's score to a similarity in
// [0,1], 1 being most similar.
func (r *Retriever) normalizeSimilarity(score float64) float64 {
	sim := score
	if !r.searcher.ScoreIsSimilarity() {
		// Cosine distance ranges 0-2.
		sim = 1.0 - score/2.0
	}
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// scoreCandidates applies the n-gram boost and the weighted score
// combination to every candidate.
func (r *Retriever) scoreCandidates(pool []candidate, detection ngram.Detection) []Result {
	results := make([]Result, 0, len(pool))
	for _, c := range pool {
		boost, terms := r.boostFor(c.doc, detection)

		capped := boost
		if capped > r.cfg.BoostCeiling {
			capped = r.cfg.BoostCeiling
		}
		combined := r.cfg.SimilarityWeight*c.similarity +
			r.cfg.NgramWeight*(capped/r.cfg.BoostCeiling)

		res := Result{
			Doc:          c.doc,
			Score:        combined,
			Similarity:   c.similarity,
			LexicalScore: c.lexicalScore,
			Boost:        boost,
		}
		if r.cfg.Explain {
			res.BoostTerms = terms
		}
		results = append(results, res)
	}
	return results
}

// boostFor sums the weights of detected terms appearing in the
// document's content or searchable metadata.
func (r *Retriever) boostFor(d doc.Document, detection ngram.Detection) (float64, []string) {
	if len(detection.Terms) == 0 {
		return 0, nil
	}
	haystack := strings.ToLower(d.Content + " " + d.Meta.SearchableText())

	var boost float64
	var matched []string
	for _, term := range detection.Terms {
		if strings.Contains(haystack, term) {
			boost += detection.Weights[term]
			matched = append(matched, term)
		}
	}
	return boost, matched
}

// dedupeByFingerprint removes exact and near-exact repeats returned by
// overlapping search strategies, keeping the first-discovered copy.
// Identity here is the cheap content fingerprint, distinct from the
// embedding-similarity dedup used at ingestion.
func dedupeByFingerprint(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, res := range results {
		fp := res.Doc.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		out = append(out, res)
	}
	return out
}

// enforceBudget truncates each document to the per-document cap, then
// accumulates documents until the total context budget is reached.
func (r *Retriever) enforceBudget(results []Result) []Result {
	out := make([]Result, 0, len(results))
	total := 0
	for _, res := range results {
		content := truncateRunes(res.Doc.Content, r.cfg.PerDocCharCap)
		if total+len([]rune(content)) > r.cfg.ContextCharBudget {
			break
		}
		total += len([]rune(content))
		res.Doc.Content = content
		out = append(out, res)
	}
	return out
}

// truncateRunes cuts s to at most max runes without splitting a
// character.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
