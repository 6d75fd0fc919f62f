package ngram

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/openkb/ragkit/internal/token"
)

// DefaultTechnicalThreshold is the score above which a query is treated
// as technical.
const DefaultTechnicalThreshold = 1.0

// DefaultCacheSize bounds the LRU cache of detection results.
const DefaultCacheSize = 4096

// Detection is the weighted relevance signal for one query.
type Detection struct {
	// Terms are the matched taxonomy phrases, sorted for determinism.
	Terms []string

	// Weights maps each matched term to its taxonomy weight.
	Weights map[string]float64
}

// Score is the sum of matched weights; 0 when nothing matched.
func (d Detection) Score() float64 {
	var sum float64
	for _, w := range d.Weights {
		sum += w
	}
	return sum
}

// Detector scans queries for taxonomy phrases using unigram, bigram,
// and trigram windows. Detection is deterministic given the taxonomy;
// results are memoized per normalized query.
type Detector struct {
	taxonomy  Taxonomy
	threshold float64
	cache     *lru.Cache[string, Detection]
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithTaxonomy replaces the default phrase taxonomy.
func WithTaxonomy(t Taxonomy) DetectorOption {
	return func(d *Detector) {
		d.taxonomy = t
	}
}

// WithThreshold overrides the technical-query threshold.
func WithThreshold(threshold float64) DetectorOption {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

// NewDetector creates a detector over the default taxonomy.
func NewDetector(opts ...DetectorOption) *Detector {
	cache, _ := lru.New[string, Detection](DefaultCacheSize)
	d := &Detector{
		taxonomy:  DefaultTaxonomy,
		threshold: DefaultTechnicalThreshold,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the matched technical terms and their weights for a
// query. Matching is case-insensitive over unigrams, bigrams, and
// trigrams; single-word taxonomy entries match on their own. Never
// fails: an unmatchable query yields an empty Detection.
func (d *Detector) Detect(query string) Detection {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Detection{Weights: map[string]float64{}}
	}
	if cached, ok := d.cache.Get(key); ok {
		return cached
	}

	tokens := token.Words(key)
	weights := make(map[string]float64)

	// Sliding windows of size 1-3 over the token stream.
	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			phrase := strings.Join(tokens[i:i+n], " ")
			if w, ok := d.taxonomy[phrase]; ok {
				weights[phrase] = w
			}
		}
	}

	terms := make([]string, 0, len(weights))
	for t := range weights {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	det := Detection{Terms: terms, Weights: weights}
	d.cache.Add(key, det)
	return det
}

// TechnicalScore is the summed weight of all taxonomy matches in query.
func (d *Detector) TechnicalScore(query string) float64 {
	return d.Detect(query).Score()
}

// IsTechnicalQuery reports whether the query's technical score exceeds
// the configured threshold.
func (d *Detector) IsTechnicalQuery(query string) bool {
	return d.TechnicalScore(query) > d.threshold
}

// Expand produces alternate phrasings of the query for matched terms,
// widening recall with acronym and vendor-name expansions. The original
// query is always first; output order is deterministic.
func (d *Detector) Expand(query string) []string {
	det := d.Detect(query)
	out := []string{query}
	seen := map[string]bool{strings.ToLower(query): true}

	lower := strings.ToLower(query)
	for _, term := range det.Terms {
		for _, alt := range Synonyms[term] {
			expanded := strings.ReplaceAll(lower, term, alt)
			if expanded == lower || seen[expanded] {
				continue
			}
			seen[expanded] = true
			out = append(out, expanded)
		}
	}
	return out
}

// ExpandedQuery returns a single lexical-search query string: the
// original query plus every synonym phrase for matched terms. Intended
// for the BM25 leg only; vector search should use the original query.
func (d *Detector) ExpandedQuery(query string) string {
	det := d.Detect(query)
	if len(det.Terms) == 0 {
		return query
	}
	var b strings.Builder
	b.WriteString(query)
	for _, term := range det.Terms {
		for _, alt := range Synonyms[term] {
			b.WriteByte(' ')
			b.WriteString(alt)
		}
	}
	return b.String()
}
