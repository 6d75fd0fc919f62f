package ngram

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_Detect_FindsTaxonomyPhrases(t *testing.T) {
	d := NewDetector()

	// Given: a query containing a bigram taxonomy phrase
	det := d.Detect("how does JSON migration work")

	// Then: both the bigram and its unigram parts are detected
	assert.Contains(t, det.Terms, "json migration")
	assert.Contains(t, det.Terms, "json")
	assert.Contains(t, det.Terms, "migration")
	assert.Equal(t, 2.0, det.Weights["json migration"])
}

// Every taxonomy entry must be detected in a query that contains it
// verbatim, regardless of case.
func TestDetector_Detect_Completeness(t *testing.T) {
	d := NewDetector()
	for phrase := range DefaultTaxonomy {
		det := d.Detect(fmt.Sprintf("Tell me about %s please", phrase))
		assert.Contains(t, det.Terms, phrase, "taxonomy phrase %q not detected", phrase)
	}
}

func TestDetector_Detect_CaseInsensitive(t *testing.T) {
	d := NewDetector()

	upper := d.Detect("SHAREPOINT Migration Status")
	assert.Contains(t, upper.Terms, "sharepoint")
	assert.Contains(t, upper.Terms, "migration status")
}

func TestDetector_Detect_EmptyAndUnmatched(t *testing.T) {
	d := NewDetector()

	// Empty query: empty detection, no error path exists
	assert.Empty(t, d.Detect("").Terms)
	assert.Zero(t, d.Detect("").Score())

	// Non-technical query: empty detection
	det := d.Detect("what is the weather today")
	assert.Empty(t, det.Terms)
	assert.Zero(t, det.Score())
}

func TestDetector_TechnicalScore_SumsWeights(t *testing.T) {
	d := NewDetector()

	// "api access" (1.8) also matches "api" (1.0)
	score := d.TechnicalScore("configure api access")
	assert.InDelta(t, 2.8, score, 1e-9)
}

func TestDetector_IsTechnicalQuery(t *testing.T) {
	d := NewDetector()

	assert.True(t, d.IsTechnicalQuery("json migration to teams"))
	assert.False(t, d.IsTechnicalQuery("hello there"))

	// Threshold is exclusive: a score exactly at the threshold is not
	// technical. "json" alone scores 0.8 against threshold 1.0.
	assert.False(t, d.IsTechnicalQuery("about json"))
}

func TestDetector_Detect_IsDeterministicAndCached(t *testing.T) {
	d := NewDetector()

	first := d.Detect("slack teams channel migration")
	second := d.Detect("Slack Teams channel migration")

	// Normalized queries share a cache entry and identical output
	assert.Equal(t, first.Terms, second.Terms)
	assert.Equal(t, first.Weights, second.Weights)
}

func TestDetector_WithTaxonomyAndThreshold(t *testing.T) {
	custom := Taxonomy{"frobnicate": 3.0}
	d := NewDetector(WithTaxonomy(custom), WithThreshold(2.0))

	assert.True(t, d.IsTechnicalQuery("please frobnicate the widget"))
	assert.False(t, d.IsTechnicalQuery("json migration"))
}

func TestDetector_Expand_AddsSynonymPhrasings(t *testing.T) {
	d := NewDetector()

	expanded := d.Expand("sharepoint migration")

	// Original query always comes first
	require.NotEmpty(t, expanded)
	assert.Equal(t, "sharepoint migration", expanded[0])

	// Synonym rewrites follow
	assert.Contains(t, expanded, "share point migration")
	assert.Contains(t, expanded, "sharepoint online migration")
}

func TestDetector_ExpandedQuery_AppendsSynonyms(t *testing.T) {
	d := NewDetector()

	// Matched terms with synonyms widen the lexical query
	q := d.ExpandedQuery("configure sso")
	assert.Contains(t, q, "configure sso")
	assert.Contains(t, q, "single sign on")

	// A query with no matches passes through untouched
	assert.Equal(t, "plain words", d.ExpandedQuery("plain words"))
}
