// Package ngram detects technical phrases in free-text queries and
// produces the weighted relevance signal used to boost documents during
// ranking. The taxonomy is a static, read-only mapping from phrase
// (1-3 words) to relevance weight, curated for the migration/support
// documentation domain.
package ngram

// Taxonomy maps a lower-cased technical phrase to its boost weight.
// Phrases are one to three words; lookups are case-insensitive.
type Taxonomy map[string]float64

// DefaultTaxonomy is the curated domain vocabulary. Weights reflect how
// strongly a phrase marks a query as technical: product names and exact
// feature phrases score highest, generic data/infra terms lowest.
var DefaultTaxonomy = Taxonomy{
	// Product and platform names
	"cloudfuze":       2.0,
	"sharepoint":      1.5,
	"onedrive":        1.5,
	"slack":           1.2,
	"teams":           1.0,
	"outlook":         1.2,
	"dropbox":         1.2,
	"box":             0.8,
	"google drive":    1.5,
	"microsoft teams": 1.8,
	"slack teams":     2.0,

	// Migration operations
	"migration":             1.2,
	"json migration":        2.0,
	"data migration":        1.8,
	"file migration":        1.8,
	"email migration":       1.8,
	"user migration":        1.6,
	"channel migration":     1.8,
	"incremental migration": 2.0,
	"delta migration":       2.0,
	"one time migration":    1.8,
	"migration report":      1.6,
	"migration status":      1.4,

	// Mapping and metadata
	"metadata":           1.0,
	"metadata mapping":   2.0,
	"user mapping":       1.8,
	"folder mapping":     1.8,
	"permission mapping": 2.0,
	"csv mapping":        1.8,

	// Access and auth
	"api":             1.0,
	"api access":      1.8,
	"api key":         1.6,
	"oauth":           1.4,
	"access token":    1.6,
	"admin consent":   1.6,
	"service account": 1.6,
	"sso":             1.2,

	// Data and formats
	"json":     0.8,
	"csv":      0.8,
	"pdf":      0.6,
	"excel":    0.8,
	"payload":  0.8,
	"webhook":  1.2,
	"endpoint": 1.0,
	"rest api": 1.6,

	// Content features
	"permissions":      1.2,
	"shared links":     1.6,
	"external users":   1.4,
	"file versions":    1.6,
	"version history":  1.6,
	"direct messages":  1.4,
	"private channels": 1.6,
	"attachments":      1.0,
	"embedded links":   1.4,

	// Support and operations
	"throttling":    1.4,
	"rate limit":    1.6,
	"rate limiting": 1.6,
	"error code":    1.2,
	"retry":         0.8,
	"timeout":       0.8,
	"sync":          0.8,
	"batch size":    1.2,
	"audit log":     1.4,
}

// Synonyms maps taxonomy phrases to alternate phrasings (acronym
// expansions, vendor renames) used to widen recall in query expansion.
var Synonyms = map[string][]string{
	"api":           {"application programming interface"},
	"sso":           {"single sign on"},
	"json":          {"javascript object notation"},
	"csv":           {"comma separated values"},
	"teams":         {"microsoft teams"},
	"slack teams":   {"slack to teams"},
	"onedrive":      {"one drive"},
	"sharepoint":    {"share point", "sharepoint online"},
	"google drive":  {"gdrive", "google workspace"},
	"rate limit":    {"throttling"},
	"rate limiting": {"throttling"},
	"metadata":      {"meta data"},
	"oauth":         {"open authorization"},
}
