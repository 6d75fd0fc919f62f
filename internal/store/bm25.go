package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/openkb/ragkit/internal/doc"
	"github.com/openkb/ragkit/internal/token"
)

const (
	// DocTokenizerName is the registered name of the prose tokenizer.
	DocTokenizerName = "doc_tokenizer"

	// DocStopFilterName is the registered name of the stop word filter.
	DocStopFilterName = "doc_stop"

	// DocAnalyzerName is the registered name of the analyzer.
	DocAnalyzerName = "doc_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(DocTokenizerName, docTokenizerConstructor)
	_ = registry.RegisterTokenFilter(DocStopFilterName, docStopFilterConstructor)
}

// lexicalStopWords are filtered from indexed text. Kept short: BM25's
// length normalization already discounts filler, this only removes the
// highest-frequency function words.
var lexicalStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {},
	"to": {}, "in": {}, "on": {}, "is": {}, "are": {}, "it": {},
	"for": {}, "with": {}, "this": {}, "that": {},
}

// BleveIndex wraps bleve v2 for BM25 keyword search over chunk content
// and searchable metadata (tag, title, filename, folder path).
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// bleveDocument is the indexed and stored shape of a chunk. Metadata
// fields share the content analyzer so technical terms in tags and
// paths are matchable.
type bleveDocument struct {
	Content    string `json:"content"`
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
	Tag        string `json:"tag"`
	Title      string `json:"title"`
	Filename   string `json:"filename"`
	FolderPath string `json:"folder_path"`
	DocID      string `json:"doc_id"`
}

// NewBleveIndex creates a BM25 index. An empty path creates an
// in-memory index (used by tests and single-run ingestion).
func NewBleveIndex(path string) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &BleveIndex{index: idx, path: path}, nil
}

// createIndexMapping builds the bleve mapping with the prose analyzer
// as default for all indexed fields.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(DocAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": DocTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			DocStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = DocAnalyzerName
	return indexMapping, nil
}

// Index adds documents to the index in one batch.
func (b *BleveIndex) Index(ctx context.Context, docs []doc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, d := range docs {
		bd := bleveDocument{
			Content:    d.Content,
			Source:     d.Meta.Source,
			SourceType: string(d.Meta.SourceType),
			Tag:        d.Meta.Tag,
			Title:      d.Meta.Title,
			Filename:   d.Meta.Filename,
			FolderPath: d.Meta.FolderPath,
			DocID:      d.Meta.DocID,
		}
		if err := batch.Index(d.ID(), bd); err != nil {
			return fmt.Errorf("index document %s: %w", d.ID(), err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Search returns documents matching query, scored by BM25. An empty or
// blank query returns an empty result, not an error.
func (b *BleveIndex) Search(ctx context.Context, queryStr string, k int) ([]LexicalResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []LexicalResult{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = k
	req.Fields = []string{"*"}
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]LexicalResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, LexicalResult{
			Doc:          docFromHit(hit),
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return results, nil
}

// docFromHit reconstructs a document from stored fields.
func docFromHit(hit *search.DocumentMatch) doc.Document {
	str := func(field string) string {
		if v, ok := hit.Fields[field].(string); ok {
			return v
		}
		return ""
	}
	return doc.Document{
		Content: str("content"),
		Meta: doc.Metadata{
			Source:     str("source"),
			SourceType: doc.SourceType(str("source_type")),
			Tag:        str("tag"),
			Title:      str("title"),
			Filename:   str("filename"),
			FolderPath: str("folder_path"),
			DocID:      str("doc_id"),
			ChunkID:    hit.ID,
		},
	}
}

// Delete removes documents by chunk ID.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

// Stats returns index statistics.
func (b *BleveIndex) Stats() IndexStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return IndexStats{}
	}
	count, _ := b.index.DocCount()
	return IndexStats{DocumentCount: int(count)}
}

// Close closes the index. Disk-backed indexes persist automatically.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// extractMatchedTerms collects the query terms that matched this hit.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			terms[term] = struct{}{}
		}
	}
	out := make([]string, 0, len(terms))
	for term := range terms {
		out = append(out, term)
	}
	return out
}

var _ LexicalIndex = (*BleveIndex)(nil)

// docTokenizerConstructor creates the prose tokenizer for bleve.
func docTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveDocTokenizer{}, nil
}

// bleveDocTokenizer tokenizes prose and identifier-style tokens
// (filenames, field names) into word tokens.
type bleveDocTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *bleveDocTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	words := token.Words(text)

	result := make(analysis.TokenStream, 0, len(words))
	pos := 1
	offset := 0

	for _, w := range words {
		for _, sub := range token.SplitIdentifier(w) {
			start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(sub))
			if start < 0 {
				start = offset
			} else {
				start += offset
			}
			end := start + len(sub)

			result = append(result, &analysis.Token{
				Term:     []byte(sub),
				Start:    start,
				End:      end,
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
			if end <= len(text) {
				offset = end
			}
		}
	}
	return result
}

// docStopFilterConstructor creates the stop word filter for bleve.
func docStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveDocStopFilter{stopWords: lexicalStopWords}, nil
}

type bleveDocStopFilter struct {
	stopWords map[string]struct{}
}

// Filter implements analysis.TokenFilter.
func (f *bleveDocStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, isStop := f.stopWords[strings.ToLower(string(tok.Term))]; !isStop {
			result = append(result, tok)
		}
	}
	return result
}
