// Package ingest orchestrates the ingestion pipeline: walk a directory
// of text documents, chunk them, deduplicate within the batch and
// against the existing corpus, and index the survivors into the
// lexical and vector stores.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openkb/ragkit/internal/chunker"
	"github.com/openkb/ragkit/internal/dedup"
	"github.com/openkb/ragkit/internal/doc"
	rkerrors "github.com/openkb/ragkit/internal/errors"
	"github.com/openkb/ragkit/internal/store"
)

// ingestible file extensions.
var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Result summarizes one ingestion run.
type Result struct {
	FilesRead     int
	ChunksCreated int
	ChunksMerged  int
	ChunksIndexed int
}

// Pipeline wires the chunker, deduplicator, and stores. The lexical
// index may be nil; ingestion then feeds the vector store only.
type Pipeline struct {
	chunker  *chunker.Chunker
	dedup    *dedup.Deduplicator
	searcher *store.SemanticSearcher
	lexical  store.LexicalIndex
	logger   *slog.Logger
}

// New creates an ingestion pipeline.
func New(ch *chunker.Chunker, dd *dedup.Deduplicator, searcher *store.SemanticSearcher, lexical store.LexicalIndex, logger *slog.Logger) (*Pipeline, error) {
	if ch == nil || dd == nil || searcher == nil {
		return nil, rkerrors.ConfigError("ingest: chunker, deduplicator, and searcher are required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  ch,
		dedup:    dd,
		searcher: searcher,
		lexical:  lexical,
		logger:   logger,
	}, nil
}

// IngestDirectory walks root, chunks every markdown and text file, and
// indexes the deduplicated chunks. Files are processed in walk order so
// repeated runs over the same tree are deterministic.
func (p *Pipeline) IngestDirectory(ctx context.Context, root string) (Result, error) {
	var result Result
	var batch []doc.Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		chunks, err := p.chunkFile(root, path)
		if err != nil {
			return err
		}
		result.FilesRead++
		result.ChunksCreated += len(chunks)
		batch = append(batch, chunks...)
		return nil
	})
	if err != nil {
		return result, rkerrors.IndexError(fmt.Sprintf("walk %s", root), err)
	}
	if len(batch) == 0 {
		return result, nil
	}

	indexed, merged, err := p.indexBatch(ctx, batch)
	if err != nil {
		return result, err
	}
	result.ChunksMerged = merged
	result.ChunksIndexed = indexed

	p.logger.Info("ingestion complete",
		slog.Int("files", result.FilesRead),
		slog.Int("chunks", result.ChunksCreated),
		slog.Int("merged", result.ChunksMerged),
		slog.Int("indexed", result.ChunksIndexed))
	return result, nil
}

// chunkFile reads and chunks a single file, stamping file-derived
// metadata on every chunk.
func (p *Pipeline) chunkFile(root, path string) ([]doc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rkerrors.IndexError(fmt.Sprintf("read %s", path), err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	meta := doc.Metadata{
		Source:     path,
		SourceType: doc.SourceTypeFile,
		Filename:   filepath.Base(path),
		FolderPath: filepath.Dir(rel),
		DocID:      rel,
		Title:      titleFrom(string(data), path),
	}
	return p.chunker.Chunk(string(data), meta), nil
}

// indexBatch deduplicates the batch and indexes the survivors.
func (p *Pipeline) indexBatch(ctx context.Context, batch []doc.Document) (indexed, merged int, err error) {
	before := len(batch)
	survivors, err := p.dedup.DeduplicateWithinBatch(ctx, batch)
	if err != nil {
		return 0, 0, rkerrors.IndexError("dedup within batch", err)
	}

	// Chunks near-identical to already-indexed content enrich the
	// existing record instead of being indexed again.
	existing := p.searcher.Existing()
	survivors, updated, err := p.dedup.DeduplicateAgainstExisting(ctx, survivors, existing)
	if err != nil {
		return 0, 0, rkerrors.IndexError("dedup against existing", err)
	}
	for _, u := range updated {
		p.searcher.Replace(u)
	}
	merged = before - len(survivors)

	if len(survivors) == 0 {
		return 0, merged, nil
	}
	if err := p.searcher.Index(ctx, survivors); err != nil {
		return 0, merged, rkerrors.IndexError("index vectors", err)
	}
	if p.lexical != nil {
		if err := p.lexical.Index(ctx, survivors); err != nil {
			return 0, merged, rkerrors.IndexError("index lexical", err)
		}
	}
	return len(survivors), merged, nil
}

// titleFrom prefers the first markdown heading, falling back to the
// file name without extension.
func titleFrom(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
