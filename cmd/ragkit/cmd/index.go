package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openkb/ragkit/internal/chunker"
	"github.com/openkb/ragkit/internal/dedup"
	"github.com/openkb/ragkit/internal/embed"
	rkerrors "github.com/openkb/ragkit/internal/errors"
	"github.com/openkb/ragkit/internal/ingest"
	"github.com/openkb/ragkit/internal/store"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var indexDir string
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Chunk, deduplicate, and index a documentation directory",
		Long: `Walks the given directory (default: current directory), chunks every
markdown and text file, deduplicates near-identical chunks, and writes
the BM25 and vector indexes to the index directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			return runIndex(cmd, root, indexDir, rebuild)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index-dir", "", "Index directory (default from config)")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Discard the existing index and rebuild from scratch")
	return cmd
}

func runIndex(cmd *cobra.Command, root, indexDir string, rebuild bool) error {
	ctx := cmd.Context()
	if indexDir == "" {
		indexDir = cfg.Index.Dir
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return rkerrors.ConfigError(fmt.Sprintf("not a directory: %s", root), err)
	}

	// A rebuild writes into a fresh staging directory and swaps it in
	// only after a successful run, so a crash mid-build never leaves a
	// partial index where readers look.
	buildDir := indexDir
	if rebuild {
		buildDir = indexDir + ".build"
		if err := os.RemoveAll(buildDir); err != nil {
			return rkerrors.IndexError("clear staging directory", err)
		}
	}

	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return rkerrors.IndexError("create index directory", err)
	}

	embedder := embed.NewStaticEmbedder()
	defer embedder.Close()

	searcher, err := store.NewSemanticSearcher(embedder)
	if err != nil {
		return err
	}
	defer searcher.Close()

	vectorPath := filepath.Join(buildDir, "vectors.hnsw")
	if !rebuild {
		if _, statErr := os.Stat(vectorPath); statErr == nil {
			if err := searcher.Load(vectorPath); err != nil {
				return rkerrors.New(rkerrors.ErrCodeCorruptIndex,
					"existing vector index is unreadable", err).
					WithSuggestion("re-run with --rebuild to discard it")
			}
		}
	}

	lexical, err := store.NewBleveIndex(filepath.Join(buildDir, "bm25.bleve"))
	if err != nil {
		return rkerrors.IndexError("open lexical index", err)
	}
	defer lexical.Close()

	ch, err := chunker.New(chunker.Config{
		TargetTokens:  cfg.Chunker.TargetTokens,
		OverlapTokens: cfg.Chunker.OverlapTokens,
		MinTokens:     cfg.Chunker.MinTokens,
	})
	if err != nil {
		return err
	}
	dd, err := dedup.New(embedder, dedup.Config{Threshold: cfg.Dedup.Threshold})
	if err != nil {
		return err
	}

	pipeline, err := ingest.New(ch, dd, searcher, lexical, nil)
	if err != nil {
		return err
	}

	result, err := pipeline.IngestDirectory(ctx, root)
	if err != nil {
		return err
	}
	if err := searcher.Save(vectorPath); err != nil {
		return rkerrors.IndexError("save vector index", err)
	}
	if err := lexical.Close(); err != nil {
		return rkerrors.IndexError("close lexical index", err)
	}

	if rebuild {
		if err := swapDirs(buildDir, indexDir); err != nil {
			return rkerrors.IndexError("swap index directories", err)
		}
	}

	cmd.Printf("Indexed %d files: %d chunks created, %d merged as duplicates, %d indexed\n",
		result.FilesRead, result.ChunksCreated, result.ChunksMerged, result.ChunksIndexed)
	cmd.Printf("Index written to %s\n", indexDir)
	return nil
}

// swapDirs atomically replaces live with staged, keeping the old index
// only until the rename succeeds.
func swapDirs(staged, live string) error {
	old := live + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if _, err := os.Stat(live); err == nil {
		if err := os.Rename(live, old); err != nil {
			return err
		}
	}
	if err := os.Rename(staged, live); err != nil {
		return err
	}
	return os.RemoveAll(old)
}
