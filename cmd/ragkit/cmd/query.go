package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openkb/ragkit/internal/embed"
	rkerrors "github.com/openkb/ragkit/internal/errors"
	"github.com/openkb/ragkit/internal/retrieval"
	"github.com/openkb/ragkit/internal/store"
)

// newQueryCmd creates the query command.
func newQueryCmd() *cobra.Command {
	var (
		indexDir  string
		k         int
		explain   bool
		noLexical bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run hybrid retrieval against the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runQuery(cmd, query, indexDir, k, explain, noLexical)
		},
	}

	cmd.Flags().StringVar(&indexDir, "index-dir", "", "Index directory (default from config)")
	cmd.Flags().IntVarP(&k, "results", "k", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Show component scores and matched boost terms")
	cmd.Flags().BoolVar(&noLexical, "no-lexical", false, "Skip the BM25 leg, vector search only")
	return cmd
}

func runQuery(cmd *cobra.Command, query, indexDir string, k int, explain, noLexical bool) error {
	ctx := cmd.Context()
	if indexDir == "" {
		indexDir = cfg.Index.Dir
	}
	if k <= 0 {
		k = cfg.Retrieval.MaxResults
	}

	embedder := embed.NewStaticEmbedder()
	defer embedder.Close()

	searcher, err := store.NewSemanticSearcher(embedder)
	if err != nil {
		return err
	}
	defer searcher.Close()

	vectorPath := filepath.Join(indexDir, "vectors.hnsw")
	if _, statErr := os.Stat(vectorPath); statErr != nil {
		return rkerrors.ErrRetrievalUnavailable
	}
	if err := searcher.Load(vectorPath); err != nil {
		return rkerrors.RetrievalError("load vector index", err)
	}

	opts := []retrieval.Option{
		retrieval.WithConfig(retrieval.Config{
			SimilarityWeight:  cfg.Retrieval.SimilarityWeight,
			NgramWeight:       cfg.Retrieval.NgramWeight,
			BoostCeiling:      cfg.Retrieval.BoostCeiling,
			CandidateMultiple: cfg.Retrieval.CandidateMultiple,
			PerDocCharCap:     cfg.Retrieval.PerDocCharCap,
			ContextCharBudget: cfg.Retrieval.ContextCharBudget,
			Explain:           explain,
		}),
	}

	if !noLexical {
		lexicalPath := filepath.Join(indexDir, "bm25.bleve")
		if _, statErr := os.Stat(lexicalPath); statErr == nil {
			lexical, lexErr := store.NewBleveIndex(lexicalPath)
			if lexErr != nil {
				// Optional collaborator: degrade to vector-only.
				cmd.PrintErrf("warning: lexical index unavailable, using vector search only\n")
			} else {
				defer lexical.Close()
				opts = append(opts, retrieval.WithLexicalIndex(lexical))
			}
		}
	}

	retriever, err := retrieval.New(searcher, opts...)
	if err != nil {
		return err
	}

	results, err := retriever.Retrieve(ctx, query, k)
	if err != nil {
		cmd.PrintErr(rkerrors.FormatForCLI(err))
		return err
	}
	if len(results) == 0 {
		cmd.Println("No results.")
		return nil
	}

	for i, res := range results {
		cmd.Printf("%d. [%.4f] %s\n", i+1, res.Score, resultTitle(res))
		if explain {
			cmd.Printf("   similarity=%.4f lexical=%.4f boost=%.2f",
				res.Similarity, res.LexicalScore, res.Boost)
			if len(res.BoostTerms) > 0 {
				cmd.Printf(" terms=%s", strings.Join(res.BoostTerms, ","))
			}
			cmd.Println()
		}
		cmd.Printf("   %s\n\n", snippet(res.Doc.Content, 200))
	}
	return nil
}

func resultTitle(res retrieval.Result) string {
	m := res.Doc.Meta
	switch {
	case m.Title != "":
		return fmt.Sprintf("%s (%s)", m.Title, m.Source)
	case m.Source != "":
		return m.Source
	default:
		return res.Doc.ID()
	}
}

// snippet returns the first maxLen runes of content on one line.
func snippet(content string, maxLen int) string {
	oneLine := strings.Join(strings.Fields(content), " ")
	runes := []rune(oneLine)
	if len(runes) <= maxLen {
		return oneLine
	}
	return string(runes[:maxLen]) + "..."
}
