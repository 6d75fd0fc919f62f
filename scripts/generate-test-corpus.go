//go:build ignore

// Generates a synthetic documentation corpus for benchmarking ingestion
// and retrieval.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles  = flag.Int("files", 500, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	dupRate   = flag.Float64("dup-rate", 0.1, "Fraction of files duplicating an earlier one")
)

var topics = []string{
	"slack migration", "teams channel setup", "sharepoint permissions",
	"json export format", "api rate limits", "sso configuration",
	"tenant to tenant migration", "direct message archival",
	"incremental sync", "audit log export", "oauth token refresh",
	"webhook delivery", "user mapping", "attachment transfer",
	"channel naming conventions",
}

var paragraphs = []string{
	"Before starting the run, export the current %s settings and verify admin consent has been granted for the destination tenant.",
	"The %s step processes items in batches of 200. Throttled requests back off and resume automatically, so a long pause is expected behavior.",
	"If %s fails with a permission error, re-run the preflight check and confirm the service account holds the required roles on both ends.",
	"Mappings for %s are read from the CSV uploaded in the project settings. Unmapped entries are skipped and reported at the end of the run.",
	"Historical data for %s older than the configured retention window is not transferred. Adjust the cutoff date in the migration plan to include it.",
	"After %s completes, spot-check a sample of migrated items against the source and review the per-batch summary in the run report.",
}

var sections = []string{
	"Prerequisites", "Configuration", "Running the Migration",
	"Troubleshooting", "Validation", "Known Limitations",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	var generated []string
	for i := 0; i < *numFiles; i++ {
		var content string
		if len(generated) > 0 && rng.Float64() < *dupRate {
			// Duplicate an earlier document to exercise dedup.
			content = generated[rng.Intn(len(generated))]
		} else {
			content = generateDoc(rng, i)
			generated = append(generated, content)
		}

		name := fmt.Sprintf("doc_%04d.md", i)
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d files in %s (%d unique)\n", *numFiles, *outputDir, len(generated))
}

func generateDoc(rng *rand.Rand, index int) string {
	topic := topics[rng.Intn(len(topics))]
	out := fmt.Sprintf("# Guide %d: %s\n\n", index, topic)

	numSections := 2 + rng.Intn(4)
	for s := 0; s < numSections; s++ {
		out += fmt.Sprintf("## %s\n\n", sections[rng.Intn(len(sections))])
		numParas := 1 + rng.Intn(3)
		for p := 0; p < numParas; p++ {
			para := paragraphs[rng.Intn(len(paragraphs))]
			out += fmt.Sprintf(para+"\n\n", topic)
		}
	}
	return out
}
