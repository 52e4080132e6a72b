package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/EmonKarmaker/ai-support-system/config"
	"github.com/EmonKarmaker/ai-support-system/internal/adapter/retriever"
	"github.com/EmonKarmaker/ai-support-system/internal/app"
	"github.com/EmonKarmaker/ai-support-system/internal/logging"
)

// evalCase is one line of an evaluation file.
type evalCase struct {
	Query      string `json:"query"`
	RelevantID string `json:"relevant_id"`
}

func main() {
	dataDir := flag.String("data", "", "dataset directory to load")
	evalPath := flag.String("eval", "", "JSONL file of {query, relevant_id} pairs (default: each entry's own question)")
	configDir := flag.String("config-dir", ".", "directory holding supportrag.yaml")
	topK := flag.Int("k", 5, "number of results per query")
	verbose := flag.Bool("v", false, "print every miss")
	flag.Parse()

	if *dataDir == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -data ./data [-eval eval.jsonl] [-k 5]")
		fmt.Println("\nMeasures retrieval quality against an in-memory knowledge base:")
		fmt.Println("  hit@1, hit@k, MRR, precision@k, recall@k and nDCG@k")
		os.Exit(1)
	}

	if err := run(*dataDir, *evalPath, *configDir, *topK, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dataDir, evalPath, configDir string, topK int, verbose bool) error {
	ctx := context.Background()

	if err := config.LoadEnv(configDir); err != nil {
		return err
	}
	cfg, err := config.LoadFromDir(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Store.Backend = "memory"
	cfg.LLM.Provider = "none"
	cfg.Logging.Level = "warn"

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	deps, err := app.NewDependencies(cfg, app.Options{Root: configDir}, logger)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	loaded, err := deps.Loader.Load(ctx, dataDir, false, nil)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	cases, err := evalCases(ctx, evalPath, deps)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return fmt.Errorf("no evaluation cases")
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Entries loaded:  %d (%d files)\n", loaded.EntriesIngested, loaded.FilesLoaded)
	fmt.Printf("Model:           %s (%s)\n", deps.Embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension:       %d\n", deps.Embedder.Dimension())
	fmt.Printf("Queries:         %d\n", len(cases))
	fmt.Println(strings.Repeat("-", 70))

	var hit1, hitK, mrr, precision, recall, ndcg, topScore float64
	for _, c := range cases {
		cands, err := deps.Engine.Search(ctx, c.Query, "", topK)
		if err != nil {
			return fmt.Errorf("search %q: %w", c.Query, err)
		}

		ids := make([]string, len(cands))
		gains := make([]float64, len(cands))
		for i, cand := range cands {
			ids[i] = cand.Entry.ID
			if cand.Entry.ID == c.RelevantID {
				gains[i] = 1
			}
		}
		if len(cands) > 0 {
			topScore += cands[0].Similarity
		}

		if retriever.HitAtK(ids, c.RelevantID, 1) {
			hit1++
		}
		if retriever.HitAtK(ids, c.RelevantID, topK) {
			hitK++
		} else if verbose {
			fmt.Printf("MISS %-40s want %s got %v\n", truncate(c.Query, 40), c.RelevantID, ids)
		}
		mrr += retriever.ReciprocalRank(ids, c.RelevantID)
		precision += retriever.PrecisionAtK(ids, []string{c.RelevantID})
		recall += retriever.RecallAtK(ids, []string{c.RelevantID})
		ndcg += retriever.NDCG(gains, []float64{1})
	}

	n := float64(len(cases))
	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  hit@1:              %.3f\n", hit1/n)
	fmt.Printf("  hit@%d:              %.3f\n", topK, hitK/n)
	fmt.Printf("  MRR:                %.3f\n", mrr/n)
	fmt.Printf("  precision@%d:        %.3f\n", topK, precision/n)
	fmt.Printf("  recall@%d:           %.3f\n", topK, recall/n)
	fmt.Printf("  nDCG@%d:             %.3f\n", topK, ndcg/n)
	fmt.Printf("  Avg top similarity: %.3f\n", topScore/n)

	switch {
	case hitK/n > 0.9:
		fmt.Println("  Status: GOOD - relevant entries are reliably retrieved")
	case hitK/n > 0.7:
		fmt.Println("  Status: OK - some questions miss their entry")
	default:
		fmt.Println("  Status: POOR - consider a stronger embedding model")
	}
	return nil
}

// evalCases reads the evaluation file, or uses every stored entry's question
// as a query for itself.
func evalCases(ctx context.Context, path string, deps *app.Dependencies) ([]evalCase, error) {
	if path == "" {
		entries, err := deps.Store.All(ctx)
		if err != nil {
			return nil, err
		}
		cases := make([]evalCase, len(entries))
		for i, e := range entries {
			cases[i] = evalCase{Query: e.Question, RelevantID: e.ID}
		}
		return cases, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cases []evalCase
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c evalCase
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		cases = append(cases, c)
	}
	return cases, scanner.Err()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
