package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchText     string
	searchTopK     int
	searchCategory string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the knowledge base",
	Long: `Retrieve the knowledge base entries most similar to a query, without
generating an answer.

Examples:
  supportrag search -q "refund policy"
  supportrag search -q "delivery time" -c shipping --top-k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 5, "number of results")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "restrict results to a category")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	_ = searchCmd.MarkFlagRequired("query")
}

type searchOutput struct {
	ID       string  `json:"id"`
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	deps, err := openDependencies(false)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	cands, err := deps.Engine.Search(cmd.Context(), searchText, searchCategory, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]searchOutput, len(cands))
	for i, c := range cands {
		results[i] = searchOutput{
			ID:       c.Entry.ID,
			Rank:     c.Rank,
			Score:    c.Similarity,
			Category: string(c.Entry.Category),
			Question: c.Entry.Question,
			Answer:   c.Entry.Answer,
		}
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(results), searchText)
	for _, r := range results {
		fmt.Fprintf(out, "--- [%d] %s (%s, score: %.2f) ---\n", r.Rank, r.ID, r.Category, r.Score)
		fmt.Fprintf(out, "Q: %s\n", r.Question)
		answer := r.Answer
		if len(answer) > 500 {
			answer = answer[:500] + "..."
		}
		fmt.Fprintf(out, "A: %s\n\n", answer)
	}
	return nil
}
