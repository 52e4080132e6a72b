package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	deps, err := openDependencies(false)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	stats, err := deps.Engine.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Store:           %s\n", cfg.Store.Backend)
	fmt.Fprintf(out, "Embedding model: %s (%d dimensions)\n", deps.Embedder.ModelName(), deps.Embedder.Dimension())
	fmt.Fprintf(out, "Entries:         %d\n", stats.EntryCount)

	categories := make([]domain.Category, 0, len(stats.CategoryCounts))
	for c := range stats.CategoryCounts {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return stats.CategoryCounts[categories[i]] > stats.CategoryCounts[categories[j]] ||
			(stats.CategoryCounts[categories[i]] == stats.CategoryCounts[categories[j]] && categories[i] < categories[j])
	})
	for _, c := range categories {
		fmt.Fprintf(out, "  %-20s %d\n", c, stats.CategoryCounts[c])
	}
	return nil
}
