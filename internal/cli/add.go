package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
)

var addInput domain.EntryInput

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a single entry to the knowledge base",
	Long: `Add one question/answer pair. An entry with the same ID is replaced.

Example:
  supportrag add --question "Do you ship abroad?" --answer "Yes, to 40 countries." --category shipping`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addInput.ID, "id", "", "entry ID (generated when empty)")
	addCmd.Flags().StringVar(&addInput.Title, "question", "", "customer question (required)")
	addCmd.Flags().StringVar(&addInput.Content, "answer", "", "answer text (required)")
	addCmd.Flags().StringVarP(&addInput.Category, "category", "c", "", "category (default general)")
	addCmd.Flags().StringVar(&addInput.Product, "product", "", "product the entry applies to")
	_ = addCmd.MarkFlagRequired("question")
	_ = addCmd.MarkFlagRequired("answer")
}

func runAdd(cmd *cobra.Command, args []string) error {
	deps, err := openDependencies(false)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	id, err := deps.Engine.Ingest(cmd.Context(), addInput)
	if err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", id)
	return nil
}
