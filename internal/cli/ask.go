package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/usecase"
)

var (
	askCategory string
	askEmail    string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a question",
	Long: `Answer a question from the knowledge base. Without a question, start an
interactive conversation that keeps its history until you type "exit".

Examples:
  supportrag ask "How long does shipping take?"
  supportrag ask -c returns "Can I return a used item?"
  supportrag ask                       # interactive`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askCategory, "category", "c", "", "restrict retrieval to a category")
	askCmd.Flags().StringVar(&askEmail, "email", "", "contact email passed with escalations")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	deps, err := openDependencies(false)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	ctx := cmd.Context()
	if len(args) > 0 {
		res, err := deps.Engine.Respond(ctx, usecase.RespondRequest{
			Message:   strings.Join(args, " "),
			Category:  askCategory,
			UserEmail: askEmail,
		})
		if err != nil {
			return err
		}
		return printAnswer(cmd.OutOrStdout(), res)
	}
	return chatLoop(ctx, deps.Engine, cmd.InOrStdin(), cmd.OutOrStdout())
}

// chatLoop runs an interactive conversation on one session.
func chatLoop(ctx context.Context, engine *usecase.Engine, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, `Ask a question ("exit" to quit).`)
	scanner := bufio.NewScanner(in)
	sessionID := ""

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := engine.Respond(ctx, usecase.RespondRequest{
			Message:   line,
			SessionID: sessionID,
			Category:  askCategory,
			UserEmail: askEmail,
		})
		if err != nil {
			if domain.KindOf(err) == domain.KindInvalidInput {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			return err
		}
		sessionID = res.SessionID
		if err := printAnswer(out, res); err != nil {
			return err
		}
	}
}

func printAnswer(out io.Writer, res *domain.AnswerResult) error {
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(out, "\n%s\n\n", res.Text)
	fmt.Fprintf(out, "Confidence: %.2f", res.Confidence)
	if res.UsedFallback {
		fmt.Fprint(out, " (stored answer)")
	}
	fmt.Fprintln(out)
	if len(res.Sources) > 0 {
		fmt.Fprintln(out, "Sources:")
		for _, s := range res.Sources {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}
	if res.NeedsEscalation {
		fmt.Fprintf(out, "Escalated to a human agent (%s)\n", res.EscalationReason)
	}
	fmt.Fprintln(out)
	return nil
}
