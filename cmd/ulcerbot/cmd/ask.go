package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Long: `Answer one question from the knowledge base and exit.

Examples:
  ulcerbot ask "Can NSAIDs cause ulcers?"
  ulcerbot ask --sources "How are ulcers treated?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&showSources, "sources", false, "Print the passages the answer was grounded on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	p, _, err := openPipeline(ctx)
	if err != nil {
		return err
	}

	ans, err := p.AnswerQuestion(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("processing request: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ans.Text)
	if showSources {
		for i, s := range ans.Sources {
			fmt.Fprintf(out, "\n[%d] %s (score %.3f)\n%s\n", i+1, s.Chunk.Source(), s.Score, s.Chunk.Text)
		}
	}
	return nil
}
