package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ulcerrag/internal/infrastructure/http"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-and-answer session",
	Long: `Read questions from standard input until "exit" or "quit".
Each question is answered independently; no conversation history is kept.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	p, _, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	return chatLoop(ctx, p, cmd.InOrStdin(), cmd.OutOrStdout())
}

// chatLoop answers one line at a time. A failed question is reported and
// the session continues.
func chatLoop(ctx context.Context, a http.Answerer, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Ulcer Assistant (type 'exit' to quit)")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(q) {
		case "exit", "quit":
			return nil
		case "":
			continue
		}

		ans, err := a.AnswerQuestion(ctx, q)
		if err != nil {
			fmt.Fprintf(out, "\nError processing request: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "\nAnswer:\n%s\n\n", ans.Text)
	}
}
