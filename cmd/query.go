package cmd

import (
	"fmt"
	"strings"

	"coderag/internal/llm"
	"coderag/internal/rag"
	"coderag/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	flagK      int
	flagPrompt bool
	flagAsk    bool
	flagPlain  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question...>",
	Short: "Retrieve the chunks most similar to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := commandRoot(cmd, args)
		if err != nil {
			return err
		}
		question := strings.Join(args, " ")

		st, err := openStore(root)
		if err != nil {
			return err
		}
		defer st.Close()

		switch st.State() {
		case store.StateDegraded:
			fmt.Println(warnStyle.Render("No embedding provider available; retrieval is disabled."))
		case store.StateEmpty:
			fmt.Println(warnStyle.Render("The index holds no embedded records. Run 'coderag index' first."))
		}

		if flagAsk {
			chat := llm.NewOllamaChat(cfg.Chat.OllamaURL, cfg.Chat.Model)
			answer, results, err := rag.Answer(chat, st, question, flagK)
			if err != nil {
				return err
			}
			return render(formatResults(question, results) + "\n## Answer\n\n" + answer + "\n")
		}

		results, err := rag.Retrieve(st, question, flagK)
		if err != nil {
			return err
		}
		if flagPrompt {
			fmt.Println(rag.BuildPrompt(question, results))
			return nil
		}
		return render(formatResults(question, results))
	},
}

func init() {
	queryCmd.Flags().IntVar(&flagK, "k", rag.DefaultK, "number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&flagPrompt, "prompt", false, "print the assembled prompt instead of the results")
	queryCmd.Flags().BoolVar(&flagAsk, "ask", false, "send the prompt to the chat model and print its answer")
	queryCmd.Flags().BoolVar(&flagPlain, "plain", false, "print markdown without terminal rendering")
	rootCmd.AddCommand(queryCmd)
}

func formatResults(question string, results []store.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q\n", question)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Results for %q (%d chunks)\n\n", question, len(results))
	for i, r := range results {
		m := r.Metadata
		fmt.Fprintf(&sb, "### %d. `%s:%d-%d` %s %s\n\n", i+1, m.FilePath, m.StartLine, m.EndLine, m.Kind, m.Name)
		fmt.Fprintf(&sb, "score %.4f\n\n", r.Score)
		fmt.Fprintf(&sb, "```python\n%s\n```\n\n", r.Content)
	}
	return sb.String()
}

// render prints markdown through glamour, or as-is with --plain.
func render(md string) error {
	if flagPlain {
		fmt.Print(md)
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	fmt.Print(out)
	return nil
}
