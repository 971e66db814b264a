package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/search"
)

var (
	searchLimit int
	searchFiles string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search conversations with hybrid vector + keyword search",
	Long: `Search message content across all conversations. Results are grouped
by conversation and ranked by match quality with a recency boost.

Falls back from hybrid to keyword-only to plain substring search when
embeddings or the full-text index are unavailable.

Examples:
  hindsight search "auth bug"
  hindsight search "token refresh race" --limit 20
  hindsight search "migration" --files "schema.sql"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max message matches")
	searchCmd.Flags().StringVar(&searchFiles, "files", "", "also show touched files matching this pattern")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine := newEngine()

	resp, err := engine.Search(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(resp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	var fileMatches map[string][]search.FileMatch
	if searchFiles != "" {
		ids := make([]string, 0, len(resp.Results))
		for _, r := range resp.Results {
			ids = append(ids, r.Conversation.RowID())
		}
		fileMatches, err = engine.GetFileMatchesForConversations(ctx, ids, searchFiles)
		if err != nil {
			return fmt.Errorf("file search: %w", err)
		}
	}

	fmt.Printf("%d conversations, %d messages (%s, %dms)\n\n",
		resp.TotalConversations, resp.TotalMessages, resp.Mode, resp.Elapsed.Milliseconds())

	for i, r := range resp.Results {
		title := r.Conversation.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s\n", i+1, defaultTheme.titleStyle().Render(title))
		fmt.Printf("   %s\n", defaultTheme.hintStyle().Render(fmt.Sprintf(
			"%s · %s · %s · score %.3f",
			r.Conversation.Source, r.Conversation.WorkspacePath, r.Conversation.UpdatedAt, r.BestScore)))

		for _, m := range r.Matches {
			fmt.Printf("   [%s #%d] %s\n", m.Role, m.MessageIndex, renderSnippet(m.Snippet, m.Highlights))
			if m.AdjacentContext != "" && verbose {
				fmt.Printf("   %s\n", defaultTheme.hintStyle().Render("↳ "+m.AdjacentContext))
			}
		}

		for _, fm := range fileMatches[r.Conversation.RowID()] {
			fmt.Printf("   %s\n", defaultTheme.hintStyle().Render(
				fmt.Sprintf("file: %s (%s)", fm.FilePath, fm.Role)))
		}
		fmt.Println()
	}
	return nil
}

// renderSnippet applies highlight styling to the matched spans.
func renderSnippet(snippet string, highlights []search.Highlight) string {
	if len(highlights) == 0 {
		return snippet
	}
	var b strings.Builder
	style := defaultTheme.highlightStyle()
	prev := 0
	for _, h := range highlights {
		if h.Start < prev || h.End > len(snippet) || h.Start >= h.End {
			continue
		}
		b.WriteString(snippet[prev:h.Start])
		b.WriteString(style.Render(snippet[h.Start:h.End]))
		prev = h.End
	}
	b.WriteString(snippet[prev:])
	return b.String()
}
