package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/repo"
)

var (
	listSource  string
	listModel   string
	listProject string
	listFrom    string
	listTo      string
	listLimit   int
	listOffset  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, newest first",
	Long: `List stored conversations with optional filtering, ordered by last
update descending.

Examples:
  hindsight list
  hindsight list --source claude-code
  hindsight list --project myapp --from 2026-08-01
  hindsight list --limit 20 --offset 20`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listSource, "source", "s", "", "filter by source")
	listCmd.Flags().StringVarP(&listModel, "model", "m", "", "filter by model (substring)")
	listCmd.Flags().StringVarP(&listProject, "project", "p", "", "filter by workspace path (substring)")
	listCmd.Flags().StringVar(&listFrom, "from", "", "only conversations updated on or after this date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "only conversations updated on or before this date (YYYY-MM-DD)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "max results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "skip this many results")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := conversations.List(ctx, repo.ListFilters{
		Source:   listSource,
		Model:    listModel,
		Project:  listProject,
		FromDate: listFrom,
		ToDate:   listTo,
		Limit:    listLimit,
		Offset:   listOffset,
	})
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(result.Conversations) == 0 {
		fmt.Println("No conversations found.")
		return nil
	}

	fmt.Printf("Conversations (%d of %d):\n\n", len(result.Conversations), result.Total)
	for _, c := range result.Conversations {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("- %s\n", defaultTheme.titleStyle().Render(title))
		fmt.Printf("  %s\n", defaultTheme.hintStyle().Render(fmt.Sprintf(
			"%s · %s · %d messages · updated %s",
			c.Source, c.WorkspacePath, c.MessageCount, c.UpdatedAt)))
		if verbose {
			fmt.Printf("  model: %s, +%d/-%d lines, branch: %s\n",
				c.Model, c.LinesAdded, c.LinesRemoved, c.GitBranch)
		}
	}
	return nil
}
