package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var filesLimit int

var filesCmd = &cobra.Command{
	Use:   "files <pattern>",
	Short: "Find conversations that touched matching files",
	Long: `Search across edited, context, and mentioned files for paths containing
the pattern. Each conversation-file pair is reported once with its
strongest role.

Examples:
  hindsight files "auth.go"
  hindsight files "internal/repo" --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().IntVarP(&filesLimit, "limit", "n", 20, "max results")
}

func runFiles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	engine := newEngine()

	matches, err := engine.SearchByFilePath(ctx, args[0], filesLimit)
	if err != nil {
		return fmt.Errorf("file search: %w", err)
	}

	if len(matches) == 0 {
		fmt.Println("No matching files found.")
		return nil
	}

	fmt.Printf("File matches (%d):\n\n", len(matches))
	for _, m := range matches {
		conv, err := conversations.FindByID(ctx, m.ConversationID)
		if err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}
		title := "(deleted conversation)"
		updated := ""
		if conv != nil {
			title = conv.Title
			if title == "" {
				title = "(untitled)"
			}
			updated = conv.UpdatedAt
		}
		fmt.Printf("- %s  %s\n", defaultTheme.titleStyle().Render(m.FilePath),
			defaultTheme.hintStyle().Render(fmt.Sprintf("%s · score %.1f", m.Role, m.Score)))
		fmt.Printf("  %s\n", defaultTheme.hintStyle().Render(fmt.Sprintf("%s · %s", title, updated)))
	}
	return nil
}
