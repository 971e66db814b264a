package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	deleteSource string
	deleteForce  bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]...",
	Short: "Delete conversations and their child rows",
	Long: `Delete conversations by id, or everything from one source with
--source. Messages, tool calls, file links, and edits go with them.

Examples:
  hindsight delete 1a2b3c4d5e6f7a8b
  hindsight delete --source claude-code`,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteSource, "source", "s", "", "delete all conversations from this source")
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if deleteSource == "" && len(args) == 0 {
		return fmt.Errorf("pass conversation ids or --source")
	}
	if deleteSource != "" && len(args) > 0 {
		return fmt.Errorf("--source and explicit ids are mutually exclusive")
	}

	if deleteSource != "" {
		if !deleteForce && !confirm(fmt.Sprintf("Delete ALL conversations from source %q?", deleteSource)) {
			fmt.Println("Aborted.")
			return nil
		}
		n, err := conversations.DeleteBySource(ctx, deleteSource)
		if err != nil {
			return fmt.Errorf("delete by source: %w", err)
		}
		if err := syncStates.DeleteBySource(ctx, deleteSource); err != nil {
			return fmt.Errorf("delete sync state: %w", err)
		}
		fmt.Println(defaultTheme.successStyle().Render(
			fmt.Sprintf("Deleted %d conversations from %s", n, deleteSource)))
		return nil
	}

	if !deleteForce && !confirm(fmt.Sprintf("Delete %d conversation(s)?", len(args))) {
		fmt.Println("Aborted.")
		return nil
	}
	if err := conversations.Delete(ctx, args...); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Println(defaultTheme.successStyle().Render(
		fmt.Sprintf("Deleted %d conversation(s)", len(args))))
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
