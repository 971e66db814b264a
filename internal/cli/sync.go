package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/ingest"
)

var syncCmd = &cobra.Command{
	Use:   "sync <records-file-or-dir>...",
	Short: "Import normalized transcript records",
	Long: `Import transcript records from newline-delimited JSON files produced
by source adapters. Re-importing is idempotent: unchanged conversations
are skipped, changed ones are replaced wholesale.

Examples:
  hindsight sync ./records.ndjson
  hindsight sync ~/.hindsight/records/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	paths, err := expandRecordPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No record files found.")
		return nil
	}

	importer := newImporter()
	var total ingest.ImportStats
	for _, path := range paths {
		records, err := ingest.ReadRecordFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		stats, err := importer.Import(ctx, records)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		total.Conversations += stats.Conversations
		total.Skipped += stats.Skipped
		total.Messages += stats.Messages
		total.ToolCalls += stats.ToolCalls
		total.Files += stats.Files
		total.Edits += stats.Edits
		if verbose {
			fmt.Printf("%s: %d imported, %d skipped\n", path, stats.Conversations, stats.Skipped)
		}
	}

	fmt.Println(defaultTheme.successStyle().Render(fmt.Sprintf(
		"Imported %d conversations (%d skipped unchanged)", total.Conversations, total.Skipped)))
	fmt.Printf("  messages: %d, tool calls: %d, files: %d, edits: %d\n",
		total.Messages, total.ToolCalls, total.Files, total.Edits)
	return nil
}

// expandRecordPaths resolves arguments into a sorted list of record files.
// Directories are scanned one level deep for .ndjson and .jsonl files.
func expandRecordPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", arg, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch filepath.Ext(e.Name()) {
			case ".ndjson", ".jsonl":
				paths = append(paths, filepath.Join(arg, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}
