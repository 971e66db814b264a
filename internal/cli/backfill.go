package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/ingest"
	"github.com/mfeldheim/hindsight/internal/llm"
)

var (
	backfillBatchSize   int
	backfillTitleSource string
	backfillTitleLimit  int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fill in deferred data for stored conversations",
	Long: `Run backfill jobs over already-imported conversations.

Subcommands:
  embeddings   Embed messages whose vector is still the placeholder
  titles       Generate titles for untitled conversations`,
}

var backfillEmbeddingsCmd = &cobra.Command{
	Use:   "embeddings",
	Short: "Embed messages missing a vector",
	RunE:  runBackfillEmbeddings,
}

var backfillTitlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Generate titles for untitled conversations",
	RunE:  runBackfillTitles,
}

func init() {
	backfillEmbeddingsCmd.Flags().IntVar(&backfillBatchSize, "batch-size", 32, "messages per embedding batch")
	backfillTitlesCmd.Flags().StringVarP(&backfillTitleSource, "source", "s", "", "restrict to one source")
	backfillTitlesCmd.Flags().IntVarP(&backfillTitleLimit, "limit", "n", 50, "max conversations to title")
	backfillCmd.AddCommand(backfillEmbeddingsCmd)
	backfillCmd.AddCommand(backfillTitlesCmd)
}

func runBackfillEmbeddings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	emb, err := getEmbedder()
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	b := ingest.NewBackfiller(messages, conversations, emb, nil, logger, backfillBatchSize)
	job, err := b.BackfillEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("backfill embeddings: %w", err)
	}
	fmt.Println(defaultTheme.successStyle().Render(
		fmt.Sprintf("Embedded %d messages (job %s)", job.Progress, job.ID)))
	return nil
}

func runBackfillTitles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	titler, err := llm.NewTitler(cfg)
	if err != nil {
		return fmt.Errorf("init title model: %w", err)
	}
	if titler == nil {
		return fmt.Errorf("no LLM provider configured, set HINDSIGHT_LLM_PROVIDER")
	}

	b := ingest.NewBackfiller(messages, conversations, nil, titler, logger, 0)
	job, err := b.BackfillTitles(ctx, backfillTitleSource, backfillTitleLimit)
	if err != nil {
		return fmt.Errorf("backfill titles: %w", err)
	}
	fmt.Println(defaultTheme.successStyle().Render(
		fmt.Sprintf("Titled %d conversations (job %s)", job.Progress, job.ID)))
	return nil
}
