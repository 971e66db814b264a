package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mfeldheim/hindsight/internal/ingest"
)

var billingBatch string

var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Import and inspect billing events",
	Long: `Manage billed API call records imported from provider exports.

Subcommands:
  import   Import billing records, replacing the named batch
  totals   Show aggregate token counts and cost
  show     Show billing events for one conversation`,
}

var billingImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import billing records from newline-delimited JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runBillingImport,
}

var billingTotalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Show aggregate billing totals",
	RunE:  runBillingTotals,
}

var billingShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show billing events attributed to a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runBillingShow,
}

func init() {
	billingImportCmd.Flags().StringVarP(&billingBatch, "batch", "b", "", "batch name, defaults to the file name")
	billingCmd.AddCommand(billingImportCmd)
	billingCmd.AddCommand(billingTotalsCmd)
	billingCmd.AddCommand(billingShowCmd)
}

func runBillingImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	batch := billingBatch
	if batch == "" {
		batch = path
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ingest.ReadBillingRecords(f)
	if err != nil {
		return err
	}

	n, err := newImporter().ImportBilling(ctx, batch, records)
	if err != nil {
		return fmt.Errorf("import billing: %w", err)
	}
	fmt.Println(defaultTheme.successStyle().Render(
		fmt.Sprintf("Imported %d billing events into batch %q", n, batch)))
	return nil
}

func runBillingTotals(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	totals, err := billingRepo.GetTotals(ctx)
	if err != nil {
		return fmt.Errorf("billing totals: %w", err)
	}

	fmt.Printf("Billing totals (%d events):\n", totals.Events)
	fmt.Printf("  input tokens:        %d\n", totals.InputTokens)
	fmt.Printf("  output tokens:       %d\n", totals.OutputTokens)
	fmt.Printf("  cache create tokens: %d\n", totals.CacheCreateTokens)
	fmt.Printf("  cache read tokens:   %d\n", totals.CacheReadTokens)
	fmt.Printf("  cost:                $%.4f\n", totals.CostUSD)
	return nil
}

func runBillingShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	events, err := billingRepo.GetByConversation(ctx, args[0])
	if err != nil {
		return fmt.Errorf("billing events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No billing events for this conversation.")
		return nil
	}

	fmt.Printf("Billing events (%d):\n\n", len(events))
	for _, e := range events {
		fmt.Printf("- %s  %s/%s\n", e.Timestamp, e.Model, e.Kind)
		fmt.Printf("  in: %d, out: %d, cache: +%d/%d, cost: $%.4f\n",
			e.InputTokens, e.OutputTokens, e.CacheCreateTokens, e.CacheReadTokens, e.CostUSD)
	}
	return nil
}
