package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store row counts",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	convCount, err := conversations.Count(ctx)
	if err != nil {
		return fmt.Errorf("count conversations: %w", err)
	}
	msgCount, err := messages.Count(ctx)
	if err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	billCount, err := billingRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count billing events: %w", err)
	}

	fmt.Println(defaultTheme.titleStyle().Render("Store contents"))
	fmt.Printf("  conversations:  %d\n", convCount)
	fmt.Printf("  messages:       %d\n", msgCount)
	fmt.Printf("  billing events: %d\n", billCount)

	snap := collector.Snapshot()
	if snap.StoreQuery != nil || snap.Search != nil {
		fmt.Println()
		fmt.Println(defaultTheme.titleStyle().Render("This session"))
		if s := snap.StoreQuery; s != nil {
			fmt.Printf("  store queries: %d (avg %.1fms)\n", s.Count, s.AvgTimeMs)
		}
		if s := snap.Search; s != nil {
			fmt.Printf("  searches:      %d (avg %.1fms)\n", s.Count, s.AvgTimeMs)
		}
	}
	return nil
}
