package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/botstats/internal/storage"
)

// Execute implements the go-flags Commander interface for StatsCommand.
func (c *StatsCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore prints the summary of a provided store (for testing).
func (c *StatsCommand) executeWithStore(ctx context.Context, store *storage.Store) error {
	summaries, err := storage.NewAggregator(store).AllStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	fmt.Printf("%-24s %10s  %-24s  %-24s\n", "EVENT", "CLICKS", "FIRST CLICK", "LAST CLICK")
	var total int64
	for _, s := range summaries {
		fmt.Printf("%-24s %10s  %-24s  %-24s\n", s.EventID, formatNumber(s.Count), orDash(s.FirstClick), orDash(s.LastClick))
		total += s.Count
	}
	fmt.Println()
	fmt.Printf("%d events, %s clicks\n", len(summaries), formatNumber(total))
	return nil
}
