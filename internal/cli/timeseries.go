package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/botstats/internal/storage"
)

// Execute implements the go-flags Commander interface for TimeSeriesCommand.
func (c *TimeSeriesCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore prints bucketed counts from a provided store (for testing).
func (c *TimeSeriesCommand) executeWithStore(ctx context.Context, store *storage.Store) error {
	var loc *time.Location
	if c.TZ != "" {
		l, err := time.LoadLocation(c.TZ)
		if err != nil {
			return fmt.Errorf("invalid --tz %q: %w", c.TZ, err)
		}
		loc = l
	}

	buckets, err := storage.NewAggregator(store).TimeSeriesIn(ctx, c.Period, loc)
	if err != nil {
		return fmt.Errorf("get time series: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(buckets)
	}

	if len(buckets) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	fmt.Printf("%-20s %-24s %10s\n", "PERIOD ("+string(storage.ParsePeriod(c.Period))+")", "EVENT", "CLICKS")
	for _, b := range buckets {
		fmt.Printf("%-20s %-24s %10s\n", orDash(b.Period), b.EventID, formatNumber(b.Count))
	}
	return nil
}
