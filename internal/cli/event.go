package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/runnerr0/botstats/internal/storage"
)

// Execute implements the go-flags Commander interface for EventCommand.
func (c *EventCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for event command")
	}
	if c.Limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore prints one event from a provided store (for testing).
func (c *EventCommand) executeWithStore(ctx context.Context, store *storage.Store) error {
	records, err := storage.NewAggregator(store).EventStats(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	total := len(records)
	if c.Limit > 0 && len(records) > c.Limit {
		records = records[:c.Limit]
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(records)
	}

	if total == 0 {
		fmt.Printf("No clicks recorded for %q.\n", c.ID)
		return nil
	}

	fmt.Printf("Event %s: %s clicks\n\n", c.ID, formatNumber(int64(total)))
	fmt.Printf("%-24s  %-16s  %s\n", "TIMESTAMP", "USER", "DATA")
	for _, r := range records {
		user, data := "-", "-"
		if r.UserID != nil {
			user = *r.UserID
		}
		if r.AdditionalData != nil {
			data = *r.AdditionalData
		}
		fmt.Printf("%-24s  %-16s  %s\n", r.Timestamp, user, data)
		names := make([]string, 0, len(r.Extra))
		for name := range r.Extra {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-24s  %-16s  %s=%v\n", "", "", name, r.Extra[name])
		}
	}
	if len(records) < total {
		fmt.Printf("\n(showing %d of %d)\n", len(records), total)
	}
	return nil
}
