package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/botstats/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string       `json:"version"`
	DatabasePath      string       `json:"database_path"`
	DatabaseSizeBytes int64        `json:"database_size_bytes"`
	TotalEvents       int64        `json:"total_events"`
	DistinctEvents    int          `json:"distinct_events"`
	Timezone          string       `json:"timezone"`
	Columns           []columnJSON `json:"columns"`
}

type columnJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(ctx context.Context, store *storage.Store) error {
	total, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	summaries, err := storage.NewAggregator(store).AllStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      store.Path(),
		DatabaseSizeBytes: store.SizeBytes(ctx),
		TotalEvents:       total,
		DistinctEvents:    len(summaries),
		Timezone:          store.Location().String(),
	}
	for _, col := range store.Columns() {
		out.Columns = append(out.Columns, columnJSON{Name: col.Name, Type: string(col.Type)})
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	return c.printStatusHuman(out)
}

func (c *StatusCommand) printStatusHuman(out statusJSON) error {
	fmt.Println("Bot Stats Status")
	fmt.Println("================")
	fmt.Printf("Version:       %s\n", out.Version)
	fmt.Printf("Database:      %s (%s)\n", out.DatabasePath, formatBytes(out.DatabaseSizeBytes))
	fmt.Printf("Clicks:        %s\n", formatNumber(out.TotalEvents))
	fmt.Printf("Events:        %d\n", out.DistinctEvents)
	fmt.Printf("Timezone:      %s\n", out.Timezone)

	fmt.Println()
	fmt.Println("Columns:")
	for _, col := range out.Columns {
		fmt.Printf("  %-20s %s\n", col.Name, col.Type)
	}
	return nil
}
