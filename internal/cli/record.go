package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/botstats/internal/storage"
)

type recordJSON struct {
	Status  string `json:"status"`
	EventID string `json:"eventId"`
}

// Execute implements the go-flags Commander interface for RecordCommand.
func (c *RecordCommand) Execute(args []string) error {
	if c.Event == "" {
		return fmt.Errorf("--event is required for record command")
	}
	return withStore(c.globals, c.executeWithStore)
}

// executeWithStore records the event into a provided store (for testing).
func (c *RecordCommand) executeWithStore(ctx context.Context, store *storage.Store) error {
	fields, err := parseFields(c.Fields)
	if err != nil {
		return err
	}

	ev := storage.Event{
		EventID: c.Event,
		Fields:  fields,
	}
	if c.User != "" {
		ev.UserID = &c.User
	}
	if c.Data != "" {
		ev.AdditionalData = c.Data
	}

	if err := storage.NewRecorder(store).Record(ctx, ev); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(recordJSON{Status: "recorded", EventID: c.Event})
	}
	fmt.Printf("Recorded %s\n", c.Event)
	return nil
}
