package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/botstats/internal/storage"
)

func TestStatus_EmptyDB(t *testing.T) {
	store := setupTestStore(t)

	cmd := &StatusCommand{
		globals: &GlobalFlags{},
		version: "dev",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWithStore(context.Background(), store)
		require.NoError(t, err)
	})

	assert.Contains(t, output, "Bot Stats Status")
	assert.Contains(t, output, "Version:       dev")
	assert.Contains(t, output, "Clicks:        0")
	assert.Contains(t, output, "Events:        0")
	assert.Contains(t, output, "Timezone:      UTC")
	assert.Contains(t, output, "eventId")
	assert.Contains(t, output, "additionalData")
}

func TestStatus_JSON(t *testing.T) {
	store := setupTestStore(t, storage.WithColumns(storage.Column{Name: "chatId", Type: storage.TypeInteger}))
	recordEvents(t, store, "start", "start", "help")

	cmd := &StatusCommand{
		globals: &GlobalFlags{JSON: true},
		version: "1.0.0",
	}

	output := captureOutput(t, func() {
		err := cmd.executeWithStore(context.Background(), store)
		require.NoError(t, err)
	})

	var out statusJSON
	require.NoError(t, json.Unmarshal([]byte(output), &out))

	assert.Equal(t, "1.0.0", out.Version)
	assert.Equal(t, storage.MemoryPath, out.DatabasePath)
	assert.Greater(t, out.DatabaseSizeBytes, int64(0))
	assert.Equal(t, int64(3), out.TotalEvents)
	assert.Equal(t, 2, out.DistinctEvents)
	assert.Equal(t, "UTC", out.Timezone)
	assert.Equal(t, []columnJSON{
		{Name: "eventId", Type: "TEXT"},
		{Name: "userId", Type: "TEXT"},
		{Name: "timestamp", Type: "DATETIME"},
		{Name: "additionalData", Type: "TEXT"},
		{Name: "chatId", Type: "INTEGER"},
	}, out.Columns)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(1024*1024*3/2))
	assert.Equal(t, "2.0 GB", formatBytes(2*1<<30))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "12,345", formatNumber(12345))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}
