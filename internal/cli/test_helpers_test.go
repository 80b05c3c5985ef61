package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/botstats/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testClock hands out successive minutes starting at start.
type testClock struct {
	next time.Time
}

func (c *testClock) Now() time.Time {
	t := c.next
	c.next = c.next.Add(time.Minute)
	return t
}

// setupTestStore opens an in-memory store in UTC whose clock starts at
// 2024-03-05 09:30 UTC and advances one minute per recorded event.
func setupTestStore(t *testing.T, opts ...storage.Option) *storage.Store {
	t.Helper()
	clock := &testClock{next: time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)}
	opts = append([]storage.Option{
		storage.WithLocation(time.UTC),
		storage.WithClock(clock.Now),
	}, opts...)

	store, err := storage.Open(context.Background(), storage.MemoryPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// recordEvents records one click per id, in order.
func recordEvents(t *testing.T, store *storage.Store, ids ...string) {
	t.Helper()
	rec := storage.NewRecorder(store)
	user := "u1"
	for _, id := range ids {
		require.NoError(t, rec.Record(context.Background(), storage.Event{EventID: id, UserID: &user}))
	}
}
