package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestRecord_AdditionalDataRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := NewRecorder(store).Record(ctx, Event{
		EventID:        "button_start",
		UserID:         strPtr("42"),
		AdditionalData: map[string]any{"a": 1},
	})
	require.NoError(t, err)

	got, err := NewAggregator(store).EventStats(ctx, "button_start")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NotNil(t, got[0].AdditionalData)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(*got[0].AdditionalData), &decoded))
	assert.Equal(t, map[string]any{"a": float64(1)}, decoded)

	require.NotNil(t, got[0].UserID)
	assert.Equal(t, "42", *got[0].UserID)
}

func TestRecord_StringAdditionalDataStoredVerbatim(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	require.NoError(t, rec.Record(ctx, Event{EventID: "a", AdditionalData: "not json {"}))
	require.NoError(t, rec.Record(ctx, Event{EventID: "b", AdditionalData: json.RawMessage(`{"x":true}`)}))

	agg := NewAggregator(store)
	a, err := agg.EventStats(ctx, "a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "not json {", *a[0].AdditionalData)

	b, err := agg.EventStats(ctx, "b")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, `{"x":true}`, *b[0].AdditionalData)
}

func TestRecord_OptionalFieldsStayNull(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, NewRecorder(store).Record(ctx, Event{EventID: "bare"}))

	got, err := NewAggregator(store).EventStats(ctx, "bare")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].UserID)
	assert.Nil(t, got[0].AdditionalData)
	assert.NotEmpty(t, got[0].Timestamp)
}

func TestRecord_EmptyUserIDIsNotNull(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	require.NoError(t, rec.Record(ctx, Event{EventID: "typed", UserID: strPtr("")}))
	require.NoError(t, rec.RecordFields(ctx, map[string]any{"eventId": "decoded", "userId": ""}))

	agg := NewAggregator(store)
	for _, id := range []string{"typed", "decoded"} {
		got, err := agg.EventStats(ctx, id)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].UserID, id)
		assert.Equal(t, "", *got[0].UserID, id)
	}
}

func TestRecord_CallerTimestampIsOverwritten(t *testing.T) {
	clock := newTestClock(day1)
	store := openTestStore(t, WithClock(clock.Now))
	ctx := context.Background()

	err := NewRecorder(store).Record(ctx, Event{
		EventID: "click",
		Fields:  map[string]any{"timestamp": "1999-01-01"},
	})
	require.NoError(t, err)

	got, err := NewAggregator(store).EventStats(ctx, "click")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-05T09:30:00.000Z", got[0].Timestamp)
}

func TestRecord_TimestampCloseToNow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	require.NoError(t, NewRecorder(store).RecordFields(ctx, map[string]any{
		"eventId":   "click",
		"timestamp": "1999-01-01",
	}))
	after := time.Now().Add(time.Second)

	got, err := NewAggregator(store).EventStats(ctx, "click")
	require.NoError(t, err)
	require.Len(t, got, 1)

	ts, err := got[0].Time()
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "timestamp %s not near insertion", ts)
}

func TestRecord_MissingEventID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := NewRecorder(store).Record(ctx, Event{UserID: strPtr("u1")})
	assert.ErrorIs(t, err, ErrValidation)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRecord_BaseColumnInFieldsRejected(t *testing.T) {
	store := openTestStore(t)

	err := NewRecorder(store).Record(context.Background(), Event{
		EventID: "click",
		Fields:  map[string]any{"userId": "sneaky"},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecord_UnknownColumnLeavesTableUnchanged(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	require.NoError(t, rec.Record(ctx, Event{EventID: "click"}))

	err := rec.Record(ctx, Event{
		EventID: "click",
		Fields:  map[string]any{"nonexistent": "x"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, KindStorage, KindOf(err))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecord_QuotedColumnNamesCannotInject(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := NewRecorder(store).Record(ctx, Event{
		EventID: "click",
		Fields:  map[string]any{`x") VALUES (1); DROP TABLE bot_stats; --`: 1},
	})
	assert.ErrorIs(t, err, ErrStorage)

	_, err = store.Count(ctx)
	assert.NoError(t, err)
}

func TestRecord_SerializationFailureWritesNothing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	type node struct {
		Next *node `json:"next"`
	}
	cyclic := &node{}
	cyclic.Next = cyclic

	unserializable := []any{
		make(chan int),
		func() {},
		math.NaN(),
		cyclic,
	}
	for _, v := range unserializable {
		err := rec.Record(ctx, Event{EventID: "click", AdditionalData: v})
		assert.ErrorIs(t, err, ErrSerialization, "value %T", v)
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestRecord_ExtensionFieldsPersisted(t *testing.T) {
	store := openTestStore(t, WithColumns(
		Column{Name: "chatId", Type: TypeInteger},
		Column{Name: "lang", Type: TypeText},
	))
	ctx := context.Background()

	err := NewRecorder(store).Record(ctx, Event{
		EventID: "menu",
		Fields:  map[string]any{"chatId": 1001, "lang": "ru"},
	})
	require.NoError(t, err)

	got, err := NewAggregator(store).EventStats(ctx, "menu")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1001), got[0].Extra["chatId"])
	assert.Equal(t, "ru", got[0].Extra["lang"])

	raw, err := json.Marshal(got[0])
	require.NoError(t, err)
	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Equal(t, "menu", flat["eventId"])
	assert.Equal(t, "ru", flat["lang"])
	assert.Equal(t, float64(1001), flat["chatId"])
	assert.Contains(t, flat, "userId")
	assert.Nil(t, flat["userId"])
}

func TestRecordFields_SplitsPayload(t *testing.T) {
	store := openTestStore(t, WithColumns(Column{Name: "lang", Type: TypeText}))
	ctx := context.Background()
	rec := NewRecorder(store)

	err := rec.RecordFields(ctx, map[string]any{
		"eventId":        "help",
		"userId":         "7",
		"additionalData": map[string]any{"source": "inline"},
		"lang":           "en",
	})
	require.NoError(t, err)

	got, err := NewAggregator(store).EventStats(ctx, "help")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", *got[0].UserID)
	assert.JSONEq(t, `{"source":"inline"}`, *got[0].AdditionalData)
	assert.Equal(t, "en", got[0].Extra["lang"])
}

func TestRecordFields_TypeChecksBaseFields(t *testing.T) {
	store := openTestStore(t)
	rec := NewRecorder(store)
	ctx := context.Background()

	assert.ErrorIs(t, rec.RecordFields(ctx, map[string]any{"eventId": 12}), ErrValidation)
	assert.ErrorIs(t, rec.RecordFields(ctx, map[string]any{"eventId": "x", "userId": 5}), ErrValidation)
	assert.ErrorIs(t, rec.RecordFields(ctx, map[string]any{}), ErrValidation)
	assert.NoError(t, rec.RecordFields(ctx, map[string]any{"eventId": "x", "userId": nil}))
}

func TestRecord_ConcurrentWriters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				errs <- rec.Record(ctx, Event{
					EventID: "click",
					UserID:  strPtr(fmt.Sprintf("user-%d", w)),
				})
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stats, err := NewAggregator(store).AllStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(writers*perWriter), stats[0].Count)
}

func TestRecord_SequentialTimestampsNonDecreasing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	rec := NewRecorder(store)

	for i := 0; i < 20; i++ {
		require.NoError(t, rec.Record(ctx, Event{EventID: "tick"}))
	}

	got, err := NewAggregator(store).EventStats(ctx, "tick")
	require.NoError(t, err)
	require.Len(t, got, 20)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Timestamp, got[i].Timestamp)
	}
}

func TestInsertSQL(t *testing.T) {
	got := insertSQL([]string{"timestamp", "eventId", "lang"})
	assert.Equal(t,
		`INSERT INTO bot_stats ("timestamp", "eventId", "lang") VALUES (?, ?, ?)`,
		got)
}
