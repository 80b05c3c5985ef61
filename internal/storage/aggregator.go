package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Aggregator answers read queries over the events table. Every call
// materializes a fresh result set; nothing is cached.
type Aggregator struct {
	store *Store
}

// NewAggregator creates an Aggregator reading through store.
func NewAggregator(store *Store) *Aggregator {
	return &Aggregator{store: store}
}

// EventStats returns every row whose eventId equals eventID exactly, most
// recent first. No match yields an empty slice.
func (a *Aggregator) EventStats(ctx context.Context, eventID string) ([]EventRecord, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ? ORDER BY %s DESC",
		TableName, quoteIdent(ColEventID), quoteIdent(ColTimestamp))

	rows, err := a.store.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, storageError("query event stats", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, storageError("read columns", err)
	}

	records := []EventRecord{}
	for rows.Next() {
		cells := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storageError("scan event", err)
		}
		records = append(records, recordFromRow(names, cells))
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate events", err)
	}

	return records, nil
}

func recordFromRow(names []string, cells []any) EventRecord {
	var rec EventRecord
	for i, name := range names {
		v := cells[i]
		switch name {
		case ColEventID:
			rec.EventID = textValue(v)
		case ColUserID:
			rec.UserID = optionalText(v)
		case ColTimestamp:
			rec.Timestamp = timestampString(v)
		case ColAdditionalData:
			rec.AdditionalData = optionalText(v)
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec.Extra[name] = v
		}
	}
	return rec
}

// AllStats returns one summary per distinct eventId, ordered by eventId.
func (a *Aggregator) AllStats(ctx context.Context) ([]EventSummary, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS count, MIN(%[2]s) AS firstClick, MAX(%[2]s) AS lastClick
		FROM %[3]s
		GROUP BY %[1]s
		ORDER BY %[1]s`,
		quoteIdent(ColEventID), quoteIdent(ColTimestamp), TableName)

	rows, err := a.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("query summary", err)
	}
	defer rows.Close()

	summaries := []EventSummary{}
	for rows.Next() {
		var (
			id          sql.NullString
			first, last any
			s           EventSummary
		)
		if err := rows.Scan(&id, &s.Count, &first, &last); err != nil {
			return nil, storageError("scan summary", err)
		}
		s.EventID = id.String
		s.FirstClick = timestampString(first)
		s.LastClick = timestampString(last)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate summary", err)
	}

	return summaries, nil
}

// TimeSeries counts events per (bucket, eventId) in the store's default
// location, ascending by bucket.
func (a *Aggregator) TimeSeries(ctx context.Context, period string) ([]TimeBucket, error) {
	return a.TimeSeriesIn(ctx, period, a.store.loc)
}

// TimeSeriesIn is TimeSeries with buckets truncated in loc. Unrecognized
// periods fall back to day buckets.
func (a *Aggregator) TimeSeriesIn(ctx context.Context, period string, loc *time.Location) ([]TimeBucket, error) {
	if loc == nil {
		loc = a.store.loc
	}
	p := ParsePeriod(period)
	zone, release := bindLocation(loc)
	defer release()

	query := fmt.Sprintf(`
		SELECT %[1]s(%[2]s, ?, ?) AS period, %[3]s, COUNT(*) AS count
		FROM %[4]s
		GROUP BY 1, 2
		ORDER BY 1 ASC, 2 ASC`,
		bucketFuncName, quoteIdent(ColTimestamp), quoteIdent(ColEventID), TableName)

	rows, err := a.store.db.QueryContext(ctx, query, string(p), zone)
	if err != nil {
		return nil, storageError("query time series", err)
	}
	defer rows.Close()

	buckets := []TimeBucket{}
	for rows.Next() {
		var (
			label sql.NullString
			id    sql.NullString
			b     TimeBucket
		)
		if err := rows.Scan(&label, &id, &b.Count); err != nil {
			return nil, storageError("scan time series", err)
		}
		b.Period = label.String
		b.EventID = id.String
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate time series", err)
	}

	return buckets, nil
}

func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func optionalText(v any) *string {
	if v == nil {
		return nil
	}
	s := textValue(v)
	return &s
}
