package storage

import (
	"fmt"
	"time"
)

// TimestampLayout is how event timestamps are persisted: UTC, millisecond
// precision, fixed width so that text order is time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// parseTimestamp tries several common SQLite timestamp formats.
// Values without a zone are read as UTC, matching SQLite's own date functions.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// timestampString converts a scanned timestamp cell to its string form.
// The sqlite3 driver hands back time.Time for DATETIME columns and plain
// text for aggregates over them.
func timestampString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return FormatTimestamp(t)
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
