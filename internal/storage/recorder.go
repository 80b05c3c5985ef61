package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var errMissingEventID = errors.New("eventId is required")

// Recorder appends events to the store. It holds no locks; concurrent
// Record calls each issue one independent INSERT.
type Recorder struct {
	store *Store
}

// NewRecorder creates a Recorder writing through store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Record stamps ev with the current time and inserts it as one row.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if ev.EventID == "" {
		return validationError("record event", errMissingEventID)
	}

	cols := []string{ColTimestamp, ColEventID}
	vals := []any{FormatTimestamp(r.store.now()), ev.EventID}

	if ev.UserID != nil {
		cols = append(cols, ColUserID)
		vals = append(vals, *ev.UserID)
	}

	if ev.AdditionalData != nil {
		data, err := encodeAdditionalData(ev.AdditionalData)
		if err != nil {
			return serializationError("encode additionalData", err)
		}
		cols = append(cols, ColAdditionalData)
		vals = append(vals, data)
	}

	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		switch k {
		case ColTimestamp:
			// always overwritten by the stamp
			continue
		case ColEventID, ColUserID, ColAdditionalData:
			return validationError("record event", fmt.Errorf("field %q must be set on the event itself", k))
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cols = append(cols, k)
		vals = append(vals, ev.Fields[k])
	}

	if _, err := r.store.db.ExecContext(ctx, insertSQL(cols), vals...); err != nil {
		return storageError("insert event", err)
	}

	r.store.log.Debug("event recorded",
		zap.String("event_id", ev.EventID),
		zap.Int("columns", len(cols)))
	return nil
}

// RecordFields records a loosely typed payload such as a decoded JSON body.
// eventId, userId and additionalData are lifted onto the Event; every other
// key goes to Fields.
func (r *Recorder) RecordFields(ctx context.Context, data map[string]any) error {
	var ev Event
	for k, v := range data {
		switch k {
		case ColEventID:
			s, ok := v.(string)
			if !ok {
				return validationError("record event", fmt.Errorf("eventId must be a string, got %T", v))
			}
			ev.EventID = s
		case ColUserID:
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return validationError("record event", fmt.Errorf("userId must be a string, got %T", v))
			}
			ev.UserID = &s
		case ColAdditionalData:
			ev.AdditionalData = v
		default:
			if ev.Fields == nil {
				ev.Fields = make(map[string]any)
			}
			ev.Fields[k] = v
		}
	}
	return r.Record(ctx, ev)
}

// encodeAdditionalData turns metadata into the string that gets stored.
func encodeAdditionalData(v any) (string, error) {
	switch d := v.(type) {
	case string:
		return d, nil
	case json.RawMessage:
		return string(d), nil
	case []byte:
		return string(d), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func insertSQL(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(quoted, ", "), placeholders)
}
