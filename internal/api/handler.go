package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/runnerr0/botstats/internal/storage"
)

// EventRecorder stores one decoded JSON body as an event.
type EventRecorder interface {
	RecordFields(ctx context.Context, data map[string]any) error
}

// StatsQuerier answers the read endpoints.
type StatsQuerier interface {
	AllStats(ctx context.Context) ([]storage.EventSummary, error)
	EventStats(ctx context.Context, eventID string) ([]storage.EventRecord, error)
	TimeSeriesIn(ctx context.Context, period string, loc *time.Location) ([]storage.TimeBucket, error)
}

// Handler serves the dashboard API on top of a recorder and an aggregator.
type Handler struct {
	recorder   EventRecorder
	stats      StatsQuerier
	log        *zap.Logger
	eventLimit int
}

// NewHandler wires the handler. eventLimit caps /api/event/:id responses
// when the request carries no limit; zero means unlimited.
func NewHandler(recorder EventRecorder, stats StatsQuerier, log *zap.Logger, eventLimit int) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{recorder: recorder, stats: stats, log: log, eventLimit: eventLimit}
}

// GetStats returns one summary per event id.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.stats.AllStats(c.UserContext())
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(stats)
}

// GetTimeSeries returns per-period counts. ?period defaults to day, ?tz is
// an optional IANA zone name.
func (h *Handler) GetTimeSeries(c *fiber.Ctx) error {
	period := c.Query("period", string(storage.PeriodDay))

	var loc *time.Location
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return h.fail(c, fiber.StatusBadRequest, fmt.Errorf("invalid tz %q", tz))
		}
		loc = l
	}

	buckets, err := h.stats.TimeSeriesIn(c.UserContext(), period, loc)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(buckets)
}

// GetEvent returns the rows of one event id, newest first.
func (h *Handler) GetEvent(c *fiber.Ctx) error {
	limit := h.eventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return h.fail(c, fiber.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
		}
		limit = n
	}

	// Route params arrive still percent-encoded.
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, fmt.Errorf("invalid event id: %w", err))
	}

	records, err := h.stats.EventStats(c.UserContext(), id)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, err)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return c.JSON(records)
}

// CreateEvent records one JSON object as a click event.
func (h *Handler) CreateEvent(c *fiber.Ctx) error {
	data, err := decodeObject(c.Body())
	if err != nil {
		return h.fail(c, fiber.StatusBadRequest, err)
	}

	if err := h.recorder.RecordFields(c.UserContext(), data); err != nil {
		switch {
		case errors.Is(err, storage.ErrValidation),
			errors.Is(err, storage.ErrSerialization):
			return h.fail(c, fiber.StatusBadRequest, err)
		default:
			return h.fail(c, fiber.StatusInternalServerError, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(StatusResponse{Status: "recorded"})
}

// Health reports liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{Status: "ok"})
}

func (h *Handler) fail(c *fiber.Ctx, status int, err error) error {
	reqID := requestID(c)
	if status >= fiber.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", reqID),
			zap.Error(err))
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error(), RequestID: reqID})
}

// decodeObject parses a JSON object body. Top-level numbers become int64
// when they are integral so they bind as integers.
func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if data == nil {
		return nil, errors.New("invalid json: expected an object")
	}

	for k, v := range data {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			data[k] = i
		} else if f, err := n.Float64(); err == nil {
			data[k] = f
		}
	}
	return data, nil
}
