package storage

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Period is a time-series bucket granularity.
type Period string

const (
	PeriodHour  Period = "hour"
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod maps s to a Period. Only the exact lowercase names are
// recognized; anything else falls back to PeriodDay.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodHour:
		return PeriodHour
	case PeriodMonth:
		return PeriodMonth
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodDay
	}
}

// Label renders the bucket t falls into, in t's location.
//
//	hour  2024-03-05 14:00:00
//	day   2024-03-05
//	month 2024-03-01
//	year  2024-01-01
func (p Period) Label(t time.Time) string {
	y, m, d := t.Date()
	switch p {
	case PeriodHour:
		return fmt.Sprintf("%04d-%02d-%02d %02d:00:00", y, int(m), d, t.Hour())
	case PeriodMonth:
		return fmt.Sprintf("%04d-%02d-01", y, int(m))
	case PeriodYear:
		return fmt.Sprintf("%04d-01-01", y)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
	}
}

// bucketFuncName is the SQL function registered on every connection.
const bucketFuncName = "botstats_bucket"

var (
	locations sync.Map // zone name or per-query token -> *time.Location
	zoneSeq   atomic.Uint64
)

// zoneTokenPrefix cannot start an IANA zone name, so tokens never shadow one.
const zoneTokenPrefix = "@zone/"

// loadLocation resolves a per-query token or an IANA zone name, caching
// the latter.
func loadLocation(name string) (*time.Location, error) {
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location), nil
	}
	if strings.HasPrefix(name, zoneTokenPrefix) {
		return nil, fmt.Errorf("unknown zone token %q", name)
	}
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locations.Store(name, loc)
	return loc, nil
}

// bindLocation registers loc under a fresh token for the duration of one
// query. Zone names are not unique (time.FixedZone accepts any name, even
// an empty one), so the SQL function never resolves a caller's zone by name.
func bindLocation(loc *time.Location) (token string, release func()) {
	token = fmt.Sprintf("%s%d", zoneTokenPrefix, zoneSeq.Add(1))
	locations.Store(token, loc)
	return token, func() { locations.Delete(token) }
}

// bucketSQL is the body of botstats_bucket(ts, period, zone). NULL or
// unparseable timestamps land in the "" bucket instead of failing the query.
func bucketSQL(ts any, period string, zone string) (string, error) {
	loc, err := loadLocation(zone)
	if err != nil {
		return "", err
	}

	raw := timestampString(ts)
	if raw == "" {
		return "", nil
	}
	t, err := parseTimestamp(raw)
	if err != nil {
		return "", nil
	}

	return ParsePeriod(period).Label(t.In(loc)), nil
}
