// Package storage persists click events in a single SQLite table and answers
// the aggregate queries the dashboard needs.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DriverName is the database/sql driver registered by this package. It is
// the stock sqlite3 driver plus the time bucketing function.
const DriverName = "sqlite3_botstats"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(bucketFuncName, bucketSQL, true)
		},
	})
}

// Store owns the single database handle shared by a Recorder and an
// Aggregator. Open it once, Close it once.
type Store struct {
	db      *sql.DB
	path    string
	columns []Column
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
	created bool

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	columns     []Column
	loc         *time.Location
	now         func() time.Time
	log         *zap.Logger
	journalMode string
	busyTimeout time.Duration
}

// Option configures Open.
type Option func(*options)

// WithColumns adds extension columns after the four base columns.
func WithColumns(cols ...Column) Option {
	return func(o *options) { o.columns = append(o.columns, cols...) }
}

// WithLocation sets the zone time-series buckets are computed in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithClock replaces time.Now for timestamp stamping.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithJournalMode sets the SQLite journal mode (wal, delete, truncate...).
func WithJournalMode(mode string) Option {
	return func(o *options) { o.journalMode = mode }
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// Open opens (creating if absent) the database at path. When the file did
// not exist beforehand the events table is created; an existing file is
// used as is, without any schema comparison.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	o := options{
		loc:         time.Local,
		now:         time.Now,
		log:         zap.NewNop(),
		journalMode: "wal",
		busyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cols, err := buildColumns(o.columns)
	if err != nil {
		return nil, schemaError("validate columns", err)
	}

	if path == "" {
		return nil, connectionError("open database", errors.New("empty path"))
	}

	inMemory := path == MemoryPath
	existed := false
	if !inMemory {
		if _, err := os.Stat(path); err == nil {
			existed = true
		} else if !os.IsNotExist(err) {
			return nil, connectionError("stat database file", err)
		}

		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, connectionError("create database directory", err)
			}
		}
	}

	dsn, err := buildDSN(path, o, inMemory)
	if err != nil {
		return nil, connectionError("configure database", err)
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, connectionError("open database", err)
	}
	// One connection: the single shared handle. It also keeps an in-memory
	// database alive and visible to every caller.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connectionError("ping database", err)
	}

	s := &Store{
		db:      db,
		path:    path,
		columns: cols,
		loc:     o.loc,
		now:     o.now,
		log:     o.log,
	}

	if existed {
		s.log.Info("database exists, skipping table creation", zap.String("path", path))
		ok, err := tableExists(ctx, db)
		if err != nil {
			db.Close()
			return nil, connectionError("inspect database", err)
		}
		if !ok {
			s.log.Warn("events table missing from existing database",
				zap.String("path", path), zap.String("table", TableName))
		}
		return s, nil
	}

	if err := createTable(ctx, db, cols); err != nil {
		db.Close()
		return nil, schemaError("create events table", err)
	}
	s.created = true
	s.log.Info("events table created",
		zap.String("path", path),
		zap.String("table", TableName),
		zap.Int("columns", len(cols)))

	return s, nil
}

// buildDSN appends the sqlite3 driver parameters to path.
func buildDSN(path string, o options, inMemory bool) (string, error) {
	var params []string
	if o.busyTimeout > 0 {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", o.busyTimeout.Milliseconds()))
	}

	if !inMemory && o.journalMode != "" {
		mode := strings.ToUpper(o.journalMode)
		switch mode {
		case "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
		default:
			return "", fmt.Errorf("unsupported journal mode %q", o.journalMode)
		}
		params = append(params, "_journal_mode="+mode)
	}

	if len(params) == 0 {
		return path, nil
	}
	return path + "?" + strings.Join(params, "&"), nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string { return s.path }

// Created reports whether this Open created the events table.
func (s *Store) Created() bool { return s.created }

// Location returns the default zone for time-series buckets.
func (s *Store) Location() *time.Location { return s.loc }

// Columns returns the configured column set, base columns first.
func (s *Store) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Count returns the total number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n)
	if err != nil {
		return 0, storageError("count events", err)
	}
	return n, nil
}

// SizeBytes returns the database size. For on-disk databases it uses
// os.Stat; otherwise page_count * page_size.
func (s *Store) SizeBytes(ctx context.Context) int64 {
	if s.path != MemoryPath {
		if info, err := os.Stat(s.path); err == nil {
			return info.Size()
		}
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// Close closes the database handle. Calls after the first return the
// first call's result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
