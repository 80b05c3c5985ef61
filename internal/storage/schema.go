package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// TableName is the single events table.
const TableName = "bot_stats"

// Base column names.
const (
	ColEventID        = "eventId"
	ColUserID         = "userId"
	ColTimestamp      = "timestamp"
	ColAdditionalData = "additionalData"
)

// ColumnType is a declared SQLite storage type from a closed set.
type ColumnType string

const (
	TypeText     ColumnType = "TEXT"
	TypeInteger  ColumnType = "INTEGER"
	TypeReal     ColumnType = "REAL"
	TypeNumeric  ColumnType = "NUMERIC"
	TypeBlob     ColumnType = "BLOB"
	TypeDatetime ColumnType = "DATETIME"
	TypeBoolean  ColumnType = "BOOLEAN"
)

var supportedTypes = map[ColumnType]bool{
	TypeText:     true,
	TypeInteger:  true,
	TypeReal:     true,
	TypeNumeric:  true,
	TypeBlob:     true,
	TypeDatetime: true,
	TypeBoolean:  true,
}

// ParseColumnType normalizes s and checks it against the supported set.
func ParseColumnType(s string) (ColumnType, error) {
	t := ColumnType(strings.ToUpper(strings.TrimSpace(s)))
	if !supportedTypes[t] {
		return "", fmt.Errorf("unsupported column type %q", s)
	}
	return t, nil
}

// Column is one (name, declared type) pair of the events table.
type Column struct {
	Name string
	Type ColumnType
}

// BaseColumns returns the four columns every events table has.
func BaseColumns() []Column {
	return []Column{
		{Name: ColEventID, Type: TypeText},
		{Name: ColUserID, Type: TypeText},
		{Name: ColTimestamp, Type: TypeDatetime},
		{Name: ColAdditionalData, Type: TypeText},
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// buildColumns validates extension columns and appends them to the base set.
func buildColumns(extra []Column) ([]Column, error) {
	cols := BaseColumns()
	seen := make(map[string]bool, len(cols)+len(extra))
	for _, c := range cols {
		seen[strings.ToLower(c.Name)] = true
	}

	for _, c := range extra {
		if !identRe.MatchString(c.Name) {
			return nil, fmt.Errorf("invalid column name %q", c.Name)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[key] = true

		t, err := ParseColumnType(string(c.Type))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
		cols = append(cols, Column{Name: c.Name, Type: t})
	}

	return cols, nil
}

// createTableSQL renders the CREATE TABLE statement for cols.
func createTableSQL(cols []Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c.Name) + " " + string(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", TableName, strings.Join(defs, ", "))
}

// createTable runs the table DDL inside a transaction.
func createTable(ctx context.Context, db *sql.DB, cols []Column) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, createTableSQL(cols)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_event_ts ON %s (%s, %s)",
			TableName, TableName, quoteIdent(ColEventID), quoteIdent(ColTimestamp)),
	); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return tx.Commit()
}

// tableExists checks sqlite_master for the events table.
func tableExists(ctx context.Context, db *sql.DB) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", TableName,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// quoteIdent double-quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
