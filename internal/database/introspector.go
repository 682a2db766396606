// Package database streams text-bearing column values out of a relational
// database, one LogicalDocument per non-empty value.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/buscador/internal/config"
	berrors "github.com/Aman-CERP/buscador/internal/errors"
)

// Column is a column name with its declared type.
type Column struct {
	Name         string
	DeclaredType string
}

// Introspector lists a schema and reads column values.
type Introspector interface {
	// ListTables returns the base tables of the target schema.
	ListTables(ctx context.Context) ([]string, error)

	// ListColumns returns table's columns in ordinal order.
	ListColumns(ctx context.Context, table string) ([]Column, error)

	// QueryColumn calls fn for every non-null, non-empty value of the column,
	// cast to text. Returning an error from fn stops the scan with that error.
	QueryColumn(ctx context.Context, table, column string, fn func(value string) error) error

	// Name identifies the target for logs, without credentials.
	Name() string

	Close() error
}

// dialect holds the catalog queries that differ between drivers.
type dialect struct {
	driverName   string
	listTables   string
	listColumns  string
	withSchema   bool
	qualifyTable bool
}

var (
	postgresDialect = dialect{
		driverName: "pgx",
		listTables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`,
		listColumns: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
		withSchema:   true,
		qualifyTable: true,
	}
	sqliteDialect = dialect{
		driverName: "sqlite",
		listTables: `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		listColumns: `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
	}
)

// SQLIntrospector implements Introspector over database/sql.
type SQLIntrospector struct {
	db      *sql.DB
	dialect dialect
	schema  string
	name    string
}

// Open connects to the configured database and verifies the connection.
// Connection failures are retried, then reported as ERR_301_DATABASE_UNAVAILABLE.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*SQLIntrospector, error) {
	var d dialect
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		d = postgresDialect
	case config.DriverSQLite:
		d = sqliteDialect
	default:
		return nil, berrors.New(berrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unsupported database driver %q", cfg.Driver), nil)
	}

	db, err := sql.Open(d.driverName, cfg.ConnString())
	if err != nil {
		return nil, berrors.DatabaseError("failed to open database", err).
			WithDetail("target", cfg.Redacted())
	}

	_, err = berrors.Retry(ctx, berrors.DefaultRetryConfig(), func(ctx context.Context) (struct{}, error) {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			return struct{}{}, berrors.DatabaseError("database unavailable", pingErr).
				WithDetail("target", cfg.Redacted())
		}
		return struct{}{}, nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &SQLIntrospector{db: db, dialect: d, schema: schema, name: cfg.Redacted()}, nil
}

// Name implements Introspector.
func (s *SQLIntrospector) Name() string { return s.name }

// Close implements Introspector.
func (s *SQLIntrospector) Close() error { return s.db.Close() }

// ListTables implements Introspector.
func (s *SQLIntrospector) ListTables(ctx context.Context) ([]string, error) {
	var args []any
	if s.dialect.withSchema {
		args = append(args, s.schema)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.listTables, args...)
	if err != nil {
		return nil, berrors.New(berrors.ErrCodeSchemaQueryFailed, "failed to list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, berrors.New(berrors.ErrCodeSchemaQueryFailed, "failed to read table name", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, berrors.New(berrors.ErrCodeSchemaQueryFailed, "failed to list tables", err)
	}
	return tables, nil
}

// ListColumns implements Introspector.
func (s *SQLIntrospector) ListColumns(ctx context.Context, table string) ([]Column, error) {
	args := []any{table}
	if s.dialect.withSchema {
		args = []any{s.schema, table}
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.listColumns, args...)
	if err != nil {
		return nil, berrors.New(berrors.ErrCodeSchemaQueryFailed, "failed to list columns", err).
			WithDetail("table", table)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DeclaredType); err != nil {
			return nil, berrors.New(berrors.ErrCodeSchemaQueryFailed, "failed to read column", err).
				WithDetail("table", table)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, berrors.New(berrors.ErrCodeSchemaQueryFailed, "failed to list columns", err).
			WithDetail("table", table)
	}
	return cols, nil
}

// QueryColumn implements Introspector.
func (s *SQLIntrospector) QueryColumn(ctx context.Context, table, column string, fn func(string) error) error {
	rows, err := s.db.QueryContext(ctx, s.projection(table, column))
	if err != nil {
		return columnError("column query failed", err, table, column)
	}
	defer rows.Close()

	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return columnError("failed to read value", err, table, column)
		}
		if !v.Valid || v.String == "" {
			continue
		}
		if err := fn(v.String); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return columnError("column query failed", err, table, column)
	}
	return nil
}

// projection selects the column as text, skipping NULL and empty values.
// The column is qualified by its table: SQLite reads an unresolved bare
// "name" as a string literal, but rejects an unresolved table.column.
func (s *SQLIntrospector) projection(table, column string) string {
	ref := quoteIdent(table) + "." + quoteIdent(column)
	col := "CAST(" + ref + " AS TEXT)"
	from := quoteIdent(table)
	if s.dialect.qualifyTable {
		from = quoteIdent(s.schema) + "." + from
	}
	return "SELECT " + col + " FROM " + from +
		" WHERE " + ref + " IS NOT NULL AND " + col + " <> ''"
}

// quoteIdent double-quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnError(msg string, err error, table, column string) error {
	return berrors.New(berrors.ErrCodeSchemaQueryFailed, msg, err).
		WithDetail("table", table).
		WithDetail("column", column)
}
