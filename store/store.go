// Package store implements the row-oriented transactional database
// collaborator: connect/close, schema application, a begin/commit/
// rollback transaction that supports insert, update, upsert, and row
// count, and a stand-alone select over a table. Values move to and
// from the IR's Value variants; booleans round-trip as INTEGER 0/1,
// blobs as BLOB, verbatim.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// Column describes one column of a table: its name and the IR Kind
// its values are stored as.
type Column struct {
	Name string
	Kind ir.Kind
}

// TableSchema describes a single table's shape for ApplySchema.
type TableSchema struct {
	Name       string
	Columns    []Column
	PrimaryKey string
}

// Store wraps a single database/sql connection. In-memory databases
// (":memory:") use a single connection, matching the pool-size-one
// discipline sqlite requires for them.
type Store struct {
	db *sql.DB
}

// Connect opens a database at dsn using the pure-Go sqlite driver and
// verifies connectivity with a ping.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &edierrors.StoreError{Details: "store: failed to open database", Cause: err}
	}
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &edierrors.StoreError{Details: "store: failed to connect", Cause: err}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ApplySchema creates ts's table if it does not already exist.
func (s *Store) ApplySchema(ctx context.Context, ts TableSchema) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", quoteIdent(ts.Name))
	for i, col := range ts.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", quoteIdent(col.Name), sqlType(col.Kind))
		if col.Name == ts.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
	}
	b.WriteString(")")

	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return &edierrors.StoreError{Details: "store: failed to apply schema for " + ts.Name, Cause: err}
	}
	return nil
}

// Select returns up to limit rows from table (ordered by rowid),
// skipping offset rows, restricted to filter (a raw SQL WHERE clause
// fragment, empty for none) bound to filterArgs. columns describes how
// to decode each returned column back into an ir.Value.
func (s *Store) Select(ctx context.Context, table string, columns []Column, filter string, filterArgs []any, offset, limit int) ([]map[string]ir.Value, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = quoteIdent(c.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(names, ", "), quoteIdent(table))
	if filter != "" {
		fmt.Fprintf(&b, " WHERE %s", filter)
	}
	b.WriteString(" ORDER BY rowid LIMIT ? OFFSET ?")

	args := append(append([]any{}, filterArgs...), limit, offset)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, &edierrors.StoreError{Details: "store: select failed on " + table, Cause: err}
	}
	defer rows.Close()

	var out []map[string]ir.Value
	for rows.Next() {
		raw := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range dest {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &edierrors.StoreError{Details: "store: row scan failed on " + table, Cause: err}
		}

		row := make(map[string]ir.Value, len(columns))
		for i, col := range columns {
			row[col.Name] = nativeToValue(col.Kind, raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &edierrors.StoreError{Details: "store: row iteration failed on " + table, Cause: err}
	}
	return out, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(k ir.Kind) string {
	switch k {
	case ir.KindInteger, ir.KindBoolean:
		return "INTEGER"
	case ir.KindDecimal:
		return "REAL"
	case ir.KindBinary:
		return "BLOB"
	default:
		return "TEXT"
	}
}
