package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/edicraft/edipipe/edierrors"
	"github.com/edicraft/edipipe/ir"
)

// Transaction scopes a sequence of Insert/Update/Upsert/RowCount calls
// against one table, finalized by Commit or Rollback.
type Transaction struct {
	tx    *sql.Tx
	table string
}

// BeginTransaction starts a transaction scoped to table.
func (s *Store) BeginTransaction(ctx context.Context, table string) (*Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &edierrors.StoreError{Details: "store: failed to begin transaction", Cause: err}
	}
	return &Transaction{tx: tx, table: table}, nil
}

// Commit finalizes the transaction.
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return &edierrors.StoreError{Details: "store: commit failed", Cause: err}
	}
	return nil
}

// Rollback discards the transaction.
func (t *Transaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return &edierrors.StoreError{Details: "store: rollback failed", Cause: err}
	}
	return nil
}

// Insert appends one row, keyed by column name.
func (t *Transaction) Insert(ctx context.Context, row map[string]ir.Value) error {
	cols, args, err := rowArgs(row)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		quoted[i] = quoteIdent(c)
	}

	stmt := "INSERT INTO " + quoteIdent(t.table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := t.tx.ExecContext(ctx, stmt, args...); err != nil {
		return &edierrors.StoreError{Details: "store: insert failed on " + t.table, Cause: err}
	}
	return nil
}

// Update overwrites the row(s) whose key column equals keyValue with
// the columns present in row.
func (t *Transaction) Update(ctx context.Context, key string, keyValue ir.Value, row map[string]ir.Value) error {
	cols, args, err := rowArgs(row)
	if err != nil {
		return err
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quoteIdent(c) + " = ?"
	}

	keyArg, err := valueToSQL(keyValue)
	if err != nil {
		return err
	}
	args = append(args, keyArg)

	stmt := "UPDATE " + quoteIdent(t.table) + " SET " + strings.Join(sets, ", ") + " WHERE " + quoteIdent(key) + " = ?"
	if _, err := t.tx.ExecContext(ctx, stmt, args...); err != nil {
		return &edierrors.StoreError{Details: "store: update failed on " + t.table, Cause: err}
	}
	return nil
}

// Upsert inserts row, or updates it in place when a row with the same
// key column value already exists.
func (t *Transaction) Upsert(ctx context.Context, key string, row map[string]ir.Value) error {
	cols, args, err := rowArgs(row)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	updateSets := make([]string, 0, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		quoted[i] = quoteIdent(c)
		if c != key {
			updateSets = append(updateSets, quoteIdent(c)+" = excluded."+quoteIdent(c))
		}
	}

	stmt := "INSERT INTO " + quoteIdent(t.table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")" +
		" ON CONFLICT(" + quoteIdent(key) + ") DO UPDATE SET " + strings.Join(updateSets, ", ")

	if _, err := t.tx.ExecContext(ctx, stmt, args...); err != nil {
		return &edierrors.StoreError{Details: "store: upsert failed on " + t.table, Cause: err}
	}
	return nil
}

// RowCount reports the current row count of the transaction's table,
// as seen within the transaction.
func (t *Transaction) RowCount(ctx context.Context) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(t.table)).Scan(&count)
	if err != nil {
		return 0, &edierrors.StoreError{Details: "store: row count failed on " + t.table, Cause: err}
	}
	return count, nil
}

func rowArgs(row map[string]ir.Value) ([]string, []any, error) {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	args := make([]any, len(cols))
	for i, c := range cols {
		v, err := valueToSQL(row[c])
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return cols, args, nil
}
