package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// either as autocommit queries or inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ts normalises timestamps before they are written: UTC, whole seconds.
// SQLite compares DATETIME values as text, so every stored value must share
// one layout.
func ts(t time.Time) time.Time { return t.UTC().Truncate(time.Second) }

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func strArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// idArgs converts ids into driver args for an IN list.
func idArgs(ids []uint64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// affected maps "no row matched" to ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insertErr translates a unique-key violation into ErrConflict.
func insertErr(err error) error {
	if database.IsUniqueViolation(err) {
		return ErrConflict
	}
	return err
}
