package database

import (
	"context"
	"database/sql"
	"fmt"
)

// WithTx runs fn inside one transaction on a single pooled connection.
// The transaction commits only when fn returns nil; any error, including
// one detected after earlier statements succeeded, rolls everything back.
// A panic in fn is rolled back and re-raised.  The connection goes back to
// the pool on every path.
//
// fn must only use tx.  No external service calls belong inside fn; do them
// before the transaction or after it commits.
func (h *Handle) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := h.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
