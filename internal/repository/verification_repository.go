package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/model"
)

// VerificationRepo stores single-use verification codes keyed by
// (email, purpose).
type VerificationRepo struct{}

func NewVerificationRepo() *VerificationRepo { return &VerificationRepo{} }

// ReplaceTx deletes any live record for (email, purpose) and inserts v.
func (r *VerificationRepo) ReplaceTx(ctx context.Context, tx *sql.Tx, v *model.VerificationToken, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM verification_tokens WHERE email=? AND purpose=?", v.Email, v.Purpose); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO verification_tokens (email, token, verification_code, purpose, expires_at, created_at)
			VALUES (?,?,?,?,?,?)`,
		v.Email, v.Token, v.VerificationCode, v.Purpose, ts(v.ExpiresAt), ts(now))
	if err != nil {
		return insertErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// FindTx looks up the record matching (email, code, purpose).
func (r *VerificationRepo) FindTx(ctx context.Context, tx *sql.Tx, email, code, purpose string) (model.VerificationToken, error) {
	var v model.VerificationToken
	err := tx.QueryRowContext(ctx,
		`SELECT id, email, token, verification_code, purpose, expires_at, created_at
			FROM verification_tokens WHERE email=? AND verification_code=? AND purpose=? LIMIT 1`,
		email, code, purpose).Scan(&v.ID, &v.Email, &v.Token, &v.VerificationCode, &v.Purpose, &v.ExpiresAt, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

// DeleteTx consumes a record.  ErrNotFound means another request consumed
// it first.
func (r *VerificationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM verification_tokens WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}
