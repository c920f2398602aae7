package repository

import (
	"context"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
)

// TokenRepo persists refresh-token state.  A user holds at most one live
// refresh token: its SHA-256 digest and absolute expiry live on the users
// row, and every write overwrites the previous value.
type TokenRepo struct{ db *database.Handle }

func NewTokenRepo(db *database.Handle) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh overwrites the user's refresh token digest and expiry.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=?, refresh_token_expires_at=? WHERE id=?",
		tokenHash, ts(exp), userID)
	if err != nil {
		return err
	}
	return affected(res)
}

// RotateRefresh swaps oldHash for newHash in one conditional UPDATE.  The
// swap happens only while oldHash is still the stored digest and has not
// expired, so a superseded or replayed token never rotates and two
// concurrent refreshes with the same token cannot both win.  It returns
// false when nothing matched.
func (r *TokenRepo) RotateRefresh(ctx context.Context, userID uint64, oldHash, newHash string, newExp, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token_hash=?, refresh_token_expires_at=?
			WHERE id=? AND refresh_token_hash=? AND refresh_token_expires_at > ?`,
		newHash, ts(newExp), userID, oldHash, ts(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevokeAllForUser clears the stored refresh token.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=NULL, refresh_token_expires_at=NULL WHERE id=?",
		userID)
	return err
}
