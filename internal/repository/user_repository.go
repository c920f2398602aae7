package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/model"
)

const userColumns = `id, email, nickname, password_hash, password_changed_at,
	refresh_token_hash, refresh_token_expires_at, created_at, updated_at`

type UserRepo struct{ db *database.Handle }

func NewUserRepo(db *database.Handle) *UserRepo { return &UserRepo{db: db} }

// NormalizeEmail lower-cases and trims an address before any lookup.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var (
		u          model.User
		nickname   sql.NullString
		changedAt  sql.NullTime
		refresh    sql.NullString
		refreshExp sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &nickname, &u.PasswordHash, &changedAt,
		&refresh, &refreshExp, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.Nickname = nullString(nickname)
	u.PasswordChangedAt = nullTime(changedAt)
	u.RefreshTokenHash = nullString(refresh)
	u.RefreshTokenExpiresAt = nullTime(refreshExp)
	return u, nil
}

// CreateTx inserts a user inside tx and returns the stored row.  A taken
// email or nickname surfaces as ErrConflict; the unique keys are the
// authoritative guard, any pre-check is only an optimisation.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, email, passwordHash string, nickname *string, now time.Time) (model.User, error) {
	now = ts(now)
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, nickname, password_hash, created_at, updated_at) VALUES (?,?,?,?,?)",
		NormalizeEmail(email), strArg(nickname), passwordHash, now, now)
	if err != nil {
		return model.User{}, insertErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return scanUser(tx.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=?", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// EmailExists reports whether an account already uses email.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email=?", NormalizeEmail(email)).Scan(&n)
	return n > 0, err
}

// NicknameTaken reports whether another user (id != exceptID) holds nickname.
func (r *UserRepo) NicknameTaken(ctx context.Context, nickname string, exceptID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE nickname=? AND id<>?", nickname, exceptID).Scan(&n)
	return n > 0, err
}

// UpdateNickname sets a new nickname.  ErrConflict when it is taken.
func (r *UserRepo) UpdateNickname(ctx context.Context, id uint64, nickname string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET nickname=?, updated_at=? WHERE id=?", nickname, ts(now), id)
	if err != nil {
		return insertErr(err)
	}
	return affected(res)
}

// UpdatePassword stores a new hash, records password_changed_at and clears
// the stored refresh token so existing refresh sessions end.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string, now time.Time) error {
	now = ts(now)
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash=?, password_changed_at=?, refresh_token_hash=NULL,
			refresh_token_expires_at=NULL, updated_at=? WHERE id=?`,
		passwordHash, now, now, id)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeleteTx removes a user and everything they own.  Foreign keys cascade in
// both schemas; the explicit deletes keep the purge correct on stores where
// foreign keys are switched off.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	stmts := []string{
		"DELETE FROM plan_items WHERE plan_id IN (SELECT id FROM plans WHERE user_id=?)",
		"DELETE FROM plan_items WHERE clothes_id IN (SELECT id FROM clothes WHERE user_id=?)",
		"DELETE FROM plans WHERE user_id=?",
		"DELETE FROM clothes_seasons WHERE clothes_id IN (SELECT id FROM clothes WHERE user_id=?)",
		"DELETE FROM clothes WHERE user_id=?",
		"DELETE FROM privacy_policy_consents WHERE user_id=?",
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}
