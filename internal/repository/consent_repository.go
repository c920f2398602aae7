package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ConsentPrivacyPolicy is the consent_type recorded at signup.
const ConsentPrivacyPolicy = "privacy_policy"

// ConsentRepo records privacy-policy consents.  Both methods run inside the
// signup transaction so a failed consent leaves no user behind.
type ConsentRepo struct{}

func NewConsentRepo() *ConsentRepo { return &ConsentRepo{} }

// LatestPolicyVersionTx returns the id of the most recent policy version.
func (r *ConsentRepo) LatestPolicyVersionTx(ctx context.Context, tx *sql.Tx) (uint64, error) {
	var id uint64
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM privacy_policy_versions ORDER BY effective_date DESC, id DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// RecordTx stores an agreed consent for userID against policyVersionID.
func (r *ConsentRepo) RecordTx(ctx context.Context, tx *sql.Tx, userID, policyVersionID uint64, consentType, ip string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO privacy_policy_consents
			(user_id, policy_version_id, consent_type, is_agreed, ip_address, created_at)
			VALUES (?,?,?,?,?,?)`,
		userID, policyVersionID, consentType, true, ip, ts(now))
	return err
}
