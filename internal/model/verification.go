package model

import "time"

// PurposeEmailSignup is the verification_tokens.purpose of signup codes.
const PurposeEmailSignup = "email_signup"

// VerificationToken mirrors a row in `verification_tokens`.  At most one row
// exists per (Email, Purpose).
type VerificationToken struct {
	ID               uint64
	Email            string
	Token            string
	VerificationCode string
	Purpose          string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}
