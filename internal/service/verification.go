package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/mail"
	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/utils"
)

// VerificationService runs the email ownership proof and the temporary
// password reset.
type VerificationService struct {
	db            *database.Handle
	users         *repository.UserRepo
	verifications *repository.VerificationRepo
	sender        mail.Sender
	ttl           time.Duration
	bcryptCost    int
	// echoCode returns the code in the response when mail delivery fails.
	// Only enabled in development.
	echoCode bool
	now      func() time.Time
	// replace writes the pending code; swapped in tests.
	replace func(ctx context.Context, tx *sql.Tx, v *model.VerificationToken, now time.Time) error
}

func NewVerificationService(db *database.Handle, users *repository.UserRepo, verifications *repository.VerificationRepo,
	sender mail.Sender, ttl time.Duration, bcryptCost int, echoCode bool) *VerificationService {
	return &VerificationService{
		db: db, users: users, verifications: verifications, sender: sender,
		ttl: ttl, bcryptCost: bcryptCost, echoCode: echoCode, now: time.Now,
		replace: verifications.ReplaceTx,
	}
}

// replaceAttempts bounds retries when a concurrent request for the same
// email wins the (email, purpose) unique key between delete and insert.
const replaceAttempts = 2

// storeCode replaces the pending record for v.Email.  Losing the race to a
// concurrent request is retried: the retry deletes the winner's row, so the
// latest request's code is the live one.
func (s *VerificationService) storeCode(ctx context.Context, v *model.VerificationToken, now time.Time) error {
	var err error
	for i := 0; i < replaceAttempts; i++ {
		err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
			return s.replace(ctx, tx, v, now)
		})
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		logger.Warn("verification code replace lost a race, retrying", "email", v.Email, "attempt", i+1)
	}
	return fmt.Errorf("replace verification code: %w", err)
}

// VerificationRequest reports the outcome of RequestVerification.
type VerificationRequest struct {
	Message          string `json:"message"`
	VerificationCode string `json:"verificationCode,omitempty"`
}

// RequestVerification replaces any pending signup code for email with a
// fresh one and mails it.  A failed delivery keeps the code usable.
func (s *VerificationService) RequestVerification(ctx context.Context, email string) (VerificationRequest, error) {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return VerificationRequest{}, validation("email is required")
	}
	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return VerificationRequest{}, mapErr("request verification", err, "email", email)
	}
	if exists {
		return VerificationRequest{}, conflict("email already registered")
	}

	code, err := utils.NewVerificationCode()
	if err != nil {
		return VerificationRequest{}, mapErr("request verification", err)
	}
	token, err := utils.NewOpaqueToken()
	if err != nil {
		return VerificationRequest{}, mapErr("request verification", err)
	}
	now := s.now()
	v := &model.VerificationToken{
		Email:            email,
		Token:            token,
		VerificationCode: code,
		Purpose:          model.PurposeEmailSignup,
		ExpiresAt:        now.Add(s.ttl),
	}
	if err := s.storeCode(ctx, v, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			logger.Error("request verification failed", "email", email, "error", err)
			return VerificationRequest{}, internal(err)
		}
		return VerificationRequest{}, mapErr("request verification", err, "email", email)
	}

	subject, html, err := mail.VerificationEmail(code, int(s.ttl/time.Hour))
	if err == nil {
		err = s.sender.Send(ctx, email, subject, html)
	}
	if err != nil {
		logger.Error("verification email failed", "email", email, "error", err)
		out := VerificationRequest{Message: "verification code created, but the email could not be sent"}
		if s.echoCode {
			out.VerificationCode = code
		}
		return out, nil
	}
	return VerificationRequest{Message: "verification email sent"}, nil
}

// VerifyEmail consumes the code for email.  Unknown codes are NOT_FOUND,
// stale ones VERIFICATION_EXPIRED.
func (s *VerificationService) VerifyEmail(ctx context.Context, email, code string) (string, error) {
	email = repository.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", validation("email and code are required")
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		v, err := s.verifications.FindTx(ctx, tx, email, code, model.PurposeEmailSignup)
		if err != nil {
			return err
		}
		if s.now().After(v.ExpiresAt) {
			return errVerificationExpired
		}
		return s.verifications.DeleteTx(ctx, tx, v.ID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return "", notFound("invalid verification code")
	}
	if err != nil {
		return "", mapErr("verify email", err, "email", email)
	}
	return email, nil
}

// ForgotPassword sets a random temporary password and mails it.  The result
// is the same whether or not the account exists.
func (s *VerificationService) ForgotPassword(ctx context.Context, email string) error {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return validation("email is required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return mapErr("forgot password", err)
	}
	temp, err := utils.NewTempPassword()
	if err != nil {
		return mapErr("forgot password", err, "user_id", u.ID)
	}
	hash, err := utils.HashPassword(temp, s.bcryptCost)
	if err != nil {
		return mapErr("forgot password", err, "user_id", u.ID)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, s.now()); err != nil {
		return mapErr("forgot password", err, "user_id", u.ID)
	}
	subject, html, err := mail.TempPasswordEmail(temp)
	if err == nil {
		err = s.sender.Send(ctx, email, subject, html)
	}
	if err != nil {
		logger.Error("temporary password email failed", "user_id", u.ID, "error", err)
	}
	return nil
}
