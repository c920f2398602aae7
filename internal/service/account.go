package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/wardrobe-planner/internal/database"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/storage"
	"github.com/iliyamo/wardrobe-planner/internal/utils"
)

// MinPasswordLength applies to new passwords on change.
const MinPasswordLength = 8

// AccountService is the credential store: signup, password changes,
// nickname changes and account deletion.
type AccountService struct {
	db         *database.Handle
	users      *repository.UserRepo
	consents   *repository.ConsentRepo
	garments   *repository.GarmentRepo
	store      storage.ObjectStore
	bcryptCost int
	now        func() time.Time
}

func NewAccountService(db *database.Handle, users *repository.UserRepo, consents *repository.ConsentRepo,
	garments *repository.GarmentRepo, store storage.ObjectStore, bcryptCost int) *AccountService {
	return &AccountService{
		db: db, users: users, consents: consents, garments: garments,
		store: store, bcryptCost: bcryptCost, now: time.Now,
	}
}

// RegisterInput is the validated signup request.
type RegisterInput struct {
	Email        string
	Password     string
	Nickname     string
	ConsentGiven bool
	IP           string
}

// Register creates an account and records privacy-policy consent in one
// transaction.  A taken email or nickname is a conflict; the unique keys
// decide, the nickname pre-check only saves a bcrypt round.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (model.PublicUser, error) {
	email := repository.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return model.PublicUser{}, validation("email and password are required")
	}
	if !strings.Contains(email, "@") {
		return model.PublicUser{}, validation("email is not valid")
	}
	if !in.ConsentGiven {
		return model.PublicUser{}, validation("privacy policy consent is required")
	}
	var nickname *string
	if n := strings.TrimSpace(in.Nickname); n != "" {
		nickname = &n
		taken, err := s.users.NicknameTaken(ctx, n, 0)
		if err != nil {
			return model.PublicUser{}, mapErr("register", err)
		}
		if taken {
			return model.PublicUser{}, conflict("nickname already in use")
		}
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.PublicUser{}, mapErr("register", err)
	}

	var user model.User
	now := s.now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		u, err := s.users.CreateTx(ctx, tx, email, hash, nickname, now)
		if err != nil {
			return err
		}
		policyID, err := s.consents.LatestPolicyVersionTx(ctx, tx)
		if errors.Is(err, repository.ErrNotFound) {
			return errors.New("no privacy policy version configured")
		}
		if err != nil {
			return err
		}
		if err := s.consents.RecordTx(ctx, tx, u.ID, policyID, repository.ConsentPrivacyPolicy, in.IP, now); err != nil {
			return err
		}
		user = u
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		if nickname != nil {
			if taken, _ := s.users.NicknameTaken(ctx, *nickname, 0); taken {
				return model.PublicUser{}, conflict("nickname already in use")
			}
		}
		return model.PublicUser{}, conflict("email already registered")
	}
	if err != nil {
		return model.PublicUser{}, mapErr("register", err, "email", email)
	}
	logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user.Public(), nil
}

// VerifyPassword checks plain against a stored bcrypt hash.
func (s *AccountService) VerifyPassword(plain, hash string) bool {
	return utils.VerifyPassword(hash, plain)
}

// ChangePassword replaces the password after checking the current one.
// The stored refresh token is cleared; issued access tokens stay valid
// until they expire.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if current == "" || next == "" {
		return validation("current and new password are required")
	}
	if len(next) < MinPasswordLength {
		return validation("new password must be at least 8 characters")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return mapErr("change password", err, "user_id", userID)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return errWrongPassword
	}
	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return mapErr("change password", err, "user_id", userID)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, s.now()); err != nil {
		return mapErr("change password", err, "user_id", userID)
	}
	logger.Info("password changed", "user_id", userID)
	return nil
}

// ChangeNickname sets a new unique nickname.
func (s *AccountService) ChangeNickname(ctx context.Context, userID uint64, nickname string) (model.PublicUser, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return model.PublicUser{}, validation("nickname is required")
	}
	taken, err := s.users.NicknameTaken(ctx, nickname, userID)
	if err != nil {
		return model.PublicUser{}, mapErr("change nickname", err, "user_id", userID)
	}
	if taken {
		return model.PublicUser{}, conflict("nickname already in use")
	}
	if err := s.users.UpdateNickname(ctx, userID, nickname, s.now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return model.PublicUser{}, conflict("nickname already in use")
		case errors.Is(err, repository.ErrNotFound):
			return model.PublicUser{}, notFound("user not found")
		}
		return model.PublicUser{}, mapErr("change nickname", err, "user_id", userID)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.PublicUser{}, mapErr("change nickname", err, "user_id", userID)
	}
	return u.Public(), nil
}

// DeleteAccount removes the user with all garments, plans and consents in
// one transaction, then deletes the garment images best-effort.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint64) error {
	var images []string
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		urls, err := s.garments.ImageURLsTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := s.users.DeleteTx(ctx, tx, userID); err != nil {
			return err
		}
		images = urls
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user not found")
		}
		return mapErr("delete account", err, "user_id", userID)
	}
	for _, url := range images {
		deleteImage(ctx, s.store, url)
	}
	logger.Info("account deleted", "user_id", userID)
	return nil
}

// Profile returns the public summary of userID.
func (s *AccountService) Profile(ctx context.Context, userID uint64) (model.PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PublicUser{}, notFound("user not found")
	}
	if err != nil {
		return model.PublicUser{}, mapErr("profile", err, "user_id", userID)
	}
	return u.Public(), nil
}
