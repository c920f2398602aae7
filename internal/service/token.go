package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/model"
	"github.com/iliyamo/wardrobe-planner/internal/repository"
	"github.com/iliyamo/wardrobe-planner/internal/utils"
)

// Principal is the authenticated caller.
type Principal struct {
	ID       uint64
	Nickname string
}

// AuthResult is returned by Login and Refresh.
type AuthResult struct {
	AccessToken      string           `json:"accessToken"`
	AccessExpiresAt  time.Time        `json:"accessTokenExpiresAt"`
	RefreshToken     string           `json:"refreshToken"`
	RefreshExpiresAt time.Time        `json:"refreshTokenExpiresAt"`
	User             model.PublicUser `json:"user"`
}

// TokenConfig carries signing secrets and lifetimes.  The two secrets must
// differ: an empty secret or a shared one makes every token operation fail
// closed.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService issues, verifies and rotates access/refresh token pairs.
type TokenService struct {
	users  *repository.UserRepo
	tokens *repository.TokenRepo
	cfg    TokenConfig
	now    func() time.Time
}

func NewTokenService(users *repository.UserRepo, tokens *repository.TokenRepo, cfg TokenConfig) *TokenService {
	return &TokenService{users: users, tokens: tokens, cfg: cfg, now: time.Now}
}

var errSharedSecret = errors.New("access and refresh secrets are identical")

func (s *TokenService) checkSecrets() error {
	if s.cfg.AccessSecret == "" || s.cfg.RefreshSecret == "" {
		logger.Error("JWT secrets not configured")
		return serverConfiguration(utils.ErrMissingSecret)
	}
	if s.cfg.AccessSecret == s.cfg.RefreshSecret {
		logger.Error("JWT_SECRET and REFRESH_TOKEN_SECRET must differ")
		return serverConfiguration(errSharedSecret)
	}
	return nil
}

// Login verifies credentials and issues a fresh pair.  The stored refresh
// token is overwritten, so any earlier refresh token stops working.  An
// unknown email and a wrong password produce the same error.
func (s *TokenService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, validation("email and password are required")
	}
	if err := s.checkSecrets(); err != nil {
		return AuthResult{}, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, errInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, mapErr("login", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return AuthResult{}, errInvalidCredentials
	}

	res, refreshHash, err := s.issue(u)
	if err != nil {
		return AuthResult{}, mapErr("login", err, "user_id", u.ID)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, refreshHash, res.RefreshExpiresAt); err != nil {
		return AuthResult{}, mapErr("login", err, "user_id", u.ID)
	}
	logger.Info("user logged in", "user_id", u.ID)
	return res, nil
}

// Refresh exchanges a refresh token for a new pair.  The token must verify
// and must also still be the stored one; a superseded token fails with
// INVALID_REFRESH_TOKEN even though its signature is valid.
func (s *TokenService) Refresh(ctx context.Context, raw string) (AuthResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AuthResult{}, errRefreshRequired
	}
	if err := s.checkSecrets(); err != nil {
		return AuthResult{}, err
	}
	claims, err := utils.ParseRefreshToken(s.cfg.RefreshSecret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AuthResult{}, errRefreshExpired
		}
		logger.Warn("refresh token rejected", "error", err)
		return AuthResult{}, errRefreshInvalid
	}
	if claims.ID == 0 {
		return AuthResult{}, errRefreshInvalid
	}

	u, err := s.users.GetByID(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, errRefreshInvalid
	}
	if err != nil {
		return AuthResult{}, mapErr("refresh", err, "user_id", claims.ID)
	}

	res, newHash, err := s.issue(u)
	if err != nil {
		return AuthResult{}, mapErr("refresh", err, "user_id", u.ID)
	}
	ok, err := s.tokens.RotateRefresh(ctx, u.ID, utils.HashRefreshRaw(raw), newHash, res.RefreshExpiresAt, s.now())
	if err != nil {
		return AuthResult{}, mapErr("refresh", err, "user_id", u.ID)
	}
	if !ok {
		logger.Warn("refresh token reuse or expiry detected", "user_id", u.ID)
		return AuthResult{}, errRefreshInvalid
	}
	return res, nil
}

// Authenticate validates a bearer access token.
func (s *TokenService) Authenticate(raw string) (Principal, error) {
	if strings.TrimSpace(raw) == "" {
		return Principal{}, errAccessRequired
	}
	if err := s.checkSecrets(); err != nil {
		return Principal{}, err
	}
	claims, err := utils.ParseAccessToken(s.cfg.AccessSecret, raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, errAccessExpired
		}
		return Principal{}, errAccessInvalid
	}
	if claims.ID == 0 {
		return Principal{}, errAccessInvalid
	}
	return Principal{ID: claims.ID, Nickname: claims.Nickname}, nil
}

// Logout clears the stored refresh token of userID.
func (s *TokenService) Logout(ctx context.Context, userID uint64) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return mapErr("logout", err, "user_id", userID)
	}
	return nil
}

func (s *TokenService) issue(u model.User) (AuthResult, string, error) {
	nickname := ""
	if u.Nickname != nil {
		nickname = *u.Nickname
	}
	access, err := utils.NewAccessToken(s.cfg.AccessSecret, u.ID, nickname, s.cfg.AccessTTL)
	if err != nil {
		return AuthResult{}, "", err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshSecret, u.ID, s.cfg.RefreshTTL)
	if err != nil {
		return AuthResult{}, "", err
	}
	pub := u.Public()
	pub.CreatedAt = nil
	return AuthResult{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.Exp,
		RefreshToken:     refresh.Raw,
		RefreshExpiresAt: refresh.Exp,
		User:             pub,
	}, utils.HashRefreshRaw(refresh.Raw), nil
}
