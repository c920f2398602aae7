package utils // package utils provides helpers for token creation, hashing and random secrets

import (
	"crypto/sha256" // SHA-256 digest of refresh tokens
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrMissingSecret is returned when a signing secret is not configured.
var ErrMissingSecret = errors.New("signing secret not configured")

// ErrWrongTokenType is returned when a token of one kind is presented where
// the other is expected.
var ErrWrongTokenType = errors.New("unexpected token type")

// Values of the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessClaims is the payload of an access token: the user id and nickname.
type AccessClaims struct {
	ID       uint64 `json:"id"`
	Nickname string `json:"nickname,omitempty"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.  It carries only the user
// id; the registered jti makes every issued token distinct even when two are
// minted within the same second.
type RefreshClaims struct {
	ID   uint64 `json:"id"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed access JWT along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a signed refresh JWT.  The Raw value goes back to
// the client; only HashRefreshRaw(Raw) is persisted.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// NewAccessToken builds and signs an HS256 JWT carrying {id, nickname}.
func NewAccessToken(secret string, userID uint64, nickname string, ttl time.Duration) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, ErrMissingSecret
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := AccessClaims{
		ID:       userID,
		Nickname: nickname,
		Type:     TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs an HS256 JWT carrying {id} with the
// refresh secret, which must differ from the access secret.
func NewRefreshToken(secret string, userID uint64, ttl time.Duration) (RefreshToken, error) {
	if secret == "" {
		return RefreshToken{}, ErrMissingSecret
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := RefreshClaims{
		ID:   userID,
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Raw: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry of an access token.  Errors
// wrap the jwt sentinels (jwt.ErrTokenExpired, jwt.ErrTokenMalformed,
// jwt.ErrTokenSignatureInvalid) so callers can classify them.  A token
// whose typ claim is not "access" fails with ErrWrongTokenType.
func ParseAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, raw, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseRefreshToken verifies signature, expiry and the "refresh" typ claim.
func ParseRefreshToken(secret, raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(secret, raw, claims); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func parse(secret, raw string, claims jwt.Claims) error {
	if secret == "" {
		return ErrMissingSecret
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return err
}

// HashRefreshRaw returns the SHA-256 hex digest of a raw refresh token.
// Only the digest is stored, so a leaked users table cannot mint sessions.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
