// Package service implements the wardrobe core: credentials, tokens,
// verification codes, the garment catalog and the plan composer.  Every
// operation reports failures as *Error so the HTTP layer can map them to a
// status code and a stable machine-readable code.
package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindAccessTokenRequired
	KindAccessTokenExpired
	KindInvalidAccessToken
	KindTokenExpired
	KindTokenInvalid
	KindForbidden
	KindNotFound
	KindExpired
	KindServerConfiguration
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindExpired:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth, KindAccessTokenRequired, KindAccessTokenExpired:
		return http.StatusUnauthorized
	case KindInvalidAccessToken, KindTokenExpired, KindTokenInvalid, KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type returned by every service operation.  Code is the
// stable identifier sent to clients; Message is human readable.  Err keeps
// the underlying cause for logs and is never sent to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validation(msg string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: msg}
}

func conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: msg}
}

func forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: msg}
}

func serverConfiguration(err error) *Error {
	return &Error{Kind: KindServerConfiguration, Code: "SERVER_CONFIGURATION_ERROR", Message: "server configuration error", Err: err}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "internal server error", Err: err}
}

var (
	errInvalidCredentials  = &Error{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	errWrongPassword       = &Error{Kind: KindAuth, Code: "INVALID_CREDENTIALS", Message: "current password does not match"}
	errAccessRequired      = &Error{Kind: KindAccessTokenRequired, Code: "ACCESS_TOKEN_REQUIRED", Message: "access token required"}
	errAccessExpired       = &Error{Kind: KindAccessTokenExpired, Code: "ACCESS_TOKEN_EXPIRED", Message: "access token expired"}
	errAccessInvalid       = &Error{Kind: KindInvalidAccessToken, Code: "INVALID_ACCESS_TOKEN", Message: "invalid access token"}
	errRefreshRequired     = &Error{Kind: KindAccessTokenRequired, Code: "REFRESH_TOKEN_REQUIRED", Message: "refresh token required"}
	errRefreshExpired      = &Error{Kind: KindTokenExpired, Code: "REFRESH_TOKEN_EXPIRED", Message: "refresh token expired"}
	errRefreshInvalid      = &Error{Kind: KindTokenInvalid, Code: "INVALID_REFRESH_TOKEN", Message: "invalid or superseded refresh token"}
	errVerificationExpired = &Error{Kind: KindExpired, Code: "VERIFICATION_EXPIRED", Message: "verification code expired"}
)
