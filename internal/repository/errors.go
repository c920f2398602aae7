// Package repository holds the SQL for every table group.  Sentinel errors
// below let the service layer tell failure scenarios apart without looking
// at driver errors: ErrNotFound for a missing (or not owned) row,
// ErrForbidden for a row owned by someone else and ErrConflict for a
// unique-key violation.
package repository

import "errors"

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update would violate a unique
// key, e.g. a taken email or nickname.
var ErrConflict = errors.New("conflict")
