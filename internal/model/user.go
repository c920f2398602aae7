package model

import "time"

// User represents a row in the `users` table.  The struct is used by the
// repository and service layers only; responses go through PublicUser so
// the password hash and refresh state never leave the process.
//
// Fields:
//
//	ID                    – primary key identifier of the user.
//	Email                 – unique, lower-cased email address.
//	Nickname              – unique display name, nil when unset.
//	PasswordHash          – bcrypt hash of the password.
//	PasswordChangedAt     – last password change, nil if never changed.
//	RefreshTokenHash      – SHA-256 digest of the single live refresh token.
//	RefreshTokenExpiresAt – absolute expiry of that refresh token.
type User struct {
	ID                    uint64
	Email                 string
	Nickname              *string
	PasswordHash          string
	PasswordChangedAt     *time.Time
	RefreshTokenHash      *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PublicUser is the user summary returned to clients.
type PublicUser struct {
	ID        uint64     `json:"id"`
	Email     string     `json:"email"`
	Nickname  *string    `json:"nickname"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Public converts the record into its client-facing summary.
func (u User) Public() PublicUser {
	created := u.CreatedAt
	return PublicUser{ID: u.ID, Email: u.Email, Nickname: u.Nickname, CreatedAt: &created}
}
