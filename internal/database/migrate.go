package database

import (
	"context"
	"fmt"
)

// DefaultPolicyVersion is seeded when privacy_policy_versions is empty so a
// fresh deployment can accept signups.
const DefaultPolicyVersion = "2024-01"

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		nickname VARCHAR(64) NULL,
		password_hash VARCHAR(255) NOT NULL,
		password_changed_at DATETIME NULL,
		refresh_token_hash CHAR(64) NULL,
		refresh_token_expires_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email),
		UNIQUE KEY uq_users_nickname (nickname)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS privacy_policy_versions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		version VARCHAR(32) NOT NULL,
		effective_date DATE NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS privacy_policy_consents (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		policy_version_id BIGINT UNSIGNED NOT NULL,
		consent_type VARCHAR(32) NOT NULL,
		is_agreed BOOLEAN NOT NULL,
		ip_address VARCHAR(64) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_consents_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_consents_policy FOREIGN KEY (policy_version_id) REFERENCES privacy_policy_versions(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS verification_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		token CHAR(64) NOT NULL,
		verification_code CHAR(6) NOT NULL,
		purpose VARCHAR(32) NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_verification_email_purpose (email, purpose)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seasons (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL,
		UNIQUE KEY uq_seasons_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS clothes (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(64) NULL,
		brand VARCHAR(255) NULL,
		color VARCHAR(64) NULL,
		image_url VARCHAR(1024) NULL,
		metadata JSON NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_clothes_user (user_id, created_at),
		CONSTRAINT fk_clothes_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS clothes_seasons (
		clothes_id BIGINT UNSIGNED NOT NULL,
		season_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (clothes_id, season_id),
		CONSTRAINT fk_cs_clothes FOREIGN KEY (clothes_id) REFERENCES clothes(id) ON DELETE CASCADE,
		CONSTRAINT fk_cs_season FOREIGN KEY (season_id) REFERENCES seasons(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS plans (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NULL,
		plan_date DATE NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_plans_user_date (user_id, plan_date),
		CONSTRAINT fk_plans_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS plan_items (
		plan_id BIGINT UNSIGNED NOT NULL,
		clothes_id BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (plan_id, clothes_id),
		CONSTRAINT fk_pi_plan FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE CASCADE,
		CONSTRAINT fk_pi_clothes FOREIGN KEY (clothes_id) REFERENCES clothes(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		nickname TEXT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		password_changed_at DATETIME NULL,
		refresh_token_hash TEXT NULL,
		refresh_token_expires_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS privacy_policy_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL,
		effective_date DATE NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS privacy_policy_consents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		policy_version_id INTEGER NOT NULL REFERENCES privacy_policy_versions(id),
		consent_type TEXT NOT NULL,
		is_agreed BOOLEAN NOT NULL,
		ip_address TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS verification_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		token TEXT NOT NULL,
		verification_code TEXT NOT NULL,
		purpose TEXT NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (email, purpose)
	)`,
	`CREATE TABLE IF NOT EXISTS seasons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS clothes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NULL,
		brand TEXT NULL,
		color TEXT NULL,
		image_url TEXT NULL,
		metadata TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clothes_user ON clothes(user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS clothes_seasons (
		clothes_id INTEGER NOT NULL REFERENCES clothes(id) ON DELETE CASCADE,
		season_id INTEGER NOT NULL REFERENCES seasons(id) ON DELETE CASCADE,
		PRIMARY KEY (clothes_id, season_id)
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NULL,
		plan_date DATE NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_user_date ON plans(user_id, plan_date)`,
	`CREATE TABLE IF NOT EXISTS plan_items (
		plan_id INTEGER NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		clothes_id INTEGER NOT NULL REFERENCES clothes(id) ON DELETE CASCADE,
		PRIMARY KEY (plan_id, clothes_id)
	)`,
}

// Migrate creates the schema for the handle's dialect and seeds the
// default privacy policy version.  Every statement is idempotent.
func Migrate(ctx context.Context, h *Handle) error {
	schema := mysqlSchema
	if h.Dialect == SQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := h.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	var n int
	if err := h.QueryRowContext(ctx, `SELECT COUNT(*) FROM privacy_policy_versions`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count policy versions: %w", err)
	}
	if n == 0 {
		if _, err := h.ExecContext(ctx,
			`INSERT INTO privacy_policy_versions (version, effective_date) VALUES (?, ?)`,
			DefaultPolicyVersion, "2024-01-01"); err != nil {
			return fmt.Errorf("failed to seed policy version: %w", err)
		}
	}
	return nil
}
