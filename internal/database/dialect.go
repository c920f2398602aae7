package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// Dialect names the SQL flavour of the driver behind a Handle.  Repository
// SQL is written to be portable; the few statements that are not ask the
// dialect for the right spelling.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

// InsertIgnore returns the INSERT prefix that silently skips rows violating
// a unique key.  Join tables rely on it to make re-adding a pairing a no-op.
func (d Dialect) InsertIgnore() string {
	if d == SQLite {
		return "INSERT OR IGNORE INTO"
	}
	return "INSERT IGNORE INTO"
}

// ForUpdate returns the locking clause appended to ownership reads inside a
// transaction.  SQLite locks the whole database for a write transaction and
// has no such clause.
func (d Dialect) ForUpdate() string {
	if d == SQLite {
		return ""
	}
	return " FOR UPDATE"
}

// FoldCase wraps a text column for case-insensitive comparison against a
// pattern lower-cased with strings.ToLower.  NULL folds to ''.
func (d Dialect) FoldCase(expr string) string {
	if d == SQLite {
		return "fold_case(COALESCE(" + expr + ", ''))"
	}
	return "LOWER(COALESCE(" + expr + ", ''))"
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// IsUniqueViolation reports whether err was raised by a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Placeholders returns "?,?,?" with n markers for IN lists.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// EscapeLike escapes LIKE wildcards in user input.  Patterns built from the
// result must use `ESCAPE '!'`, a spelling both dialects accept.
func EscapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
