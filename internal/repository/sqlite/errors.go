package sqlite

import (
	"database/sql"
	"errors"
	"strings"
)

// isNoRows reports whether the error is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether the error is a SQLite uniqueness
// constraint violation. modernc.org/sqlite surfaces these as plain errors
// carrying the SQLITE_CONSTRAINT_UNIQUE message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
