// Package db pkg/db/sql_wrappers.go holds small helpers shared by the store
// implementations.
package db

import (
	"database/sql"

	"github.com/charmbracelet/log"
)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// CloseRows safely closes a Rows type and logs any error.
func CloseRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", "error", err)
	}
}

func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}

	return ""
}
