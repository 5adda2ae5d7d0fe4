package stores

import (
	"database/sql"
	"time"
)

// nullString wraps a string, treating "" as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTimeNano wraps a time as UnixNano, treating the zero time as NULL.
func nullTimeNano(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

// timeFromNano converts a nullable UnixNano back to a time. NULL maps to the
// zero time.
func timeFromNano(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.Unix(0, n.Int64)
}
