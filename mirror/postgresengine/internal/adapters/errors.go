package adapters

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	// SQLStateUniqueViolation is the PostgreSQL error code for unique_violation.
	SQLStateUniqueViolation = "23505"

	// SQLStateForeignKeyViolation is the PostgreSQL error code for foreign_key_violation.
	SQLStateForeignKeyViolation = "23503"
)

// SQLState extracts the PostgreSQL error code from pgx or lib/pq errors.
// It returns an empty string for errors that did not originate from the server.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}
