package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE class for unique constraint violations.
const uniqueViolation = "23505"

// isUniqueViolation reports whether the error is a unique constraint
// violation, letting repositories translate it to a domain duplicate error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
