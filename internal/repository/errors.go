package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// translateConstraint maps constraint violations onto domain errors so raw
// storage codes never reach callers. fkErr and uniqueErr may be nil.
func translateConstraint(err error, fkErr, uniqueErr error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == pgForeignKeyViolation && fkErr != nil:
		return fmt.Errorf("%w: %s", fkErr, pgErr.ConstraintName)
	case pgErr.Code == pgUniqueViolation && uniqueErr != nil:
		return fmt.Errorf("%w: %s", uniqueErr, pgErr.ConstraintName)
	}
	return err
}
