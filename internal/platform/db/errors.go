package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// Postgres SQLSTATE codes mapped to application errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerializationFail   = "40001"
)

// TranslateError converts driver errors into apperr values. resource and id
// only decorate not-found errors.
func TranslateError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.CodeConflict, resource+" already exists", err).
				WithDetail("constraint", pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.CodeBusinessRule, resource+" references a missing or in-use record", err).
				WithDetail("constraint", pgErr.ConstraintName)
		case pgCheckViolation:
			return apperr.Wrap(apperr.CodeValidation, resource+" violates "+pgErr.ConstraintName, err)
		case pgSerializationFail:
			return apperr.Wrap(apperr.CodeConflict, "concurrent update, retry the request", err)
		}
	}
	return fmt.Errorf("%s: %w", resource, err)
}
