package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/enrollment/internal/core"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// mapWriteError turns unique index violations into core.ErrDuplicateStudent,
// keeping the constraint name for the log. Other errors pass through.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w (%s)", core.ErrDuplicateStudent, pgErr.ConstraintName)
	case codeForeignKeyViolation, codeCheckViolation:
		return fmt.Errorf("constraint %s: %w", pgErr.ConstraintName, err)
	}
	return err
}
