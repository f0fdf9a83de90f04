package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Unique indexes the services rely on.
const (
	ConstraintPaidWeek   = "payments_paid_week_uq"
	ConstraintActiveLoan = "loans_one_active_per_client_uq"
)

// ConstraintError reports a unique index violation.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsConstraint reports whether err violates the named unique index.
func IsConstraint(err error, name string) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Constraint == name
}

// translate maps driver errors onto ErrNotFound and ConstraintError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &ConstraintError{Constraint: pqErr.Constraint, Err: err}
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		// SQLite names the columns, not the index.
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "payments.loan_id, payments.week"):
			return &ConstraintError{Constraint: ConstraintPaidWeek, Err: err}
		case strings.Contains(msg, "loans.client_id"):
			return &ConstraintError{Constraint: ConstraintActiveLoan, Err: err}
		default:
			return &ConstraintError{Constraint: "unique", Err: err}
		}
	}

	return err
}
