package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"

	"github.com/rentory/rentory-backend/pkg/errors"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeSerialization       = "40001"
	codeQueryCanceled       = "57014"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case codeCheckViolation:
		return mapCheckConstraint(pqErr)

	case codeUniqueViolation:
		return errors.Conflict(formatConstraintMessage(pqErr)).
			WithDetails(map[string]any{"constraint": pqErr.Constraint})

	case codeForeignKeyViolation:
		return errors.BadRequest("referenced record does not exist")

	case codeNotNullViolation:
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	case codeSerialization:
		return errors.Conflict("concurrent update detected, retry the request")

	case codeQueryCanceled:
		return errors.Timeout("database statement timed out")

	default:
		return nil
	}
}

// UniqueViolation returns the violated constraint name when err is a
// PostgreSQL unique violation.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "allocated_within_quantity"):
		return errors.Validation(map[string]string{
			"allocated_quantity": "must be between 0 and quantity",
		})

	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.Validation(map[string]string{
			"quantity": "must be greater than or equal to 0",
		})

	case strings.Contains(constraint, "variant_fields"):
		return errors.Validation(map[string]string{
			"item_type": "serialized items need a serial number, non-serialized items need a quantity",
		})

	case strings.Contains(constraint, "availability_status_valid"):
		return errors.Validation(map[string]string{
			"availability_status": "must be one of: available, rented, maintenance, damaged, lost",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "serial"):
		return "an item with this serial number already exists"
	case strings.Contains(constraint, "name"):
		return "an item with this name already exists"
	default:
		return "a record with these values already exists"
	}
}
