package services

import (
	"errors"
	"fmt"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/database"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = auth.ErrUnauthenticated
)

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// storeError translates storage failures into service errors. what names the
// resource for messages; op describes the attempted operation.
func storeError(err error, what, op string) error {
	switch {
	case err == nil:
		return nil
	case database.IsNoRows(err):
		return notFound(what)
	case database.IsUniqueViolation(err):
		return conflict(what + " already exists")
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("referenced resource %w", ErrNotFound)
	case database.IsCheckViolation(err):
		return fmt.Errorf("%w: %s violates a constraint", ErrInvalidInput, what)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// passThrough keeps service errors created inside a transaction intact and
// translates everything else.
func passThrough(err error, what, op string) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrForbidden, ErrConflict, ErrInvalidInput} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return storeError(err, what, op)
}
