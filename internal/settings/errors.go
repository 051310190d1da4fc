package settings

import (
	"errors"
	"fmt"

	"nexa-dashboard/internal/storage"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("duplicate name")
	ErrPersistence   = errors.New("persistence failure")
	ErrValidation    = errors.New("validation failed")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate maps a storage error onto the accessor taxonomy.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, storage.ErrDuplicateKey):
		return fmt.Errorf("%w: %s", ErrDuplicateName, op)
	case errors.Is(err, storage.ErrInvalidID):
		return fmt.Errorf("%w: %s: %w", ErrValidation, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
	}
}
