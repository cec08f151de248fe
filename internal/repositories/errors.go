package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches the lookup
	ErrNotFound = errors.New("record not found")
	// ErrStaleState is returned when a conditional write matched no row
	ErrStaleState = errors.New("record changed concurrently")
)

// IsRecordNotFoundError checks if an error is a gorm record not found error
func IsRecordNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func notFoundOr(err error, msg string) error {
	if IsRecordNotFoundError(err) {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}
