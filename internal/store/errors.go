package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. Entity-specific variants wrap it so callers can match either.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity, such as saving the same run twice.
	ErrDuplicate = errors.New("entity already exists")

	// ErrTransactionFailed is returned when a database transaction fails to
	// begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrRunNotFound indicates that the requested run does not exist.
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// IsNotFoundError checks whether the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
