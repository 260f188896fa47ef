package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or when a write violates a database constraint. Check the
	// wrapped error for specific details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrEnrichmentNotFound indicates that the requested enrichment record
	// does not exist in the store.
	ErrEnrichmentNotFound = fmt.Errorf("%w: enrichment", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error,
// including the generic ErrNotFound and entity-specific variants.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is a "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
