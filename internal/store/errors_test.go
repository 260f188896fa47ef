package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lorekeep/chronicle-api/internal/store"
)

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, store.IsNotFoundError(store.ErrNotFound))
	assert.True(t, store.IsNotFoundError(store.ErrEnrichmentNotFound))
	assert.True(t, store.IsNotFoundError(fmt.Errorf("lookup: %w", store.ErrEnrichmentNotFound)))

	assert.False(t, store.IsNotFoundError(nil))
	assert.False(t, store.IsNotFoundError(store.ErrDuplicate))
	assert.False(t, store.IsNotFoundError(errors.New("not found")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, store.IsDuplicateError(store.ErrDuplicate))
	assert.True(t, store.IsDuplicateError(fmt.Errorf("save: %w", store.ErrDuplicate)))

	assert.False(t, store.IsDuplicateError(nil))
	assert.False(t, store.IsDuplicateError(store.ErrNotFound))
}
