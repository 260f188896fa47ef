package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/lorekeep/chronicle-api/internal/store"
)

func pgError(code string) *pgconn.PgError {
	return &pgconn.PgError{Code: code, ConstraintName: "enrichments_pkey"}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil passes through", err: nil, want: nil},
		{name: "no rows maps to not found", err: sql.ErrNoRows, want: store.ErrNotFound},
		{name: "unique violation maps to duplicate", err: pgError(uniqueViolationCode), want: store.ErrDuplicate},
		{name: "foreign key violation maps to invalid entity", err: pgError(foreignKeyViolationCode), want: store.ErrInvalidEntity},
		{name: "check violation maps to invalid entity", err: pgError(checkViolationCode), want: store.ErrInvalidEntity},
		{name: "not null violation maps to invalid entity", err: pgError(notNullViolationCode), want: store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	t.Run("unmapped errors pass through unchanged", func(t *testing.T) {
		original := errors.New("connection refused")
		assert.Equal(t, original, MapError(original))
	})

	t.Run("wrapped driver errors still map", func(t *testing.T) {
		wrapped := fmt.Errorf("save: %w", pgError(uniqueViolationCode))
		assert.ErrorIs(t, MapError(wrapped), store.ErrDuplicate)
	})
}

func TestViolationPredicates(t *testing.T) {
	assert.True(t, IsUniqueViolation(pgError(uniqueViolationCode)))
	assert.False(t, IsUniqueViolation(pgError(foreignKeyViolationCode)))
	assert.False(t, IsUniqueViolation(errors.New("not a pg error")))

	assert.True(t, IsForeignKeyViolation(pgError(foreignKeyViolationCode)))
	assert.False(t, IsForeignKeyViolation(pgError(uniqueViolationCode)))
	assert.False(t, IsForeignKeyViolation(nil))
}

// fakeResult implements sql.Result for CheckRowsAffected tests.
type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestCheckRowsAffected(t *testing.T) {
	t.Run("rows affected succeeds", func(t *testing.T) {
		assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, "enrichment"))
	})

	t.Run("zero rows returns not found", func(t *testing.T) {
		err := CheckRowsAffected(fakeResult{rows: 0}, "enrichment")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Contains(t, err.Error(), "enrichment")
	})

	t.Run("zero rows without entity name returns bare sentinel", func(t *testing.T) {
		assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, ""), store.ErrNotFound)
	})

	t.Run("result errors propagate", func(t *testing.T) {
		err := CheckRowsAffected(fakeResult{err: errors.New("driver does not support RowsAffected")}, "enrichment")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("nil result is an error", func(t *testing.T) {
		assert.Error(t, CheckRowsAffected(nil, "enrichment"))
	})
}
