package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/store"
)

// unreachableDB is a store.DBTX that fails the test if any query runs.
type unreachableDB struct {
	t *testing.T
}

func (d unreachableDB) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	d.t.Fatal("unexpected ExecContext call")
	return nil, nil
}

func (d unreachableDB) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	d.t.Fatal("unexpected PrepareContext call")
	return nil, nil
}

func (d unreachableDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	d.t.Fatal("unexpected QueryContext call")
	return nil, nil
}

func (d unreachableDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	d.t.Fatal("unexpected QueryRowContext call")
	return nil
}

func TestNewPostgresEnrichmentStorePanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() {
		NewPostgresEnrichmentStore(nil, nil)
	})
}

func TestSaveRejectsInvalidSubject(t *testing.T) {
	// The subject is validated before any query runs, so the database must
	// never be touched for an invalid record.
	s := NewPostgresEnrichmentStore(unreachableDB{t: t}, nil)

	record := &domain.EnrichmentRecord{
		ID: uuid.New(),
		Subject: domain.SubjectRef{
			EntityID:   uuid.Nil,
			EntityKind: domain.EntityKindCharacter,
			Field:      "portrait",
		},
		RunID:  "run-1",
		Kind:   "text",
		Model:  "test-model",
		Output: json.RawMessage(`{"text":"x"}`),
	}

	err := s.Save(context.Background(), record)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{name: "valid values pass through", limit: 50, offset: 10, wantLimit: 50, wantOffset: 10},
		{name: "zero limit gets default", limit: 0, offset: 0, wantLimit: 20, wantOffset: 0},
		{name: "negative values clamp", limit: -1, offset: -5, wantLimit: 20, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := clampPage(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
