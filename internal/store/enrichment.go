package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/domain"
)

// EnrichmentStore defines the interface for enrichment record persistence.
type EnrichmentStore interface {
	// Save persists a completed enrichment record.
	// Returns validation errors from the record if data is invalid.
	// Returns ErrDuplicate if a record with the same ID already exists.
	Save(ctx context.Context, record *domain.EnrichmentRecord) error

	// GetByID retrieves an enrichment record by its unique ID.
	// Returns ErrEnrichmentNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EnrichmentRecord, error)

	// ListBySubject retrieves records for one entity field, newest first.
	// Returns an empty slice if no records match.
	ListBySubject(ctx context.Context, subject domain.SubjectRef, limit, offset int) ([]*domain.EnrichmentRecord, error)

	// ListByRun retrieves all records produced within one run, newest first.
	// Returns an empty slice if no records match.
	ListByRun(ctx context.Context, runID string, limit, offset int) ([]*domain.EnrichmentRecord, error)

	// Delete removes an enrichment record.
	// Returns ErrEnrichmentNotFound if the record does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new EnrichmentStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) EnrichmentStore
}
