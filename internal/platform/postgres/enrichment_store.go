package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorekeep/chronicle-api/internal/domain"
	"github.com/lorekeep/chronicle-api/internal/platform/logger"
	"github.com/lorekeep/chronicle-api/internal/store"
)

// PostgresEnrichmentStore implements the store.EnrichmentStore interface
// using a PostgreSQL database as the storage backend. It also satisfies the
// scheduler's Reconciler interface so completed task results land here
// directly.
type PostgresEnrichmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresEnrichmentStore creates a new PostgreSQL implementation of the
// EnrichmentStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresEnrichmentStore(db store.DBTX, logger *slog.Logger) *PostgresEnrichmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresEnrichmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "enrichment_store")),
	}
}

// Ensure PostgresEnrichmentStore implements store.EnrichmentStore
var _ store.EnrichmentStore = (*PostgresEnrichmentStore)(nil)

// Apply persists a completed enrichment record on behalf of the scheduler's
// reconciliation bridge. It is Save under the name the scheduler expects.
func (s *PostgresEnrichmentStore) Apply(ctx context.Context, record *domain.EnrichmentRecord) error {
	return s.Save(ctx, record)
}

// Save implements store.EnrichmentStore.Save.
// Returns store.ErrDuplicate if a record with the same ID already exists.
func (s *PostgresEnrichmentStore) Save(ctx context.Context, record *domain.EnrichmentRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Subject.Validate(); err != nil {
		log.Warn("enrichment subject validation failed during save",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO enrichments (id, entity_id, entity_kind, field, run_id, kind, model, output, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.Subject.EntityID,
		record.Subject.EntityKind,
		record.Subject.Field,
		record.RunID,
		record.Kind,
		record.Model,
		record.Output,
		record.CreatedAt,
	)

	if err != nil {
		log.Error("failed to save enrichment record",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()),
			slog.String("entity_id", record.Subject.EntityID.String()))
		return MapError(err)
	}

	log.Info("enrichment record saved",
		slog.String("record_id", record.ID.String()),
		slog.String("entity_id", record.Subject.EntityID.String()),
		slog.String("field", record.Subject.Field),
		slog.String("kind", record.Kind))
	return nil
}

// GetByID implements store.EnrichmentStore.GetByID.
// Returns store.ErrEnrichmentNotFound if the record does not exist.
func (s *PostgresEnrichmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnrichmentRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, entity_id, entity_kind, field, run_id, kind, model, output, created_at
		FROM enrichments
		WHERE id = $1
	`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("enrichment record not found", slog.String("record_id", id.String()))
			return nil, store.ErrEnrichmentNotFound
		}
		log.Error("failed to get enrichment record by ID",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return nil, MapError(err)
	}

	return record, nil
}

// ListBySubject implements store.EnrichmentStore.ListBySubject.
func (s *PostgresEnrichmentStore) ListBySubject(
	ctx context.Context,
	subject domain.SubjectRef,
	limit, offset int,
) ([]*domain.EnrichmentRecord, error) {
	query := `
		SELECT id, entity_id, entity_kind, field, run_id, kind, model, output, created_at
		FROM enrichments
		WHERE entity_id = $1 AND entity_kind = $2 AND field = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`
	limit, offset = clampPage(limit, offset)
	return s.list(ctx, query, subject.EntityID, subject.EntityKind, subject.Field, limit, offset)
}

// ListByRun implements store.EnrichmentStore.ListByRun.
func (s *PostgresEnrichmentStore) ListByRun(
	ctx context.Context,
	runID string,
	limit, offset int,
) ([]*domain.EnrichmentRecord, error) {
	query := `
		SELECT id, entity_id, entity_kind, field, run_id, kind, model, output, created_at
		FROM enrichments
		WHERE run_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	limit, offset = clampPage(limit, offset)
	return s.list(ctx, query, runID, limit, offset)
}

// Delete implements store.EnrichmentStore.Delete.
// Returns store.ErrEnrichmentNotFound if the record does not exist.
func (s *PostgresEnrichmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM enrichments WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete enrichment record",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "enrichment"); err != nil {
		log.Debug("enrichment record not found for delete",
			slog.String("record_id", id.String()))
		return store.ErrEnrichmentNotFound
	}

	log.Info("enrichment record deleted", slog.String("record_id", id.String()))
	return nil
}

// WithTx implements store.EnrichmentStore.WithTx.
func (s *PostgresEnrichmentStore) WithTx(tx *sql.Tx) store.EnrichmentStore {
	return &PostgresEnrichmentStore{
		db:     tx,
		logger: s.logger,
	}
}

func (s *PostgresEnrichmentStore) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.EnrichmentRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query enrichment records", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	records := []*domain.EnrichmentRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			log.Error("failed to scan enrichment row", slog.String("error", err.Error()))
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.EnrichmentRecord, error) {
	var record domain.EnrichmentRecord
	var entityKind string

	err := row.Scan(
		&record.ID,
		&record.Subject.EntityID,
		&entityKind,
		&record.Subject.Field,
		&record.RunID,
		&record.Kind,
		&record.Model,
		&record.Output,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Subject.EntityKind = domain.EntityKind(entityKind)
	return &record, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
