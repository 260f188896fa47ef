package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies the kind of chronicle entity an enrichment concerns.
type EntityKind string

// Supported entity kinds
const (
	EntityKindCharacter EntityKind = "character"
	EntityKindLocation  EntityKind = "location"
	EntityKindEvent     EntityKind = "event"
	EntityKindChronicle EntityKind = "chronicle"
)

// Validation errors
var (
	ErrEmptyEntityID     = errors.New("entity ID cannot be empty")
	ErrInvalidEntityKind = errors.New("invalid entity kind")
	ErrEmptyField        = errors.New("subject field cannot be empty")
	ErrEmptyOutput       = errors.New("enrichment output cannot be empty")
)

// SubjectRef identifies the entity (and the field on it) that an enrichment
// result should be applied to. The scheduler carries it opaquely and only the
// reconciliation layer interprets it.
type SubjectRef struct {
	EntityID   uuid.UUID  `json:"entity_id"`
	EntityKind EntityKind `json:"entity_kind"`
	Field      string     `json:"field"`
}

// Validate checks that the subject reference is well-formed.
func (s SubjectRef) Validate() error {
	if s.EntityID == uuid.Nil {
		return ErrEmptyEntityID
	}
	switch s.EntityKind {
	case EntityKindCharacter, EntityKindLocation, EntityKindEvent, EntityKindChronicle:
	default:
		return ErrInvalidEntityKind
	}
	if s.Field == "" {
		return ErrEmptyField
	}
	return nil
}

// EnrichmentRecord is the normalized output of a completed enrichment task,
// as handed to the reconciliation layer and persisted for the subject entity.
type EnrichmentRecord struct {
	ID        uuid.UUID       `json:"id"`
	Subject   SubjectRef      `json:"subject"`
	RunID     string          `json:"run_id"`
	Kind      string          `json:"kind"`
	Model     string          `json:"model"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEnrichmentRecord creates a validated enrichment record with a fresh ID
// and creation timestamp.
func NewEnrichmentRecord(
	subject SubjectRef,
	runID string,
	kind string,
	model string,
	output json.RawMessage,
) (*EnrichmentRecord, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, ErrEmptyOutput
	}

	return &EnrichmentRecord{
		ID:        uuid.New(),
		Subject:   subject,
		RunID:     runID,
		Kind:      kind,
		Model:     model,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}, nil
}
