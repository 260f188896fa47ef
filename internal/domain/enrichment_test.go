package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubject() SubjectRef {
	return SubjectRef{
		EntityID:   uuid.New(),
		EntityKind: EntityKindCharacter,
		Field:      "portrait",
	}
}

func TestSubjectRefValidate(t *testing.T) {
	t.Run("valid subject passes", func(t *testing.T) {
		assert.NoError(t, validSubject().Validate())
	})

	t.Run("missing entity ID", func(t *testing.T) {
		s := validSubject()
		s.EntityID = uuid.Nil
		assert.ErrorIs(t, s.Validate(), ErrEmptyEntityID)
	})

	t.Run("unknown entity kind", func(t *testing.T) {
		s := validSubject()
		s.EntityKind = "spaceship"
		assert.ErrorIs(t, s.Validate(), ErrInvalidEntityKind)
	})

	t.Run("missing field", func(t *testing.T) {
		s := validSubject()
		s.Field = ""
		assert.ErrorIs(t, s.Validate(), ErrEmptyField)
	})
}

func TestNewEnrichmentRecord(t *testing.T) {
	output := json.RawMessage(`{"text":"a weathered sea captain"}`)

	rec, err := NewEnrichmentRecord(validSubject(), "run-1", "text", "gemini-2.0-flash", output)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "text", rec.Kind)
	assert.False(t, rec.CreatedAt.IsZero())

	_, err = NewEnrichmentRecord(validSubject(), "run-1", "text", "m", nil)
	assert.ErrorIs(t, err, ErrEmptyOutput)

	_, err = NewEnrichmentRecord(SubjectRef{}, "run-1", "text", "m", output)
	assert.Error(t, err)
}
