package enrich

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/chronicle-api/internal/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:      "test-key",
		TextModel:         "gemini-2.0-flash",
		ImageModel:        "imagen-3.0-generate-002",
		RequestsPerMinute: 30,
	}
}

func TestCallResolver(t *testing.T) {
	r := NewCallResolver(testLLMConfig(), []string{"narrative"})

	text, err := r.Resolve(KindText)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", text.Model)
	assert.False(t, text.InContext)
	assert.True(t, text.Propagate)

	narrative, err := r.Resolve(KindNarrative)
	require.NoError(t, err)
	assert.True(t, narrative.InContext)
	assert.True(t, narrative.Propagate)

	image, err := r.Resolve(KindImage)
	require.NoError(t, err)
	assert.Equal(t, "imagen-3.0-generate-002", image.Model)
	assert.False(t, image.Propagate)

	_, err = r.Resolve(Kind("haiku"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindText.Valid())
	assert.True(t, KindImage.Valid())
	assert.True(t, KindNarrative.Valid())
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("video").Valid())
}

func TestParsePrompt(t *testing.T) {
	prompt, err := parsePrompt(json.RawMessage(`{"prompt":"describe the harbor","style":"gothic"}`))
	require.NoError(t, err)
	assert.Equal(t, "describe the harbor", prompt.Text)
	assert.Equal(t, "gothic", prompt.Style)

	_, err = parsePrompt(json.RawMessage(`{"prompt":"  "}`))
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = parsePrompt(json.RawMessage(`not json`))
	assert.Error(t, err)
}
