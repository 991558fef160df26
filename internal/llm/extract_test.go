package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONDirect(t *testing.T) {
	got, err := ExtractJSON("  {\"title\":\"standup\"}\n")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"standup"}`, got)
}

func TestExtractJSONWrappedInProse(t *testing.T) {
	raw := "Sure! Here is the event you asked for:\n\n" +
		`{"title":"standup","alerts":[15]}` +
		"\n\nLet me know if you need anything else."

	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"standup","alerts":[15]}`, got)
}

func TestExtractJSONNestedBraces(t *testing.T) {
	raw := `prefix {"a":{"b":"}"},"c":"{"} suffix`

	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":"}"},"c":"{"}`, got)
}

func TestExtractJSONPureProse(t *testing.T) {
	_, err := ExtractJSON("I could not understand that phrase, sorry.")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestExtractJSONUnbalanced(t *testing.T) {
	_, err := ExtractJSON(`{"title":"cut off`)
	assert.ErrorIs(t, err, ErrUnparseable)
}
