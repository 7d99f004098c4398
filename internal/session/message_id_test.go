package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIDMarshalsAsUnquotedNumber(t *testing.T) {
	id := NewMessageID()

	raw, err := json.Marshal(id)
	require.NoError(t, err)

	// an unquoted decimal literal, not a JSON string
	assert.NotContains(t, string(raw), "\"")
	for _, b := range raw {
		assert.True(t, b >= '0' && b <= '9', "expected only digits, got %q", raw)
	}
}

func TestMessageIDsAreDistinct(t *testing.T) {
	a, err := json.Marshal(NewMessageID())
	require.NoError(t, err)
	b, err := json.Marshal(NewMessageID())
	require.NoError(t, err)
	assert.NotEqual(t, string(a), string(b))
}
