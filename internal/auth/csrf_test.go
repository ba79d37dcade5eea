package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbeaumont/folio/internal/auth"
)

func TestGenerateCSRFToken(t *testing.T) {
	first, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	assert.Len(t, first, 64, "token should be 256 bits hex-encoded")

	second, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCSRFTokenEqual(t *testing.T) {
	token, err := auth.GenerateCSRFToken()
	require.NoError(t, err)

	assert.True(t, auth.CSRFTokenEqual(token, token))
	assert.False(t, auth.CSRFTokenEqual(token, "forged"))
	assert.False(t, auth.CSRFTokenEqual(token, token[:32]))

	// An unissued token never matches, not even an empty candidate.
	assert.False(t, auth.CSRFTokenEqual("", ""))
	assert.False(t, auth.CSRFTokenEqual("", token))
	assert.False(t, auth.CSRFTokenEqual(token, ""))
}
