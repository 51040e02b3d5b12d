package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	Init("test-secret-test-secret-test-secret", 5)

	token, err := GenerateAccessToken(42)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "access_token", claims.Subject)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	Init("first-secret-first-secret-first", 5)
	token, err := GenerateAccessToken(7)
	require.NoError(t, err)

	Init("second-secret-second-secret-sec", 5)
	_, err = ParseToken(token)
	assert.Error(t, err)
}
