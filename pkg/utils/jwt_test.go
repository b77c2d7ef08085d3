package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "ops", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.Equal(t, "contentpilot", claims.Issuer)
}

func TestValidateTokenRejects(t *testing.T) {
	token, err := GenerateToken("secret", "ops", time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "ops", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)

	_, err = ValidateToken("secret", "not-a-token")
	assert.Error(t, err)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
