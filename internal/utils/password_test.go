package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, VerifyPassword(hash, "secret123"))
	assert.False(t, VerifyPassword(hash, "secret124"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestVerifyPasswordBadHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "secret123"))
}
