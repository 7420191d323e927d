package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStaticCredentials_NotRequired(t *testing.T) {
	creds := NewStaticCredentials("", "")

	assert.False(t, creds.Required())
	assert.True(t, creds.Verify("", ""))
	assert.True(t, creds.Verify("anyone", "anything"))
}

func TestStaticCredentials_PlainPassword(t *testing.T) {
	creds := NewStaticCredentials("erp", "secret")

	assert.True(t, creds.Required())
	assert.True(t, creds.Verify("erp", "secret"))
	assert.False(t, creds.Verify("erp", "wrong"))
	assert.False(t, creds.Verify("other", "secret"))
	assert.False(t, creds.Verify("", ""))
}

func TestStaticCredentials_BcryptPassword(t *testing.T) {
	hash, err := HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, isBcryptHash(hash))

	creds := NewStaticCredentials("erp", hash)

	assert.True(t, creds.Verify("erp", "secret"))
	assert.False(t, creds.Verify("erp", hash))
	assert.False(t, creds.Verify("erp", "wrong"))
}
