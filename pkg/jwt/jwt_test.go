package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	secret := []byte("s3cret")
	id := uuid.New()

	token, err := GenerateToken(secret, id, "Ana", "ADMIN", []string{"order:view"}, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "ADMIN", claims.RoleCode)
	assert.True(t, claims.HasPrivilege("order:view"))
	assert.False(t, claims.HasPrivilege("order:void"))
}

func TestValidateRejects(t *testing.T) {
	secret := []byte("s3cret")
	id := uuid.New()

	expired, err := GenerateToken(secret, id, "Ana", "ADMIN", nil, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	valid, err := GenerateToken(secret, id, "Ana", "ADMIN", nil, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken([]byte("other"), valid)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ValidateToken(secret, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = GenerateToken(nil, id, "Ana", "ADMIN", nil, time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
