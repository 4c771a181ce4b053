package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/taptosell-commerce/internal/apperrors"
	"github.com/01moynul/taptosell-commerce/internal/models"
)

func TestGenerateAndValidate(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	signed, err := tokens.Generate("user-1", models.RoleAdmin)
	require.NoError(t, err)

	id, role, err := tokens.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
	assert.Equal(t, models.RoleAdmin, role)
}

func TestValidate_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	signed, err := tokens.Generate("user-1", models.RoleCustomer)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, _, err := NewTokens("other", time.Hour).Validate(signed)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokens("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, _, err := later.Validate(signed)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := tokens.Validate("not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, _, err = tokens.Validate(s)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestAuthorize(t *testing.T) {
	admin := []models.Role{models.RoleAdmin}

	assert.True(t, Authorize(admin, models.RoleAdmin))
	assert.False(t, Authorize(admin, models.RoleCustomer))
	assert.False(t, Authorize(admin, ""))
	assert.True(t, Authorize(nil, models.RoleCustomer))
	assert.True(t, Authorize([]models.Role{models.RoleCustomer, models.RoleAdmin}, models.RoleCustomer))
}
