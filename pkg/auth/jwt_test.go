package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	// Arrange
	svc, err := NewJWTService("secret")
	require.NoError(t, err)
	token, err := svc.GenerateToken(42, "Anna", "teacher", time.Hour)
	require.NoError(t, err)

	// Act
	claims, err := svc.ParseToken(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "Anna", claims.DisplayName)
	assert.Equal(t, "teacher", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTService_Rejects(t *testing.T) {
	svc, _ := NewJWTService("secret")
	other, _ := NewJWTService("other")

	expired, err := svc.GenerateToken(1, "A", "student", -time.Minute)
	require.NoError(t, err)
	foreign, err := other.GenerateToken(1, "A", "student", time.Hour)
	require.NoError(t, err)
	noUser, err := svc.GenerateToken(0, "A", "student", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &IdentityClaims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		token string
		want  error
	}{
		{"мусор", "not-a-token", ErrTokenMalformed},
		{"истёк", expired, ErrTokenExpired},
		{"чужой секрет", foreign, ErrTokenInvalid},
		{"без user_id", noUser, ErrTokenInvalid},
		{"alg none", none, ErrTokenInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := svc.ParseToken(tc.token)

			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, tc.want), "ожидалась %v, получена %v", tc.want, err)
		})
	}
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("")
	assert.Error(t, err)
}
