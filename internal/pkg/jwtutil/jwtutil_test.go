package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("s3cret", time.Hour, Subject{
		UserID: "u-1",
		Email:  "ana@example.com",
		Role:   "lawyer",
		Plan:   "pro",
	})
	require.NoError(t, err)

	claims, err := ParseToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "lawyer", claims.Role)
	assert.Equal(t, "pro", claims.Plan)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("s3cret", time.Hour, Subject{UserID: "u-1"})
	require.NoError(t, err)

	_, err = ParseToken("other", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateToken("s3cret", -time.Minute, Subject{UserID: "u-1"})
	require.NoError(t, err)

	_, err = ParseToken("s3cret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken("s3cret", raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken("", time.Hour, Subject{UserID: "u-1"})
	assert.Error(t, err)
}
