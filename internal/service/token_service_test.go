package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

func TestTokenIssueAndValidate(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, expiresAt, err := svc.Issue("prof-9", "p@uni.edu", "Prof Nine")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "prof-9", claims.ProfessorID)
	assert.Equal(t, "prof-9", claims.Subject)
	assert.Equal(t, "p@uni.edu", claims.Email)
}

func TestTokenRejectsWrongSecretAndExpired(t *testing.T) {
	issuer := NewTokenService("secret", time.Hour)
	token, _, err := issuer.Issue("prof-9", "", "")
	require.NoError(t, err)

	_, err = NewTokenService("other", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	expired := NewTokenService("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("prof-9", "", "")
	require.NoError(t, err)
	_, err = issuer.ValidateToken(old)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenFallsBackToSubject(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "prof-3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "prof-3", claims.ProfessorID)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(anonymous)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenIssueRequiresProfessor(t *testing.T) {
	_, _, err := NewTokenService("secret", 0).Issue("  ", "", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
