package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

const testSecret = "0123456789abcdef0123"

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(Config{Secret: testSecret, Issuer: "transcript2minutes", TokenTTL: time.Hour})
	signed, expires, err := tokens.Issue("frontend")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Validate(signed)
	require.NoError(t, err)
	require.Equal(t, "frontend", claims.Subject)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tokens := NewTokens(Config{Secret: testSecret, Issuer: "transcript2minutes"})
	otherSecret, _, err := NewTokens(Config{Secret: "ffffffffffffffffffff", Issuer: "transcript2minutes"}).Issue("x")
	require.NoError(t, err)
	otherIssuer, _, err := NewTokens(Config{Secret: testSecret, Issuer: "someone-else"}).Issue("x")
	require.NoError(t, err)
	expired := signClaims(t, jwt.RegisteredClaims{
		Issuer:    "transcript2minutes",
		Subject:   "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	noExpiry := signClaims(t, jwt.RegisteredClaims{Issuer: "transcript2minutes", Subject: "x"})

	for name, token := range map[string]string{
		"empty":        " ",
		"garbage":      "not-a-jwt",
		"other secret": otherSecret,
		"other issuer": otherIssuer,
		"expired":      expired,
		"no expiry":    noExpiry,
	} {
		_, err := tokens.Validate(token)
		require.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized), name)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	t.Parallel()

	_, _, err := NewTokens(Config{Secret: testSecret}).Issue("")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func signClaims(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}
