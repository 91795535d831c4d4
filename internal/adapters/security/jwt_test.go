package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACTokenVerifierRoundTrip(t *testing.T) {
	v, err := NewHMACTokenVerifier("secret", "auth-service")
	require.NoError(t, err)

	token, err := v.Sign("admin-7", "ADMIN", time.Minute)
	require.NoError(t, err)
	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, claims.Valid)
	assert.Equal(t, "admin-7", claims.SubjectID)
	assert.Equal(t, "admin", claims.Role)
}

func TestHMACTokenVerifierRejects(t *testing.T) {
	v, err := NewHMACTokenVerifier("secret", "auth-service")
	require.NoError(t, err)
	other, err := NewHMACTokenVerifier("other-secret", "auth-service")
	require.NoError(t, err)
	wrongIssuer, err := NewHMACTokenVerifier("secret", "someone-else")
	require.NoError(t, err)

	forged, err := other.Sign("u-1", "admin", time.Minute)
	require.NoError(t, err)
	expired, err := v.Sign("u-1", "user", -time.Hour)
	require.NoError(t, err)
	misissued, err := wrongIssuer.Sign("u-1", "user", time.Minute)
	require.NoError(t, err)
	noSubject, err := v.Sign("", "user", time.Minute)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"forged":     forged,
		"expired":    expired,
		"issuer":     misissued,
		"no subject": noSubject,
		"no expiry":  noExpiry,
		"garbage":    "not-a-jwt",
	} {
		_, err := v.Verify(context.Background(), token)
		assert.Errorf(t, err, "%s token accepted", name)
	}
}

func TestNewHMACTokenVerifierRequiresSecret(t *testing.T) {
	_, err := NewHMACTokenVerifier(" ", "")
	assert.Error(t, err)
}
