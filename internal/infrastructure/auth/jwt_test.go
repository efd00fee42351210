package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestVerifier(t *testing.T) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(config.JWTConfig{
		Secret:    testSecret,
		Issuer:    "https://clerk.test",
		OrgClaim:  "org_id",
		ClockSkew: 5 * time.Second,
	})
	require.NoError(t, err)
	return v
}

func signHS(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":      "user_2abc",
		"sid":      "sess_123",
		"org_id":   "org_9xyz",
		"org_role": "org:admin",
		"org_slug": "acme",
		"iss":      "https://clerk.test",
		"iat":      now.Unix(),
		"exp":      now.Add(time.Minute).Unix(),
	}
}

func TestNewTokenVerifier(t *testing.T) {
	t.Run("requires a key", func(t *testing.T) {
		_, err := NewTokenVerifier(config.JWTConfig{})
		assert.ErrorIs(t, err, ErrNoVerificationKey)
	})

	t.Run("rejects malformed pem", func(t *testing.T) {
		_, err := NewTokenVerifier(config.JWTConfig{PublicKeyPEM: "not a key"})
		assert.Error(t, err)
	})

	t.Run("defaults org claim", func(t *testing.T) {
		v, err := NewTokenVerifier(config.JWTConfig{Secret: testSecret})
		require.NoError(t, err)
		assert.Equal(t, "org_id", v.orgClaim)
	})
}

func TestTokenVerifier_Verify(t *testing.T) {
	v := newTestVerifier(t)

	t.Run("valid token", func(t *testing.T) {
		claims, err := v.Verify(signHS(t, testSecret, baseClaims()))
		require.NoError(t, err)
		assert.Equal(t, "user_2abc", claims.UserExternalID)
		assert.Equal(t, "sess_123", claims.SessionID)
		assert.Equal(t, "org_9xyz", claims.OrgExternalID)
		assert.Equal(t, "org:admin", claims.OrgRole)
		assert.Equal(t, "acme", claims.OrgSlug)
		assert.True(t, claims.HasOrganization())
		assert.Greater(t, claims.TTL(), time.Duration(0))
	})

	t.Run("token without organization", func(t *testing.T) {
		c := baseClaims()
		delete(c, "org_id")
		claims, err := v.Verify(signHS(t, testSecret, c))
		require.NoError(t, err)
		assert.False(t, claims.HasOrganization())
	})

	t.Run("expired", func(t *testing.T) {
		c := baseClaims()
		c["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := v.Verify(signHS(t, testSecret, c))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := baseClaims()
		c["nbf"] = time.Now().Add(time.Hour).Unix()
		_, err := v.Verify(signHS(t, testSecret, c))
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := baseClaims()
		c["iss"] = "https://evil.test"
		_, err := v.Verify(signHS(t, testSecret, c))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("missing exp", func(t *testing.T) {
		c := baseClaims()
		delete(c, "exp")
		_, err := v.Verify(signHS(t, testSecret, c))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := baseClaims()
		delete(c, "sub")
		_, err := v.Verify(signHS(t, testSecret, c))
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("different secret", func(t *testing.T) {
		_, err := v.Verify(signHS(t, "another-secret-key-of-32-chars!!", baseClaims()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenVerifier_NestedOrgClaim(t *testing.T) {
	v, err := NewTokenVerifier(config.JWTConfig{Secret: testSecret, OrgClaim: "o.id"})
	require.NoError(t, err)

	c := baseClaims()
	delete(c, "org_id")
	c["o"] = map[string]any{"id": "org_nested", "rol": "admin"}

	claims, err := v.Verify(signHS(t, testSecret, c))
	require.NoError(t, err)
	assert.Equal(t, "org_nested", claims.OrgExternalID)
}

func TestTokenVerifier_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewTokenVerifier(config.JWTConfig{PublicKeyPEM: string(pemKey)})
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims()).SignedString(key)
	require.NoError(t, err)

	claims, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user_2abc", claims.UserExternalID)

	t.Run("hs256 token rejected when rs256 configured", func(t *testing.T) {
		_, err := v.Verify(signHS(t, testSecret, baseClaims()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
