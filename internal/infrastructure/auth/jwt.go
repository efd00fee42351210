package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxoffice/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
)

// Common errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrTokenNotYetValid  = errors.New("token is not yet valid")
	ErrMissingSubject    = errors.New("missing sub in claims")
	ErrSessionRevoked    = errors.New("session has been revoked")
	ErrNoVerificationKey = errors.New("no jwt verification key configured")
)

// Claims is the subset of the identity provider's session token the service relies on.
type Claims struct {
	UserExternalID string
	SessionID      string
	OrgExternalID  string
	OrgRole        string
	OrgSlug        string
	IssuedAt       time.Time
	ExpiresAt      time.Time
}

// HasOrganization reports whether the token carries an active organization.
func (c *Claims) HasOrganization() bool {
	return c.OrgExternalID != ""
}

// TTL returns how long the token remains valid from now.
func (c *Claims) TTL() time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	d := time.Until(c.ExpiresAt)
	if d < 0 {
		return 0
	}
	return d
}

// TokenVerifier validates session tokens minted by the identity provider.
// RS256 is used when a public key is configured, otherwise HS256 with the shared secret.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	secret    []byte
	orgClaim  string
	parser    *jwt.Parser
}

// NewTokenVerifier builds a verifier from JWT configuration.
func NewTokenVerifier(cfg config.JWTConfig) (*TokenVerifier, error) {
	v := &TokenVerifier{orgClaim: cfg.OrgClaim}
	if v.orgClaim == "" {
		v.orgClaim = "org_id"
	}

	opts := []jwt.ParserOption{jwt.WithLeeway(cfg.ClockSkew), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	switch {
	case strings.TrimSpace(cfg.PublicKeyPEM) != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse jwt public key: %w", err)
		}
		v.publicKey = key
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	case cfg.Secret != "":
		v.secret = []byte(cfg.Secret)
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	default:
		return nil, ErrNoVerificationKey
	}

	v.parser = jwt.NewParser(opts...)
	return v, nil
}

// Verify parses and validates a token string and extracts the claims.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	mc := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, mc, v.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenInvalidClaims),
			errors.Is(err, jwt.ErrTokenInvalidIssuer),
			errors.Is(err, jwt.ErrTokenInvalidAudience),
			errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return nil, ErrInvalidClaims
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := &Claims{
		UserExternalID: stringClaim(mc, "sub"),
		SessionID:      stringClaim(mc, "sid"),
		OrgExternalID:  stringClaim(mc, v.orgClaim),
		OrgRole:        stringClaim(mc, "org_role"),
		OrgSlug:        stringClaim(mc, "org_slug"),
	}
	if claims.UserExternalID == "" {
		return nil, ErrMissingSubject
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (any, error) {
	if v.publicKey != nil {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return v.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return v.secret, nil
}

func stringClaim(mc jwt.MapClaims, name string) string {
	if name == "" {
		return ""
	}
	// dotted names walk nested objects, e.g. "o.id"
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		var cur any = map[string]any(mc)
		for _, p := range parts {
			m, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			cur = m[p]
		}
		s, _ := cur.(string)
		return s
	}
	s, _ := mc[name].(string)
	return s
}
