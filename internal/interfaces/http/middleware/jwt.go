package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	identityapp "github.com/fxoffice/backend/internal/application/identity"
	"github.com/fxoffice/backend/internal/domain/shared"
	"github.com/fxoffice/backend/internal/infrastructure/auth"
	"github.com/fxoffice/backend/internal/infrastructure/logger"
	"github.com/fxoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys shared with the logger and tracing middleware
const (
	ContextKeyRequestID = "request_id"
	ContextKeyTenantID  = "tenant_id"
	ContextKeyUserID    = "user_id"
	ContextKeyClaims    = "jwt_claims"
	ContextKeyPrincipal = "principal"

	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	TenantHeader    = "X-Tenant-ID"
	TokenQueryParam = "token"
)

var errMissingToken = errors.New("missing bearer token")

// TokenVerifier validates a provider session token
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// PrincipalResolver maps verified claims to local user, organization and role
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, q identityapp.PrincipalQuery) (*identityapp.Principal, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Verifier   TokenVerifier
	Principals PrincipalResolver
	// Revocations is optional; sessions ended at the provider are rejected when set
	Revocations auth.SessionRevocations
	// AllowQueryToken accepts ?token= for clients that cannot set headers (websocket upgrades)
	AllowQueryToken  bool
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// JWTAuthMiddlewareWithConfig authenticates the caller and resolves the principal.
// The tenant comes from the token's organization claim, or from X-Tenant-ID when the
// token carries none; ResolvePrincipal enforces membership either way.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		tokenString, ok := extractToken(c, cfg.AllowQueryToken)
		if !ok {
			abortAuth(c, log, errMissingToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.Verifier.Verify(tokenString)
		if err != nil {
			abortAuth(c, log, err, "Token validation failed")
			return
		}

		ctx := c.Request.Context()
		if cfg.Revocations != nil && claims.SessionID != "" {
			revoked, err := cfg.Revocations.IsRevoked(ctx, claims.SessionID)
			if err != nil {
				// fail open: the token is still signed and unexpired
				log.Error("failed to check session revocation",
					zap.String("session_id", claims.SessionID), zap.Error(err))
			} else if revoked {
				abortAuth(c, log, auth.ErrSessionRevoked, "Session has been revoked")
				return
			}
		}

		query := identityapp.PrincipalQuery{
			UserExternalID: claims.UserExternalID,
			OrgExternalID:  claims.OrgExternalID,
		}
		if !claims.HasOrganization() {
			if raw := c.GetHeader(TenantHeader); raw != "" {
				tenantID, err := uuid.Parse(raw)
				if err != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest,
						dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, "Invalid X-Tenant-ID header", c.GetString(ContextKeyRequestID)))
					return
				}
				query.TenantID = tenantID
			}
		}

		principal, err := cfg.Principals.ResolvePrincipal(ctx, query)
		if err != nil {
			abortPrincipal(c, log, err)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyPrincipal, principal)
		c.Set(ContextKeyUserID, principal.UserID.String())
		ctx = logger.WithUserID(ctx, principal.UserID.String())
		if principal.TenantID != uuid.Nil {
			c.Set(ContextKeyTenantID, principal.TenantID.String())
			ctx = logger.WithTenantID(ctx, principal.TenantID.String())
		}
		c.Request = c.Request.WithContext(ctx)

		log.Debug("request authenticated",
			zap.String("user_id", principal.UserID.String()),
			zap.String("tenant_id", principal.TenantID.String()),
			zap.String("role", string(principal.Role)))

		c.Next()
	}
}

func extractToken(c *gin.Context, allowQuery bool) (string, bool) {
	if header := c.GetHeader(AuthHeaderKey); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		return token, token != ""
	}
	if allowQuery {
		if token := c.Query(TokenQueryParam); token != "" {
			return token, true
		}
	}
	return "", false
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path))

	code, text := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrSessionRevoked):
		code, text = dto.ErrCodeTokenInvalid, "Session has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingSubject), errors.Is(err, auth.ErrTokenNotYetValid):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, text, c.GetString(ContextKeyRequestID)))
}

func abortPrincipal(c *gin.Context, log *zap.Logger, err error) {
	requestID := c.GetString(ContextKeyRequestID)
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		log.Info("principal rejected", zap.String("code", domainErr.Code), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}
	log.Error("failed to resolve principal", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}

// RequireTenant rejects principals without an active organization
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok || p.TenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "No active organization", c.GetString(ContextKeyRequestID)))
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects principals that do not administer the active organization
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok || !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Organization admin role required", c.GetString(ContextKeyRequestID)))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated principal
func GetPrincipal(c *gin.Context) (*identityapp.Principal, bool) {
	v, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*identityapp.Principal)
	return p, ok && p != nil
}

// GetJWTClaims retrieves the verified token claims
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ContextKeyClaims); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
