// Package middleware provides the gin middleware of the FX back-office API.
package middleware

import (
	"net/http"

	"github.com/fxoffice/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps caller supplied request ids
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are not traced (health probes)
	SkipPaths []string
}

// TracingWithConfig wraps otelgin. Spans are named "METHOD /route/:pattern" by otelgin;
// correlation attributes are added by TracingAttributeInjector once the principal is known.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	base := otelgin.Middleware(cfg.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			_, skipped := skip[r.URL.Path]
			return !skipped
		}),
	)

	return func(c *gin.Context) {
		base(c)
	}
}

// TracingAttributeInjector adds request, tenant and user ids to the current span.
// Place it after the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if v := c.GetString(ContextKeyRequestID); v != "" {
				span.SetAttributes(attribute.String("request_id", v))
			}
			if v := c.GetString(ContextKeyTenantID); v != "" {
				span.SetAttributes(telemetry.AttrTenantID.String(v))
			}
			if v := c.GetString(ContextKeyUserID); v != "" {
				span.SetAttributes(attribute.String("user_id", v))
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the span as failed for 5xx responses. 4xx stay unset,
// following the HTTP semantic conventions for server spans.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
