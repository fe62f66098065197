package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cosmifi/gateway/core"
	"github.com/cosmifi/gateway/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "requestID"
	principalKey = "principal"
)

// Authenticator evaluates request credentials. *service.Gate implements it.
type Authenticator interface {
	Evaluate(ctx context.Context, h core.Headers) core.Outcome
}

type principalCtxKey struct{}

// WithPrincipal attaches p to ctx
func WithPrincipal(ctx context.Context, p *core.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the principal attached by AuthMiddleware
func PrincipalFrom(ctx context.Context) (*core.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*core.Principal)
	return p, ok && p != nil
}

// CORS sets the CORS headers on every response and answers OPTIONS requests
// before any later middleware, including authentication, runs
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		corsHeaders(c)

		if c.Request.Method == http.MethodOptions {
			Preflight(c)
			return
		}

		c.Next()
	}
}

// RequestID propagates X-Request-ID or generates one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(requestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)
		c.Next()
	}
}

// RequestLogger logs one line per request and records request metrics
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Route templates keep metric cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(duration.Seconds())

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		}
		if p, ok := principalFromGin(c); ok {
			fields = append(fields, zap.String("source", p.Source.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// AuthMiddleware runs the gate on every request. Denied requests get a 401
// envelope and never reach the handler; allowed requests carry the principal
// in both the gin and the request context.
func AuthMiddleware(gate Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome := gate.Evaluate(c.Request.Context(), core.HeadersFromHTTP(c.Request.Header))
		if !outcome.Allowed() {
			Error(c, outcome.Reason().Message(), http.StatusUnauthorized)
			return
		}

		principal := outcome.Principal()
		c.Set(principalKey, principal)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))

		c.Next()
	}
}

func principalFromGin(c *gin.Context) (*core.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*core.Principal)
	return p, ok && p != nil
}
