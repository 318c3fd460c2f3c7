// Package mcpauth provides MCP-specific authentication middleware. It wraps
// bearer token verification with RFC 6750 WWW-Authenticate error responses.
package mcpauth

import (
	"strings"

	"go.uber.org/zap"
	"net/http"

	"github.com/ekaya-inc/ekaya-engine/pkg/auth"
)

// Middleware validates the bearer token carrying the caller's principal id
// and injects the resulting claims into the request context.
type Middleware struct {
	signingKey []byte
	enabled    bool
	logger     *zap.Logger
}

// NewMiddleware creates a new MCP auth middleware. When enabled is false,
// every request is treated as an anonymous principal - useful for local
// development without a signing key.
func NewMiddleware(signingKey []byte, enabled bool, logger *zap.Logger) *Middleware {
	return &Middleware{signingKey: signingKey, enabled: enabled, logger: logger}
}

// RequireAuth validates the Authorization header and injects claims into the
// request context, returning an RFC 6750 Bearer challenge on failure.
func (m *Middleware) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.enabled {
				ctx := auth.WithClaims(r.Context(), &auth.Claims{})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				m.logger.Debug("MCP auth failed: missing bearer token", zap.String("path", r.URL.Path))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_request", "Missing bearer token")
				return
			}

			claims, err := auth.ParseToken(token, m.signingKey)
			if err != nil {
				m.logger.Debug("MCP auth failed: invalid or expired token", zap.String("path", r.URL.Path), zap.Error(err))
				m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
				return
			}

			ctx := auth.WithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, prefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// writeWWWAuthenticate writes an RFC 6750 Bearer token error response.
// See: https://datatracker.ietf.org/doc/html/rfc6750#section-3
func (m *Middleware) writeWWWAuthenticate(w http.ResponseWriter, status int, errorCode, description string) {
	headerValue := `Bearer error="` + errorCode + `", error_description="` + description + `"`
	w.Header().Set("WWW-Authenticate", headerValue)
	w.WriteHeader(status)
}
