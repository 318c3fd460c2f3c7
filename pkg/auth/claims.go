// Package auth provides caller-identity extraction for the kernel's
// operations façade. A caller authenticates with a bearer token signed by a
// single HMAC key from config; the only claim the kernel cares about is the
// principal id (the JWT subject), which becomes a mutation's Creator.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey avoids collisions with keys set by other packages.
type contextKey string

// ClaimsKey is the context key under which ParseToken's result is stored by
// callers of this package (the MCP tool layer, in this kernel's case).
const ClaimsKey contextKey = "claims"

// Claims is the trimmed claims set the kernel trusts: a principal id and
// standard registration fields. Role/project/session claims from a larger
// identity provider are not modeled here — the kernel recognizes only "who
// asserted this", not what they're otherwise allowed to do.
type Claims struct {
	jwt.RegisteredClaims
}

// ParseToken validates a bearer token's signature against signingKey and
// returns its claims. A malformed or expired token is an error; the kernel
// never guesses a principal id.
func ParseToken(token string, signingKey []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// NewToken issues an HMAC-signed token for principal, for use by tests and
// by any in-process caller that needs to mint its own credential (the
// kernel has no login flow of its own).
func NewToken(principal string, issuedAt time.Time, signingKey []byte) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  principal,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}

// WithClaims returns a context carrying claims, as the MCP tool layer does
// once per inbound request after a successful ParseToken.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims retrieves claims from ctx, if present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
