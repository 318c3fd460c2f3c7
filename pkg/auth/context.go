package auth

import (
	"context"
	"fmt"
)

// PrincipalFromContext extracts the caller's principal id from claims
// previously attached with WithClaims. Returns "" if absent.
func PrincipalFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// RequireUserIDFromContext extracts the caller's principal id, failing
// instead of returning "" when authentication is required for the
// operation. Every façade mutation uses this to bind Creator.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	principal := PrincipalFromContext(ctx)
	if principal == "" {
		return "", fmt.Errorf("authentication required: no principal in context")
	}
	return principal, nil
}
