package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-engine/pkg/auth"
)

func TestPrincipalFromContextAbsent(t *testing.T) {
	assert.Equal(t, "", auth.PrincipalFromContext(context.Background()))
}

func TestPrincipalFromContextPresent(t *testing.T) {
	claims := &auth.Claims{}
	claims.Subject = "u1"
	ctx := auth.WithClaims(context.Background(), claims)
	assert.Equal(t, "u1", auth.PrincipalFromContext(ctx))
}

func TestRequireUserIDFromContextFailsWhenAbsent(t *testing.T) {
	_, err := auth.RequireUserIDFromContext(context.Background())
	assert.Error(t, err)
}

func TestRequireUserIDFromContextSucceedsWhenPresent(t *testing.T) {
	claims := &auth.Claims{}
	claims.Subject = "u1"
	ctx := auth.WithClaims(context.Background(), claims)

	principal, err := auth.RequireUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", principal)
}
