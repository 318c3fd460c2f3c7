package mcpauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/auth"
)

func TestRequireAuthDisabledTreatsEveryRequestAsAnonymous(t *testing.T) {
	m := NewMiddleware(nil, false, zap.NewNop())
	var gotClaims *auth.Claims
	handler := m.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetClaims(r.Context())
		require.True(t, ok)
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
}

func TestRequireAuthRejectsMissingBearerToken(t *testing.T) {
	m := NewMiddleware([]byte("secret"), true, zap.NewNop())
	handler := m.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_request")
}

func TestRequireAuthRejectsInvalidToken(t *testing.T) {
	m := NewMiddleware([]byte("secret"), true, zap.NewNop())
	handler := m.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestRequireAuthAcceptsValidTokenAndInjectsClaims(t *testing.T) {
	signingKey := []byte("secret")
	token, err := auth.NewToken("u1", time.Now(), signingKey)
	require.NoError(t, err)

	m := NewMiddleware(signingKey, true, zap.NewNop())
	var gotPrincipal string
	handler := m.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotPrincipal)
}
