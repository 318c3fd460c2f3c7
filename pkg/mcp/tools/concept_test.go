package tools

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newConceptTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterConceptTools(s, &ConceptToolDeps{Facade: newTestFacade(t), Logger: zap.NewNop()})
	return s
}

func TestCreateConceptTool(t *testing.T) {
	s := newConceptTestServer(t)
	result, err := callTool(t, s, ctxFor("u1"), "create_concept", map[string]any{
		"name":        "Dog",
		"description": "A domesticated canine",
	})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &body))
	assert.Equal(t, "Dog", body["Name"])
}

func TestCreateConceptToolRequiresAuthentication(t *testing.T) {
	s := newConceptTestServer(t)
	_, err := callTool(t, s, ctxFor(""), "create_concept", map[string]any{"name": "Dog"})
	assert.Error(t, err)
}

func TestGetConceptTool(t *testing.T) {
	s := newConceptTestServer(t)
	ctx := ctxFor("u1")
	created, err := callTool(t, s, ctx, "create_concept", map[string]any{"name": "Cat"})
	require.NoError(t, err)
	var createdBody struct{ ID float64 }
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, created)), &createdBody))

	got, err := callTool(t, s, ctx, "get_concept", map[string]any{"id": createdBody.ID})
	require.NoError(t, err)
	var gotBody map[string]any
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, got)), &gotBody))
	assert.Equal(t, "Cat", gotBody["Name"])
}

func TestGetConceptToolNotFound(t *testing.T) {
	s := newConceptTestServer(t)
	result, err := callTool(t, s, ctxFor("u1"), "get_concept", map[string]any{"id": 999})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &errResp))
	assert.Equal(t, "not_found", errResp.Code)
}

func TestUpdateConceptToolRequiresCreator(t *testing.T) {
	s := newConceptTestServer(t)
	created, err := callTool(t, s, ctxFor("u1"), "create_concept", map[string]any{"name": "Dog"})
	require.NoError(t, err)
	var createdBody struct{ ID float64 }
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, created)), &createdBody))

	newName := "Wolf"
	result, err := callTool(t, s, ctxFor("u2"), "update_concept", map[string]any{
		"id":   createdBody.ID,
		"name": newName,
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &errResp))
	assert.Equal(t, "permission_denied", errResp.Code)
}

func TestQueryConceptsToolFiltersByNameSubstring(t *testing.T) {
	s := newConceptTestServer(t)
	ctx := ctxFor("u1")
	_, err := callTool(t, s, ctx, "create_concept", map[string]any{"name": "Dog"})
	require.NoError(t, err)
	_, err = callTool(t, s, ctx, "create_concept", map[string]any{"name": "Doghouse"})
	require.NoError(t, err)
	_, err = callTool(t, s, ctx, "create_concept", map[string]any{"name": "Cat"})
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "query_concepts", map[string]any{"name_contains": "Dog"})
	require.NoError(t, err)

	var page struct {
		Items      []map[string]any
		TotalCount int
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &page))
	assert.Equal(t, 2, page.TotalCount)
}
