package tools

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
)

func newConnectivityTestServer(t *testing.T, f *kernelapi.Facade) *server.MCPServer {
	t.Helper()
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterConnectivityTools(s, &ConnectivityToolDeps{Facade: f, Logger: zap.NewNop()})
	return s
}

func TestConceptConnectivityToolSeparatesIslands(t *testing.T) {
	f := newTestFacade(t)
	s := newConnectivityTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := f.CreateConcept(ctx, "B", "", nil)
	require.NoError(t, err)
	c, err := f.CreateConcept(ctx, "C", "", nil)
	require.NoError(t, err)

	one := fraction.One()
	_, err = f.AssertRelationship(ctx, a.ID, b.ID, kernel.TypeIsA, one, one, nil)
	require.NoError(t, err)
	_, err = f.AssertRelationship(ctx, b.ID, c.ID, kernel.TypeHasA, one, one, nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "concept_connectivity", map[string]any{
		"relationship_type": float64(kernel.TypeIsA),
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var body struct {
		ConnectedComponents []struct {
			Concepts []float64
			Size     int
		} `json:"connected_components"`
		IsolatedConcepts []float64 `json:"isolated_concepts"`
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &body))
	require.Len(t, body.ConnectedComponents, 1)
	assert.ElementsMatch(t, []float64{float64(a.ID), float64(b.ID)}, body.ConnectedComponents[0].Concepts)
	assert.Empty(t, body.IsolatedConcepts)
}

func TestConceptConnectivityToolRequiresRelationshipType(t *testing.T) {
	f := newTestFacade(t)
	s := newConnectivityTestServer(t, f)

	_, err := callTool(t, s, ctxFor("u1"), "concept_connectivity", map[string]any{})
	assert.Error(t, err)
}
