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

func newInferenceTestServer(t *testing.T, f *kernelapi.Facade) *server.MCPServer {
	t.Helper()
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterInferenceTools(s, &InferenceToolDeps{Facade: f, Logger: zap.NewNop()})
	return s
}

func TestInferRelationshipsToolTransitiveChain(t *testing.T) {
	f := newTestFacade(t)
	s := newInferenceTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := f.CreateConcept(ctx, "B", "", nil)
	require.NoError(t, err)
	c, err := f.CreateConcept(ctx, "C", "", nil)
	require.NoError(t, err)
	d, err := f.CreateConcept(ctx, "D", "", nil)
	require.NoError(t, err)

	one := fraction.One()
	_, err = f.AssertRelationship(ctx, a.ID, b.ID, kernel.TypeIsA, one, one, nil)
	require.NoError(t, err)
	_, err = f.AssertRelationship(ctx, b.ID, c.ID, kernel.TypeIsA, one, one, nil)
	require.NoError(t, err)
	_, err = f.AssertRelationship(ctx, c.ID, d.ID, kernel.TypeIsA, one, one, nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "infer_relationships", map[string]any{
		"starting_concept": float64(a.ID),
		"max_depth":        float64(3),
		"min_probability":  "1/1",
		"min_confidence":   "1/1",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var body struct {
		Results []map[string]any
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &body))
	assert.Len(t, body.Results, 3)
}

func TestInferRelationshipsToolMaxDepthBounds(t *testing.T) {
	f := newTestFacade(t)
	s := newInferenceTestServer(t, f)
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
	_, err = f.AssertRelationship(ctx, b.ID, c.ID, kernel.TypeIsA, one, one, nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "infer_relationships", map[string]any{
		"starting_concept": float64(a.ID),
		"max_depth":        float64(1),
	})
	require.NoError(t, err)

	var body struct {
		Results []map[string]any
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &body))
	assert.Len(t, body.Results, 1)
}

func TestInferRelationshipsToolUnknownType(t *testing.T) {
	f := newTestFacade(t)
	s := newInferenceTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "infer_relationships", map[string]any{
		"starting_concept":  float64(a.ID),
		"relationship_type": float64(9999),
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &errResp))
	assert.Equal(t, "UNKNOWN_RELATIONSHIP_TYPE", errResp.Code)
}
