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

func newRelationshipTestServer(t *testing.T, f *kernelapi.Facade) *server.MCPServer {
	t.Helper()
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterRelationshipTools(s, &RelationshipToolDeps{Facade: f, Logger: zap.NewNop()})
	RegisterConceptTools(s, &ConceptToolDeps{Facade: f, Logger: zap.NewNop()})
	return s
}

func TestAssertRelationshipTool(t *testing.T) {
	f := newTestFacade(t)
	s := newRelationshipTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := f.CreateConcept(ctx, "B", "", nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "assert_relationship", map[string]any{
		"source_id":   float64(a.ID),
		"target_id":   float64(b.ID),
		"type_id":     float64(kernel.TypeIsA),
		"probability": "1/1",
		"confidence":  "1/1",
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &body))
	assert.Equal(t, float64(a.ID), body["SourceID"])
	assert.Equal(t, float64(b.ID), body["TargetID"])
}

func TestAssertRelationshipToolInvalidFraction(t *testing.T) {
	f := newTestFacade(t)
	s := newRelationshipTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "assert_relationship", map[string]any{
		"source_id":   float64(a.ID),
		"target_id":   float64(a.ID),
		"type_id":     float64(kernel.TypeIsA),
		"probability": "not-a-fraction",
		"confidence":  "1/1",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestUpdateRelationshipToolRequiresCreator(t *testing.T) {
	f := newTestFacade(t)
	s := newRelationshipTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := f.CreateConcept(ctx, "B", "", nil)
	require.NoError(t, err)

	rel, err := f.AssertRelationship(ctx, a.ID, b.ID, kernel.TypeIsA, fraction.One(), fraction.One(), nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctxFor("u2"), "update_relationship", map[string]any{
		"id":          float64(rel.ID),
		"probability": "1/2",
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestQueryRelationshipsToolFiltersByType(t *testing.T) {
	f := newTestFacade(t)
	s := newRelationshipTestServer(t, f)
	ctx := ctxFor("u1")

	a, err := f.CreateConcept(ctx, "A", "", nil)
	require.NoError(t, err)
	b, err := f.CreateConcept(ctx, "B", "", nil)
	require.NoError(t, err)
	_, err = f.AssertRelationship(ctx, a.ID, b.ID, kernel.TypeIsA, fraction.One(), fraction.One(), nil)
	require.NoError(t, err)

	result, err := callTool(t, s, ctx, "query_relationships", map[string]any{
		"type_id": float64(kernel.TypeIsA),
	})
	require.NoError(t, err)

	var page struct {
		TotalCount int
	}
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &page))
	assert.Equal(t, 1, page.TotalCount)
}
