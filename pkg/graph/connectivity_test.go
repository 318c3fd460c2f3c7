package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/graph"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

func TestFindConnectedComponentsSeparatesIslands(t *testing.T) {
	one := fraction.One()
	rels := []*kernel.Relationship{
		{ID: 0, SourceID: 1, TargetID: 2, TypeID: kernel.TypeIsA, Probability: one, Confidence: one},
		{ID: 1, SourceID: 2, TargetID: 3, TypeID: kernel.TypeIsA, Probability: one, Confidence: one},
		{ID: 2, SourceID: 9, TargetID: 10, TypeID: kernel.TypeHasA, Probability: one, Confidence: one}, // different type, excluded
	}
	g := graph.FromRelationships(rels, kernel.TypeIsA)
	g.AddConcept(99) // isolated concept with no edges of this type

	components, islands := g.FindConnectedComponents()
	assert.Len(t, components, 1)
	assert.Equal(t, 3, components[0].Size)
	assert.ElementsMatch(t, []kernel.ID{1, 2, 3}, components[0].Concepts)
	assert.ElementsMatch(t, []kernel.ID{99}, islands)
}

func TestFindConnectedComponentsEmptyGraph(t *testing.T) {
	g := graph.NewConceptGraph()
	components, islands := g.FindConnectedComponents()
	assert.Empty(t, components)
	assert.Empty(t, islands)
}
