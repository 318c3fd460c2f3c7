package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/query"
)

func TestConceptsNameSubstring(t *testing.T) {
	concepts := []*kernel.Concept{
		{ID: 0, Name: "Dog"},
		{ID: 1, Name: "Doghouse"},
		{ID: 2, Name: "Cat"},
	}
	got := query.Concepts(concepts, query.ConceptCriteria{NameSubstring: "Dog"})
	assert.Len(t, got, 2)
}

func TestConceptsMetadataAndCreator(t *testing.T) {
	concepts := []*kernel.Concept{
		{ID: 0, Name: "A", Creator: kernel.Creator{PrincipalID: "u1"}, Metadata: kernel.Metadata{{Key: "kind", Value: "animal"}}},
		{ID: 1, Name: "B", Creator: kernel.Creator{PrincipalID: "u2"}, Metadata: kernel.Metadata{{Key: "kind", Value: "animal"}}},
	}
	got := query.Concepts(concepts, query.ConceptCriteria{Metadata: kernel.Metadata{{Key: "kind", Value: "animal"}}}.WithCreator("u1"))
	assert.Len(t, got, 1)
	assert.Equal(t, kernel.ID(0), got[0].ID)
}

func TestRelationshipsProbabilityRange(t *testing.T) {
	half, _ := fraction.Make(1, 2)
	high, _ := fraction.Make(9, 10)
	low, _ := fraction.Make(1, 10)

	rels := []*kernel.Relationship{
		{ID: 0, Probability: high},
		{ID: 1, Probability: low},
	}
	got := query.Relationships(rels, query.RelationshipCriteria{MinProbability: &half})
	assert.Len(t, got, 1)
	assert.Equal(t, kernel.ID(0), got[0].ID)
}

func TestRelationshipsExactMatches(t *testing.T) {
	typeA := kernel.ID(0)
	rels := []*kernel.Relationship{
		{ID: 0, SourceID: 1, TargetID: 2, TypeID: 0},
		{ID: 1, SourceID: 1, TargetID: 3, TypeID: 1},
	}
	got := query.Relationships(rels, query.RelationshipCriteria{Type: &typeA})
	assert.Len(t, got, 1)
	assert.Equal(t, kernel.ID(0), got[0].ID)
}

func TestPaginateSinglePage(t *testing.T) {
	env := query.Paginate([]int{1, 2, 3})
	assert.Equal(t, 3, env.TotalCount)
	assert.False(t, env.HasMore)
	assert.Equal(t, 1, env.Page)
}
