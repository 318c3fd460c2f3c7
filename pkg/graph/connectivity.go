// Package graph provides a read-only connectivity diagnostic over the
// concept graph induced by a single relationship type: which concepts form
// connected components, and which are isolated. It is generalized from a
// foreign-key table graph to concept ids connected by edges of one type.
package graph

import (
	"sort"

	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// ConceptGraph is an undirected adjacency structure over concept ids.
type ConceptGraph struct {
	edges    map[kernel.ID][]kernel.ID
	concepts map[kernel.ID]bool
}

// NewConceptGraph returns an empty graph.
func NewConceptGraph() *ConceptGraph {
	return &ConceptGraph{
		edges:    make(map[kernel.ID][]kernel.ID),
		concepts: make(map[kernel.ID]bool),
	}
}

// AddConcept registers id with no edges, so isolated concepts still appear
// in connectivity results.
func (g *ConceptGraph) AddConcept(id kernel.ID) {
	g.concepts[id] = true
}

// AddEdge adds an undirected edge between a and b, registering both ends.
func (g *ConceptGraph) AddEdge(a, b kernel.ID) {
	g.concepts[a] = true
	g.concepts[b] = true
	g.edges[a] = append(g.edges[a], b)
	g.edges[b] = append(g.edges[b], a)
}

// ConnectedComponent is a group of concepts reachable from one another.
type ConnectedComponent struct {
	Concepts []kernel.ID
	Size     int
}

// FindConnectedComponents partitions the graph via DFS, returning
// multi-concept components (largest first) and single-concept islands
// separately.
func (g *ConceptGraph) FindConnectedComponents() ([]ConnectedComponent, []kernel.ID) {
	visited := make(map[kernel.ID]bool)
	var components []ConnectedComponent

	ids := make([]kernel.ID, 0, len(g.concepts))
	for id := range g.concepts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if visited[id] {
			continue
		}
		members := g.dfs(id, visited)
		components = append(components, ConnectedComponent{Concepts: members, Size: len(members)})
	}

	var nonIslands []ConnectedComponent
	var islands []kernel.ID
	for _, c := range components {
		if c.Size == 1 {
			islands = append(islands, c.Concepts[0])
			continue
		}
		nonIslands = append(nonIslands, c)
	}

	sort.Slice(nonIslands, func(i, j int) bool { return nonIslands[i].Size > nonIslands[j].Size })
	return nonIslands, islands
}

func (g *ConceptGraph) dfs(start kernel.ID, visited map[kernel.ID]bool) []kernel.ID {
	var component []kernel.ID
	stack := []kernel.ID{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true
		component = append(component, current)

		for _, neighbor := range g.edges[current] {
			if !visited[neighbor] {
				stack = append(stack, neighbor)
			}
		}
	}
	return component
}

// FromRelationships builds a ConceptGraph from the relationships of a
// single type, treating every edge as undirected for connectivity purposes
// regardless of the type's own directionality.
func FromRelationships(relationships []*kernel.Relationship, typeID kernel.ID) *ConceptGraph {
	g := NewConceptGraph()
	for _, r := range relationships {
		if r.TypeID != typeID {
			continue
		}
		g.AddEdge(r.SourceID, r.TargetID)
	}
	return g
}
