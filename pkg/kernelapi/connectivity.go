package kernelapi

import (
	"context"

	"github.com/ekaya-inc/ekaya-engine/pkg/graph"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// ConceptConnectivity reports the connected components and isolated
// concepts of the graph induced by a single relationship type, over every
// concept that participates in at least one relationship of that type.
func (f *Facade) ConceptConnectivity(ctx context.Context, typeID kernel.ID) ([]graph.ConnectedComponent, []kernel.ID) {
	g := graph.FromRelationships(f.store.ListRelationships(), typeID)
	return g.FindConnectedComponents()
}
