package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
)

// ConnectivityToolDeps contains the dependencies the connectivity MCP tool
// needs.
type ConnectivityToolDeps struct {
	Facade *kernelapi.Facade
	Logger *zap.Logger
}

// RegisterConnectivityTools registers the connectivity diagnostic MCP tool.
func RegisterConnectivityTools(s *server.MCPServer, deps *ConnectivityToolDeps) {
	registerConceptConnectivityTool(s, deps)
}

func registerConceptConnectivityTool(s *server.MCPServer, deps *ConnectivityToolDeps) {
	tool := mcp.NewTool(
		"concept_connectivity",
		mcp.WithDescription(
			"Report the connected components and isolated concepts of the graph "+
				"induced by a single relationship type, over every concept that "+
				"participates in at least one relationship of that type. Useful for "+
				"spotting disconnected knowledge islands before they become a "+
				"surprise in an inference query.",
		),
		mcp.WithNumber("relationship_type", mcp.Required(), mcp.Description("Relationship type id")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typeID, err := requireID(req, "relationship_type")
		if err != nil {
			return nil, err
		}

		components, isolated := deps.Facade.ConceptConnectivity(ctx, typeID)
		return marshalResult(map[string]any{
			"connected_components": components,
			"isolated_concepts":    isolated,
		})
	})
}
