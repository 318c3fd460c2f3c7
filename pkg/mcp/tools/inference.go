package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/inference"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
)

// InferenceToolDeps contains the dependencies the inference MCP tool needs.
type InferenceToolDeps struct {
	Facade *kernelapi.Facade
	Logger *zap.Logger
}

// RegisterInferenceTools registers the inference MCP tool.
func RegisterInferenceTools(s *server.MCPServer, deps *InferenceToolDeps) {
	registerInferRelationshipsTool(s, deps)
}

func registerInferRelationshipsTool(s *server.MCPServer, deps *InferenceToolDeps) {
	tool := mcp.NewTool(
		"infer_relationships",
		mcp.WithDescription(
			"Run a bounded-depth traversal from a starting concept, deriving direct, "+
				"symmetric, and transitive relationships per the relationship type's "+
				"declared logical laws. Probability decays multiplicatively along a "+
				"derivation chain; confidence is the minimum along the chain. The "+
				"traversal is depth-first in insertion order and each target is "+
				"reported once, for the first path that reaches it; a later path "+
				"to the same target is not reported, even if it is shorter.",
		),
		mcp.WithNumber("starting_concept", mcp.Required(), mcp.Description("Concept id to start the traversal from")),
		mcp.WithNumber("relationship_type", mcp.Description("Optional - relationship type id to traverse (default: IS-A, id 0)")),
		mcp.WithNumber("max_depth", mcp.Description("Optional - maximum traversal depth")),
		mcp.WithString("min_probability", mcp.Description("Optional - drop derived edges below this exact fraction, \"num/den\" form")),
		mcp.WithString("min_confidence", mcp.Description("Optional - drop derived edges below this exact fraction, \"num/den\" form")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startingConcept, err := requireID(req, "starting_concept")
		if err != nil {
			return nil, err
		}

		q := inference.Query{StartingConcept: startingConcept}

		if typeID, ok := getOptionalID(req, "relationship_type"); ok {
			q.RelationshipType = &typeID
		}
		if maxDepthID, ok := getOptionalID(req, "max_depth"); ok {
			maxDepth := int(maxDepthID)
			q.MaxDepth = &maxDepth
		}
		if s := getOptionalString(req, "min_probability"); s != "" {
			f, err := parseFraction(s)
			if err != nil {
				return NewErrorResult("invalid_fraction", err.Error()), nil
			}
			q.MinProbability = &f
		}
		if s := getOptionalString(req, "min_confidence"); s != "" {
			f, err := parseFraction(s)
			if err != nil {
				return NewErrorResult("invalid_fraction", err.Error()), nil
			}
			q.MinConfidence = &f
		}

		results, err := deps.Facade.InferRelationships(ctx, q)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("infer relationships: %w", err)
		}
		return marshalResult(map[string]any{"results": results})
	})
}
