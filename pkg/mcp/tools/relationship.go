package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
	"github.com/ekaya-inc/ekaya-engine/pkg/query"
)

// RelationshipToolDeps contains the dependencies relationship MCP tools
// need.
type RelationshipToolDeps struct {
	Facade *kernelapi.Facade
	Logger *zap.Logger
}

// RegisterRelationshipTools registers the relationship MCP tools.
func RegisterRelationshipTools(s *server.MCPServer, deps *RelationshipToolDeps) {
	registerAssertRelationshipTool(s, deps)
	registerGetRelationshipTool(s, deps)
	registerUpdateRelationshipTool(s, deps)
	registerQueryRelationshipsTool(s, deps)
}

func registerAssertRelationshipTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"assert_relationship",
		mcp.WithDescription(
			"Assert a probability/confidence-weighted relationship between two "+
				"concepts under a registered relationship type. The candidate is "+
				"validated against the type's declared laws and rules before it is "+
				"written. Probability and confidence are given as exact fractions in "+
				"\"numerator/denominator\" form, e.g. \"9/10\". "+
				"Example: assert_relationship(source_id=1, target_id=2, type_id=0, probability=\"1/1\", confidence=\"1/1\").",
		),
		mcp.WithNumber("source_id", mcp.Required(), mcp.Description("Source concept id")),
		mcp.WithNumber("target_id", mcp.Required(), mcp.Description("Target concept id")),
		mcp.WithNumber("type_id", mcp.Required(), mcp.Description("Relationship type id")),
		mcp.WithString("probability", mcp.Required(), mcp.Description("Exact fraction in \"num/den\" form, e.g. \"9/10\"")),
		mcp.WithString("confidence", mcp.Required(), mcp.Description("Exact fraction in \"num/den\" form, e.g. \"9/10\"")),
		mcp.WithObject("metadata", mcp.Description("Optional - object of string key/value metadata pairs")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sourceID, err := requireID(req, "source_id")
		if err != nil {
			return nil, err
		}
		targetID, err := requireID(req, "target_id")
		if err != nil {
			return nil, err
		}
		typeID, err := requireID(req, "type_id")
		if err != nil {
			return nil, err
		}

		probabilityStr, err := req.RequireString("probability")
		if err != nil {
			return nil, err
		}
		probability, err := parseFraction(probabilityStr)
		if err != nil {
			return NewErrorResult("invalid_fraction", err.Error()), nil
		}

		confidenceStr, err := req.RequireString("confidence")
		if err != nil {
			return nil, err
		}
		confidence, err := parseFraction(confidenceStr)
		if err != nil {
			return NewErrorResult("invalid_fraction", err.Error()), nil
		}

		metadata := getOptionalMetadata(req, "metadata")

		r, err := deps.Facade.AssertRelationship(ctx, sourceID, targetID, typeID, probability, confidence, metadata)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("assert relationship: %w", err)
		}
		return marshalResult(r)
	})
}

func registerGetRelationshipTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"get_relationship",
		mcp.WithDescription("Retrieve a single relationship by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Relationship id")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req, "id")
		if err != nil {
			return nil, err
		}
		r, err := deps.Facade.GetRelationship(ctx, id)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("get relationship: %w", err)
		}
		return marshalResult(r)
	})
}

func registerUpdateRelationshipTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"update_relationship",
		mcp.WithDescription(
			"Update a relationship's probability and/or metadata. Only the caller "+
				"who asserted the relationship may update it.",
		),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Relationship id")),
		mcp.WithString("probability", mcp.Description("Optional - new exact fraction in \"num/den\" form")),
		mcp.WithObject("metadata", mcp.Description("Optional - replacement metadata object")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req, "id")
		if err != nil {
			return nil, err
		}

		var patch kernel.RelationshipPatch
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if _, present := args["probability"]; present {
				probabilityStr := getOptionalString(req, "probability")
				probability, err := parseFraction(probabilityStr)
				if err != nil {
					return NewErrorResult("invalid_fraction", err.Error()), nil
				}
				patch.Probability = &probability
			}
			if _, present := args["metadata"]; present {
				metadata := getOptionalMetadata(req, "metadata")
				patch.Metadata = &metadata
			}
		}

		if err := deps.Facade.UpdateRelationship(ctx, id, patch); err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("update relationship: %w", err)
		}
		return marshalResult(map[string]any{"id": id, "updated": true})
	})
}

func registerQueryRelationshipsTool(s *server.MCPServer, deps *RelationshipToolDeps) {
	tool := mcp.NewTool(
		"query_relationships",
		mcp.WithDescription(
			"Search relationships by source/target/type/creator and/or a "+
				"probability range. All filters are AND-combined; an omitted "+
				"filter matches everything.",
		),
		mcp.WithNumber("from", mcp.Description("Optional - exact source concept id")),
		mcp.WithNumber("to", mcp.Description("Optional - exact target concept id")),
		mcp.WithNumber("type_id", mcp.Description("Optional - exact relationship type id")),
		mcp.WithString("creator", mcp.Description("Optional - exact creator principal id")),
		mcp.WithString("min_probability", mcp.Description("Optional - inclusive lower bound, \"num/den\" form")),
		mcp.WithString("max_probability", mcp.Description("Optional - inclusive upper bound, \"num/den\" form")),
		mcp.WithObject("metadata", mcp.Description("Optional - metadata key/value pairs that must all be present")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var criteria query.RelationshipCriteria

		if from, ok := getOptionalID(req, "from"); ok {
			criteria.From = &from
		}
		if to, ok := getOptionalID(req, "to"); ok {
			criteria.To = &to
		}
		if typeID, ok := getOptionalID(req, "type_id"); ok {
			criteria.Type = &typeID
		}
		if creator := getOptionalString(req, "creator"); creator != "" {
			criteria.Creator = &creator
		}
		if s := getOptionalString(req, "min_probability"); s != "" {
			f, err := parseFraction(s)
			if err != nil {
				return NewErrorResult("invalid_fraction", err.Error()), nil
			}
			criteria.MinProbability = &f
		}
		if s := getOptionalString(req, "max_probability"); s != "" {
			f, err := parseFraction(s)
			if err != nil {
				return NewErrorResult("invalid_fraction", err.Error()), nil
			}
			criteria.MaxProbability = &f
		}
		criteria.Metadata = getOptionalMetadata(req, "metadata")

		page := deps.Facade.QueryRelationships(ctx, criteria)
		return marshalResult(page)
	})
}
