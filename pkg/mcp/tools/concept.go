package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
	"github.com/ekaya-inc/ekaya-engine/pkg/query"
)

// ConceptToolDeps contains the dependencies concept MCP tools need.
type ConceptToolDeps struct {
	Facade *kernelapi.Facade
	Logger *zap.Logger
}

// RegisterConceptTools registers the concept MCP tools.
func RegisterConceptTools(s *server.MCPServer, deps *ConceptToolDeps) {
	registerCreateConceptTool(s, deps)
	registerGetConceptTool(s, deps)
	registerUpdateConceptTool(s, deps)
	registerQueryConceptsTool(s, deps)
}

func registerCreateConceptTool(s *server.MCPServer, deps *ConceptToolDeps) {
	tool := mcp.NewTool(
		"create_concept",
		mcp.WithDescription(
			"Create a new concept (a named node in the knowledge graph). "+
				"Example: create_concept(name='Dog', description='A domesticated canine').",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Concept name")),
		mcp.WithString("description", mcp.Description("Optional - free-text description")),
		mcp.WithObject("metadata", mcp.Description("Optional - object of string key/value metadata pairs")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return nil, err
		}
		description := getOptionalString(req, "description")
		metadata := getOptionalMetadata(req, "metadata")

		c, err := deps.Facade.CreateConcept(ctx, name, description, metadata)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("create concept: %w", err)
		}
		return marshalResult(c)
	})
}

func registerGetConceptTool(s *server.MCPServer, deps *ConceptToolDeps) {
	tool := mcp.NewTool(
		"get_concept",
		mcp.WithDescription("Retrieve a single concept by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Concept id")),
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

		c, err := deps.Facade.GetConcept(ctx, id)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("get concept: %w", err)
		}
		return marshalResult(c)
	})
}

func registerUpdateConceptTool(s *server.MCPServer, deps *ConceptToolDeps) {
	tool := mcp.NewTool(
		"update_concept",
		mcp.WithDescription(
			"Update a concept's name, description, or metadata. Only the caller who "+
				"created the concept may update it. Omitted fields are left unchanged.",
		),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Concept id")),
		mcp.WithString("name", mcp.Description("Optional - new name")),
		mcp.WithString("description", mcp.Description("Optional - new description")),
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

		var patch kernel.ConceptPatch
		if args, ok := req.Params.Arguments.(map[string]any); ok {
			if _, present := args["name"]; present {
				name := getOptionalString(req, "name")
				patch.Name = &name
			}
			if _, present := args["description"]; present {
				description := getOptionalString(req, "description")
				patch.Description = &description
			}
			if _, present := args["metadata"]; present {
				metadata := getOptionalMetadata(req, "metadata")
				patch.Metadata = &metadata
			}
		}

		if err := deps.Facade.UpdateConcept(ctx, id, patch); err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("update concept: %w", err)
		}
		return marshalResult(map[string]any{"id": id, "updated": true})
	})
}

func registerQueryConceptsTool(s *server.MCPServer, deps *ConceptToolDeps) {
	tool := mcp.NewTool(
		"query_concepts",
		mcp.WithDescription(
			"Search concepts by name substring, creator, and/or metadata match. "+
				"All filters are AND-combined; an omitted filter matches everything.",
		),
		mcp.WithString("name_contains", mcp.Description("Optional - substring match on concept name")),
		mcp.WithString("creator", mcp.Description("Optional - exact creator principal id")),
		mcp.WithObject("metadata", mcp.Description("Optional - metadata key/value pairs that must all be present")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		criteria := query.ConceptCriteria{
			NameSubstring: getOptionalString(req, "name_contains"),
			Metadata:      getOptionalMetadata(req, "metadata"),
		}
		if creator := getOptionalString(req, "creator"); creator != "" {
			criteria = criteria.WithCreator(creator)
		}

		page := deps.Facade.QueryConcepts(ctx, criteria)
		return marshalResult(page)
	})
}

// marshalResult JSON-encodes v as the text of an MCP tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	jsonResult, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonResult)), nil
}
