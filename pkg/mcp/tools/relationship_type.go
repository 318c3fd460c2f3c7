package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
)

// RelationshipTypeToolDeps contains the dependencies relationship-type MCP
// tools need.
type RelationshipTypeToolDeps struct {
	Facade *kernelapi.Facade
	Logger *zap.Logger
}

// RegisterRelationshipTypeTools registers the relationship-type MCP tools.
func RegisterRelationshipTypeTools(s *server.MCPServer, deps *RelationshipTypeToolDeps) {
	registerCreateRelationshipTypeTool(s, deps)
	registerGetRelationshipTypeTool(s, deps)
	registerDeprecateRelationshipTypeTool(s, deps)
}

func combinationModeFromString(s string) kernel.CombinationMode {
	switch s {
	case "MINIMUM":
		return kernel.CombinationMinimum
	case "MAXIMUM":
		return kernel.CombinationMaximum
	case "OVERRIDE":
		return kernel.CombinationOverride
	default:
		return kernel.CombinationMultiply
	}
}

func registerCreateRelationshipTypeTool(s *server.MCPServer, deps *RelationshipTypeToolDeps) {
	tool := mcp.NewTool(
		"create_relationship_type",
		mcp.WithDescription(
			"Register a new relationship type: a schema object declaring the logical "+
				"laws (transitive/symmetric/reflexive/irreflexive) and inheritance "+
				"behavior that govern every relationship asserted against it. "+
				"Example: create_relationship_type(name='IS_A', transitive=true).",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Relationship type name")),
		mcp.WithString("description", mcp.Description("Optional - free-text description")),
		mcp.WithBoolean("transitive", mcp.Description("If A->B and B->C both hold, so does A->C")),
		mcp.WithBoolean("symmetric", mcp.Description("If A->B holds, so does B->A")),
		mcp.WithBoolean("reflexive", mcp.Description("A concept may relate to itself under this type (self-relationships are permitted, not derived)")),
		mcp.WithBoolean("irreflexive", mcp.Description("A concept may never relate to itself under this type")),
		mcp.WithBoolean("inheritable", mcp.Description("Stored with the type; the inference engine does not read it")),
		mcp.WithString("combination_mode", mcp.Description("One of MULTIPLY, MINIMUM, MAXIMUM, OVERRIDE (default MULTIPLY)")),
		mcp.WithArray("required_metadata_keys", mcp.Description("Optional - metadata keys every relationship of this type must carry")),
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

		logical := kernel.LogicalProperties{
			Transitive:  getOptionalBoolWithDefault(req, "transitive", false),
			Symmetric:   getOptionalBoolWithDefault(req, "symmetric", false),
			Reflexive:   getOptionalBoolWithDefault(req, "reflexive", false),
			Irreflexive: getOptionalBoolWithDefault(req, "irreflexive", false),
		}
		inheritance := kernel.InheritanceProperties{
			Inheritable:     getOptionalBoolWithDefault(req, "inheritable", false),
			CombinationMode: combinationModeFromString(getOptionalString(req, "combination_mode")),
		}

		var rules []kernel.ValidationRule
		if keys := getOptionalStringSlice(req, "required_metadata_keys"); len(keys) > 0 {
			rules = append(rules, kernel.ValidationRule{Kind: kernel.RuleRequiredMetadata, Keys: keys})
		}

		metadata := getOptionalMetadata(req, "metadata")

		t, err := deps.Facade.CreateRelationshipType(ctx, name, description, logical, inheritance, rules, metadata)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("create relationship type: %w", err)
		}
		return marshalResult(t)
	})
}

func registerGetRelationshipTypeTool(s *server.MCPServer, deps *RelationshipTypeToolDeps) {
	tool := mcp.NewTool(
		"get_relationship_type",
		mcp.WithDescription("Retrieve a single relationship type by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Relationship type id")),
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
		t, err := deps.Facade.GetRelationshipType(ctx, id)
		if err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("get relationship type: %w", err)
		}
		return marshalResult(t)
	})
}

func registerDeprecateRelationshipTypeTool(s *server.MCPServer, deps *RelationshipTypeToolDeps) {
	tool := mcp.NewTool(
		"deprecate_relationship_type",
		mcp.WithDescription(
			"Mark a relationship type deprecated. Existing relationships of that "+
				"type remain retrievable, but new assertions against it will fail.",
		),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Relationship type id")),
		mcp.WithNumber("replaced_by", mcp.Description("Optional - id of the replacement relationship type")),
		mcp.WithString("reason", mcp.Description("Optional - reason for deprecation")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireID(req, "id")
		if err != nil {
			return nil, err
		}
		reason := getOptionalString(req, "reason")

		var replacedBy *kernel.ID
		if rb, ok := getOptionalID(req, "replaced_by"); ok {
			replacedBy = &rb
		}

		if err := deps.Facade.DeprecateRelationshipType(ctx, id, replacedBy, reason); err != nil {
			if result := KernelErrorResult(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("deprecate relationship type: %w", err)
		}
		return marshalResult(map[string]any{"id": id, "deprecated": true})
	})
}
