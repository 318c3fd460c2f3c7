package tools

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-engine/pkg/fraction"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
)

// parseFraction parses the "num/den" wire notation (e.g. "9/10") used for
// probability and confidence arguments into an exact fraction.Fraction.
func parseFraction(s string) (fraction.Fraction, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return fraction.Fraction{}, fmt.Errorf("fraction %q must be in \"numerator/denominator\" form", s)
	}
	num, ok := new(big.Int).SetString(strings.TrimSpace(parts[0]), 10)
	if !ok {
		return fraction.Fraction{}, fmt.Errorf("fraction %q has a non-integer numerator", s)
	}
	den, ok := new(big.Int).SetString(strings.TrimSpace(parts[1]), 10)
	if !ok {
		return fraction.Fraction{}, fmt.Errorf("fraction %q has a non-integer denominator", s)
	}
	return fraction.MakeBig(num, den)
}

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, _ := args[key].(string)
	return val
}

// getOptionalStringSlice extracts an optional array-of-strings argument.
func getOptionalStringSlice(req mcp.CallToolRequest, key string) []string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// getOptionalID extracts an optional numeric id argument, returning ok=false
// when the key is absent. JSON numbers arrive as float64 through the MCP
// argument map regardless of their declared schema type.
func getOptionalID(req mcp.CallToolRequest, key string) (kernel.ID, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, present := args[key]
	if !present {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return kernel.ID(v), true
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return kernel.ID(parsed), true
	default:
		return 0, false
	}
}

// requireID extracts a required numeric id argument by key.
func requireID(req mcp.CallToolRequest, key string) (kernel.ID, error) {
	id, ok := getOptionalID(req, key)
	if !ok {
		return 0, &missingParamError{key: key}
	}
	return id, nil
}

// getOptionalMetadata extracts an optional metadata object argument,
// converting its string-valued keys into kernel.Metadata in sorted key
// order for deterministic output.
func getOptionalMetadata(req mcp.CallToolRequest, key string) kernel.Metadata {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(kernel.Metadata, 0, len(keys))
	for _, k := range keys {
		if v, ok := raw[k].(string); ok {
			out = append(out, kernel.MetadataEntry{Key: k, Value: v})
		}
	}
	return out
}

// getOptionalBool extracts an optional boolean argument, reporting whether
// it was present.
func getOptionalBool(req mcp.CallToolRequest, key string) (bool, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return false, false
	}
	val, ok := args[key].(bool)
	return val, ok
}

// getOptionalBoolWithDefault extracts an optional boolean argument, falling
// back to defaultVal when absent.
func getOptionalBoolWithDefault(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	if val, ok := getOptionalBool(req, key); ok {
		return val
	}
	return defaultVal
}

type missingParamError struct{ key string }

func (e *missingParamError) Error() string {
	return "missing required parameter: " + e.key
}
