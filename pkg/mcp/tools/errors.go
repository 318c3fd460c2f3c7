package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// This is used to return actionable error information to the caller
// as a successful tool result, ensuring error details are visible
// rather than being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable/actionable errors that the caller should see and
// can potentially fix (e.g., invalid parameters, resource not found).
//
// Do NOT use this for system failures (persistence I/O errors, internal
// errors) - those should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// KernelErrorResult maps an error from the façade's closed apperrors
// taxonomy to a structured tool result, so every handler can funnel its
// error path through this one function instead of hand-rolling a switch
// per tool. It returns nil for errors it does not map (a missing caller
// identity, a SystemError, or any error outside the taxonomy).
func KernelErrorResult(err error) *mcp.CallToolResult {
	if err == nil {
		return nil
	}

	var validationErr apperrors.ValidationError
	if errors.As(err, &validationErr) {
		return NewErrorResultWithDetails(validationErr.Code, validationErr.Error(), map[string]any{
			"field":      validationErr.Field,
			"constraint": validationErr.Constraint,
			"value":      validationErr.Value,
		})
	}

	var invalidOpErr apperrors.InvalidOperationError
	if errors.As(err, &invalidOpErr) {
		return NewErrorResult("invalid_operation", invalidOpErr.Error())
	}

	var permErr apperrors.PermissionDeniedError
	if errors.As(err, &permErr) {
		return NewErrorResult("permission_denied", permErr.Error())
	}

	var confidenceErr apperrors.InvalidConfidenceError
	if errors.As(err, &confidenceErr) {
		return NewErrorResult("invalid_confidence", confidenceErr.Error())
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		return NewErrorResult("not_found", err.Error())
	}
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		return NewErrorResult("already_exists", err.Error())
	}

	return nil
}
