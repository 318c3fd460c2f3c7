package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-engine/pkg/audit"
	"github.com/ekaya-inc/ekaya-engine/pkg/auth"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
)

// mcpError mirrors a JSON-RPC error surfaced through HandleMessage.
type mcpError struct {
	Code    int
	Message string
}

func (e *mcpError) Error() string { return e.Message }

// getTextContent extracts the text payload of a tool result's first content
// block.
func getTextContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	jsonBytes, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	var textContent struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(jsonBytes, &textContent))
	return textContent.Text
}

// callTool executes toolName against mcpServer through HandleMessage, the
// same path a real MCP client drives.
func callTool(t *testing.T, mcpServer *server.MCPServer, ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error) {
	t.Helper()

	callReq := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"id":      1,
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
	reqBytes, err := json.Marshal(callReq)
	require.NoError(t, err)

	result := mcpServer.HandleMessage(ctx, reqBytes)

	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result *mcp.CallToolResult `json:"result,omitempty"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	if response.Error != nil {
		return nil, &mcpError{Code: response.Error.Code, Message: response.Error.Message}
	}
	return response.Result, nil
}

// newTestFacade returns a bootstrapped façade over a fresh in-memory store.
func newTestFacade(t *testing.T) *kernelapi.Facade {
	t.Helper()
	store := kernel.NewStore()
	f := kernelapi.New(store, audit.NewMutationAuditor(zap.NewNop()), zap.NewNop())
	require.NoError(t, f.Bootstrap())
	return f
}

// ctxFor returns a context carrying claims for principal.
func ctxFor(principal string) context.Context {
	claims := &auth.Claims{}
	claims.Subject = principal
	return auth.WithClaims(context.Background(), claims)
}
