package providers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
	pconfig "github.com/checkrun-dev/engine/pkg/providers/config"
)

// MCPProvider calls a tool on a remote MCP server over the streamable-HTTP
// transport (JSON-RPC 2.0 "tools/call" request/response). No MCP client
// library appears anywhere in the example pack, so this speaks the wire
// protocol directly with encoding/json and net/http, following the same
// request/response shape as HTTPProvider.
type MCPProvider struct {
	client *http.Client
}

func NewMCPProvider() *MCPProvider {
	return &MCPProvider{client: &http.Client{Timeout: 60 * time.Second}}
}

func (p *MCPProvider) Type() string { return "mcp" }

type mcpRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type mcpResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Result  any    `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *MCPProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	cfg := check.Config
	if err := pconfig.Required(cfg, "server_url", "tool"); err != nil {
		return fatal(check.Type, "%s", err)
	}
	serverURL, _ := pconfig.String(cfg, "server_url")
	tool, _ := pconfig.String(cfg, "tool")
	arguments, _ := cfg["arguments"].(map[string]any)

	reqBody := mcpRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params: map[string]any{
			"name":      tool,
			"arguments": arguments,
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fatal(check.Type, "marshal request: %s", err)
	}

	httpReq, err := http.NewRequestWithContext(execCtx.Context, http.MethodPost, serverURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fatal(check.Type, "build request: %s", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range pconfig.Map(cfg, "headers") {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fatal(check.Type, "request failed: %s", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fatal(check.Type, "read response: %s", err)
	}

	var parsed mcpResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fatal(check.Type, "unmarshal response: %s", err)
	}
	if parsed.Error != nil {
		return fatal(check.Type, "mcp error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	return &models.CheckResult{Output: parsed.Result}
}
