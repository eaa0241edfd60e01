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

// HTTPProvider runs a check by making an HTTP request and reporting the
// response as its output. Grounded on the teacher's HTTPExecutor
// (pkg/executor/builtin/http.go), reworked onto the dispatch.Provider
// interface: failures become a fatal CheckResult rather than a Go error.
type HTTPProvider struct {
	client *http.Client
}

// NewHTTPProvider creates an HTTPProvider with a bounded default client.
func NewHTTPProvider() *HTTPProvider {
	return &HTTPProvider{client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *HTTPProvider) Type() string { return "http" }

func (p *HTTPProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	cfg := check.Config
	if err := pconfig.Required(cfg, "method", "url"); err != nil {
		return fatal(check.Type, "%s", err)
	}
	method, _ := pconfig.String(cfg, "method")
	url, _ := pconfig.String(cfg, "url")

	var body io.Reader
	if raw, ok := cfg["body"]; ok {
		bodyBytes, err := encodeBody(raw)
		if err != nil {
			return fatal(check.Type, "encode request body: %s", err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(execCtx.Context, method, url, body)
	if err != nil {
		return fatal(check.Type, "build request: %s", err)
	}
	for k, v := range pconfig.Map(cfg, "headers") {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fatal(check.Type, "request failed: %s", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fatal(check.Type, "read response: %s", err)
	}

	result := map[string]any{
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
	}
	var parsed any
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			parsed = string(respBody)
		}
	}
	result["body"] = parsed

	if resp.StatusCode >= 400 {
		res := fatal(check.Type, "HTTP %d", resp.StatusCode)
		res.Output = result
		return res
	}
	return &models.CheckResult{Output: result}
}

func encodeBody(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}
