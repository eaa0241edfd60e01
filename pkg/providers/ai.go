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

// AIProvider calls an OpenAI-compatible chat completions endpoint directly
// over HTTP, grounded on the teacher's OpenAIProvider
// (pkg/executor/builtin/llm_openai.go) — same request/response shape, pared
// down to prompt/model/temperature/max_tokens since this engine has no
// template-resolution or tool-calling stage of its own.
type AIProvider struct {
	client *http.Client
}

func NewAIProvider() *AIProvider {
	return &AIProvider{client: &http.Client{Timeout: 120 * time.Second}}
}

func (p *AIProvider) Type() string { return "ai" }

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type aiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []aiChatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type aiChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      aiChatMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *AIProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	cfg := check.Config
	if err := pconfig.Required(cfg, "api_key", "model", "prompt"); err != nil {
		return fatal(check.Type, "%s", err)
	}
	apiKey, _ := pconfig.String(cfg, "api_key")
	model, _ := pconfig.String(cfg, "model")
	prompt, _ := pconfig.String(cfg, "prompt")
	baseURL := pconfig.StringDefault(cfg, "base_url", "https://api.openai.com/v1")

	temperature := 0.0
	if v, ok := cfg["temperature"].(float64); ok {
		temperature = v
	}
	reqBody := aiChatRequest{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   pconfig.IntDefault(cfg, "max_tokens", 0),
	}
	if instruction := pconfig.StringDefault(cfg, "instruction", ""); instruction != "" {
		reqBody.Messages = append(reqBody.Messages, aiChatMessage{Role: "system", Content: instruction})
	}
	reqBody.Messages = append(reqBody.Messages, aiChatMessage{Role: "user", Content: prompt})

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fatal(check.Type, "marshal request: %s", err)
	}

	httpReq, err := http.NewRequestWithContext(execCtx.Context, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return fatal(check.Type, "build request: %s", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fatal(check.Type, "request failed: %s", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fatal(check.Type, "read response: %s", err)
	}

	var parsed aiChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fatal(check.Type, "unmarshal response: %s", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "request failed"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return fatal(check.Type, "ai request error (%d): %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return fatal(check.Type, "ai response contained no choices")
	}

	return &models.CheckResult{Output: map[string]any{
		"content":       parsed.Choices[0].Message.Content,
		"finish_reason": parsed.Choices[0].FinishReason,
		"model":         parsed.Model,
		"usage": map[string]any{
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		},
	}}
}
