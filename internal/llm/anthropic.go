package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imyousuf/codescribe/pkg/llm"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-sonnet-4-5-20250929"
	anthropicAPIVersion     = "2023-06-01"
)

func init() {
	llm.RegisterProvider("anthropic", newAnthropicClient)
}

// anthropicClient implements llm.Client using the Anthropic Messages API.
type anthropicClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newAnthropicClient(cfg llm.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Anthropic provider")
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	timeout := defaultTimeout
	if cfg.RequestTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}

	return &anthropicClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// anthropicRequest is the request body for the Anthropic Messages API.
type anthropicRequest struct {
	Model       string               `json:"model"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature *float64             `json:"temperature,omitempty"`
	System      string               `json:"system,omitempty"`
	Messages    []anthropicMessage   `json:"messages"`
	Tools       []anthropicToolDef   `json:"tools,omitempty"`
}

// anthropicMessage handles both plain text and content-block messages.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []anthropicContentBlock
}

type anthropicToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   any             `json:"content,omitempty"` // string for tool_result
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
	Usage      anthropicUsage          `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a chat completion request with optional tools.
func (c *anthropicClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      req.SystemPrompt,
		Messages:    convertAnthropicMessages(req.Messages),
		Tools:       convertAnthropicTools(req.Tools),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: "Anthropic", StatusCode: resp.StatusCode, Message: string(respBody)}
		var decoded anthropicError
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Error.Message != "" {
			apiErr.Message = decoded.Error.Type + ": " + decoded.Error.Message
		}
		return nil, apiErr
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return parseAnthropicResponse(apiResp), nil
}

// convertAnthropicMessages maps the provider-neutral conversation onto
// Messages API content blocks. Consecutive tool results batch into a
// single user message, as the API requires.
func convertAnthropicMessages(messages []llm.Message) []anthropicMessage {
	var result []anthropicMessage
	var toolResultBatch []anthropicContentBlock

	flushToolResults := func() {
		if len(toolResultBatch) > 0 {
			result = append(result, anthropicMessage{
				Role:    "user",
				Content: toolResultBatch,
			})
			toolResultBatch = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleTool:
			toolResultBatch = append(toolResultBatch, anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Content,
			})
		case llm.RoleAssistant:
			flushToolResults()
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropicContentBlock
				if msg.Content != "" {
					blocks = append(blocks, anthropicContentBlock{
						Type: "text",
						Text: msg.Content,
					})
				}
				for _, tc := range msg.ToolCalls {
					blocks = append(blocks, anthropicContentBlock{
						Type:  "tool_use",
						ID:    tc.ID,
						Name:  tc.Name,
						Input: tc.Arguments,
					})
				}
				result = append(result, anthropicMessage{
					Role:    "assistant",
					Content: blocks,
				})
			} else {
				result = append(result, anthropicMessage{
					Role:    "assistant",
					Content: msg.Content,
				})
			}
		default:
			flushToolResults()
			result = append(result, anthropicMessage{
				Role:    string(msg.Role),
				Content: msg.Content,
			})
		}
	}
	flushToolResults()
	return result
}

func convertAnthropicTools(tools []llm.Tool) []anthropicToolDef {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]anthropicToolDef, len(tools))
	for i, t := range tools {
		defs[i] = anthropicToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
	}
	return defs
}

func parseAnthropicResponse(apiResp anthropicResponse) *llm.Response {
	resp := &llm.Response{
		FinishReason: apiResp.StopReason,
		Usage: llm.TokenUsage{
			InputTokens:  apiResp.Usage.InputTokens,
			OutputTokens: apiResp.Usage.OutputTokens,
		},
	}

	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}

	return resp
}

// Model returns the model name being used.
func (c *anthropicClient) Model() string {
	return c.model
}

// Provider returns the provider name.
func (c *anthropicClient) Provider() string {
	return "anthropic"
}

// Close releases resources held by the client.
func (c *anthropicClient) Close() error {
	return nil
}
