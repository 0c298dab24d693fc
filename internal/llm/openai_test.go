package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/imyousuf/codescribe/pkg/llm"
)

func TestProviderRegistration(t *testing.T) {
	for _, name := range []string{"openai", "anthropic"} {
		if !llm.IsProviderRegistered(name) {
			t.Errorf("expected %q provider to be registered via init()", name)
		}
	}
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := llm.NewClient(llm.Config{Provider: "openai"})
	if err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestNewOpenAIClientDefaults(t *testing.T) {
	client, err := llm.NewClient(llm.Config{
		Provider: "openai",
		APIKey:   "test-key",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer client.Close()

	if client.Model() != defaultOpenAIModel {
		t.Errorf("expected default model %q, got %q", defaultOpenAIModel, client.Model())
	}
	if client.Provider() != "openai" {
		t.Errorf("expected provider %q, got %q", "openai", client.Provider())
	}
}

func TestOpenAICompleteText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(500)
			return
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{
				Message:      openaiMessage{Role: "assistant", Content: "hello"},
				FinishReason: "stop",
			}},
			Usage: openaiUsage{PromptTokens: 12, CompletionTokens: 3},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(llm.Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Complete(context.Background(), &llm.Request{
		SystemPrompt: "be brief",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "hello" || resp.FinishReason != "stop" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOpenAICompleteToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(500)
			return
		}
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "read_code_components" {
			t.Errorf("unexpected tools: %+v", req.Tools)
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{
				Message: openaiMessage{
					Role: "assistant",
					ToolCalls: []openaiToolCall{{
						ID:   "tc1",
						Type: "function",
						Function: openaiFunctionCall{
							Name:      "read_code_components",
							Arguments: `{"component_ids":["a.f"]}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(llm.Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Complete(context.Background(), &llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "go"}},
		Tools: []llm.Tool{{
			Name:        "read_code_components",
			Description: "Read source code by component id.",
			InputSchema: json.RawMessage(`{"type":"object"}`),
		}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	if resp.ToolCalls[0].Name != "read_code_components" {
		t.Errorf("tool call = %+v", resp.ToolCalls[0])
	}
	var args struct {
		ComponentIDs []string `json:"component_ids"`
	}
	if err := json.Unmarshal(resp.ToolCalls[0].Arguments, &args); err != nil {
		t.Fatalf("arguments did not decode: %v", err)
	}
	if len(args.ComponentIDs) != 1 || args.ComponentIDs[0] != "a.f" {
		t.Errorf("arguments = %+v", args)
	}
}

func TestOpenAICompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit", "message": "slow down"},
		})
	}))
	defer server.Close()

	client, err := newOpenAIClient(llm.Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Complete(context.Background(), &llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("429 should be retryable: %v", err)
	}
}
