package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/token"
	"github.com/imyousuf/codescribe/pkg/llm"
)

// scriptedClient replays canned responses and records requests.
type scriptedClient struct {
	responses []*llm.Response
	err       error
	requests  []*llm.Request
}

func (s *scriptedClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.requests) > len(s.responses) {
		return &llm.Response{Content: "done"}, nil
	}
	return s.responses[len(s.requests)-1], nil
}

func (s *scriptedClient) Model() string    { return "scripted" }
func (s *scriptedClient) Provider() string { return "test" }
func (s *scriptedClient) Close() error     { return nil }

func testDeps(t *testing.T, client llm.Client, registry model.Registry) *Deps {
	t.Helper()
	ws, err := NewWorkspace(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Deps{
		Registry:  registry,
		Client:    client,
		Counter:   token.NewCounter(),
		Budgets:   model.DefaultBudgets(),
		Tree:      model.NewModuleNode("repo", ""),
		Workspace: ws,
	}
}

func singleFileRegistry() model.Registry {
	return model.Registry{
		"a.f": {ID: "a.f", Name: "f", Kind: model.KindFunction, RelativePath: "a.py", SourceCode: "def f(): pass"},
		"a.g": {ID: "a.g", Name: "g", Kind: model.KindFunction, RelativePath: "a.py", SourceCode: "def g(): pass"},
	}
}

func TestReaderTool(t *testing.T) {
	tool := NewReaderTool(singleFileRegistry())
	out, ok := tool.Execute(context.Background(), json.RawMessage(`{"component_ids":["a.f","ghost.x"]}`))
	if !ok {
		t.Fatalf("reader failed: %s", out)
	}
	if !strings.Contains(out, "def f(): pass") {
		t.Error("known component source missing")
	}
	if !strings.Contains(out, `component "ghost.x" not found`) {
		t.Errorf("unknown id marker missing:\n%s", out)
	}

	if _, ok := tool.Execute(context.Background(), json.RawMessage(`{"component_ids":[]}`)); ok {
		t.Error("empty id list accepted")
	}
}

func TestRunnerIdempotency(t *testing.T) {
	client := &scriptedClient{}
	deps := testDeps(t, client, singleFileRegistry())
	node := model.NewModuleNode("auth", "")
	node.Path = "auth"
	node.Components = []string{"a.f"}

	artifact := node.ArtifactPath(deps.Workspace.DocsDir())
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(artifact, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := NewRunner(deps).Run(context.Background(), node); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.requests) != 0 {
		t.Errorf("model called %d times despite existing artifact", len(client.requests))
	}
	data, _ := os.ReadFile(artifact)
	if string(data) != "existing" {
		t.Error("existing artifact overwritten")
	}
}

func TestRunnerLeafWritesThroughEditor(t *testing.T) {
	registry := singleFileRegistry()
	createArgs := `{"command":"create","path":"auth.md","file_text":"# auth\n\nDocs.\n"}`
	client := &scriptedClient{responses: []*llm.Response{
		{
			ToolCalls: []llm.ToolCall{{
				ID:        "tc1",
				Name:      "str_replace_editor",
				Arguments: json.RawMessage(createArgs),
			}},
			FinishReason: "tool_calls",
		},
		{Content: "Documentation complete."},
	}}
	deps := testDeps(t, client, registry)
	node := model.NewModuleNode("auth", "")
	node.Path = "auth"
	node.Components = []string{"a.f", "a.g"}

	if err := NewRunner(deps).Run(context.Background(), node); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Single-file module gets the leaf agent: two tools only.
	if got := len(client.requests[0].Tools); got != 2 {
		t.Errorf("leaf agent exposed %d tools, want 2", got)
	}
	if !strings.Contains(client.requests[0].SystemPrompt, "auth.md") {
		t.Error("system prompt not bound to the module")
	}

	data, err := os.ReadFile(filepath.Join(deps.Workspace.DocsDir(), "auth.md"))
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if !strings.HasPrefix(string(data), "# auth") {
		t.Errorf("artifact content = %q", data)
	}

	// Second request carries the tool result back.
	last := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "tc1" {
		t.Errorf("tool result message = %+v", last)
	}
}

func TestRunnerComplexGetsSubAgentTool(t *testing.T) {
	registry := model.Registry{
		"a.f": {ID: "a.f", Name: "f", Kind: model.KindFunction, RelativePath: "a.py", SourceCode: "def f(): pass"},
		"b.g": {ID: "b.g", Name: "g", Kind: model.KindFunction, RelativePath: "b.py", SourceCode: "def g(): pass"},
	}
	client := &scriptedClient{responses: []*llm.Response{{Content: "# core\n\nInline docs.\n"}}}
	deps := testDeps(t, client, registry)
	node := model.NewModuleNode("core", "")
	node.Path = "core"
	node.Components = []string{"a.f", "b.g"}

	if err := NewRunner(deps).Run(context.Background(), node); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(client.requests[0].Tools); got != 3 {
		t.Errorf("complex agent exposed %d tools, want 3", got)
	}

	// No editor use: the final text response is persisted.
	data, err := os.ReadFile(node.ArtifactPath(deps.Workspace.DocsDir()))
	if err != nil {
		t.Fatalf("fallback artifact missing: %v", err)
	}
	if !strings.Contains(string(data), "Inline docs.") {
		t.Errorf("artifact content = %q", data)
	}
}

func TestRunnerModelFailure(t *testing.T) {
	client := &scriptedClient{err: fmt.Errorf("boom")}
	deps := testDeps(t, client, singleFileRegistry())
	node := model.NewModuleNode("auth", "")
	node.Path = "auth"
	node.Components = []string{"a.f"}

	err := NewRunner(deps).Run(context.Background(), node)
	if !errors.Is(err, ErrAgent) {
		t.Errorf("err = %v, want ErrAgent", err)
	}
	if err == nil || !strings.Contains(err.Error(), "auth") {
		t.Errorf("error does not name the module: %v", err)
	}
}

func TestRunnerEmptyFinishFails(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{{Content: "   "}}}
	deps := testDeps(t, client, singleFileRegistry())
	node := model.NewModuleNode("auth", "")
	node.Path = "auth"
	node.Components = []string{"a.f"}

	if err := NewRunner(deps).Run(context.Background(), node); !errors.Is(err, ErrAgent) {
		t.Errorf("err = %v, want ErrAgent", err)
	}
}

func TestSubAgentGate(t *testing.T) {
	registry := model.Registry{
		"a.f": {ID: "a.f", Name: "f", RelativePath: "a.py", SourceCode: strings.Repeat("x", 200)},
		"b.g": {ID: "b.g", Name: "g", RelativePath: "b.py", SourceCode: strings.Repeat("y", 200)},
		"a.h": {ID: "a.h", Name: "h", RelativePath: "a.py", SourceCode: "small"},
	}
	client := &scriptedClient{responses: []*llm.Response{{Content: "# sub\n\nchild docs\n"}}}
	deps := testDeps(t, client, registry)
	deps.Budgets.MaxTokensPerLeafModule = 10
	deps.Budgets.MaxRecursionDepth = 2
	runner := NewRunner(deps)
	parent := model.NewModuleNode("core", "")
	parent.Path = "core"

	t.Run("at max depth returns inline message", func(t *testing.T) {
		tool := NewSubAgentTool(runner, parent, 2)
		out, ok := tool.Execute(context.Background(), json.RawMessage(`{"module_name":"sub","component_ids":["a.f","b.g"]}`))
		if !ok || out != inlineMessage {
			t.Errorf("out = %q (ok=%v)", out, ok)
		}
	})

	t.Run("single file returns inline message", func(t *testing.T) {
		tool := NewSubAgentTool(runner, parent, 0)
		out, ok := tool.Execute(context.Background(), json.RawMessage(`{"module_name":"sub","component_ids":["a.f","a.h"]}`))
		if !ok || out != inlineMessage {
			t.Errorf("out = %q (ok=%v)", out, ok)
		}
	})

	t.Run("small returns inline message", func(t *testing.T) {
		small := testDeps(t, client, registry)
		small.Budgets.MaxTokensPerLeafModule = 1 << 20
		tool := NewSubAgentTool(NewRunner(small), parent, 0)
		out, ok := tool.Execute(context.Background(), json.RawMessage(`{"module_name":"sub","component_ids":["a.f","b.g"]}`))
		if !ok || out != inlineMessage {
			t.Errorf("out = %q (ok=%v)", out, ok)
		}
	})

	t.Run("qualified sub-module spawns an agent", func(t *testing.T) {
		tool := NewSubAgentTool(runner, parent, 0)
		out, ok := tool.Execute(context.Background(), json.RawMessage(`{"module_name":"sub","component_ids":["a.f","b.g"]}`))
		if !ok {
			t.Fatalf("sub-agent failed: %s", out)
		}
		child := parent.Child("sub")
		if child == nil {
			t.Fatal("child node not attached")
		}
		if _, err := os.Stat(child.ArtifactPath(deps.Workspace.DocsDir())); err != nil {
			t.Errorf("child artifact missing: %v", err)
		}
	})

	t.Run("spawns one level below the max depth", func(t *testing.T) {
		tool := NewSubAgentTool(runner, parent, 1)
		out, ok := tool.Execute(context.Background(), json.RawMessage(`{"module_name":"deep","component_ids":["a.f","b.g"]}`))
		if !ok {
			t.Fatalf("sub-agent failed: %s", out)
		}
		if out == inlineMessage {
			t.Fatal("qualified sub-module was inlined")
		}
		child := parent.Child("deep")
		if child == nil {
			t.Fatal("child node not attached")
		}
		if _, err := os.Stat(child.ArtifactPath(deps.Workspace.DocsDir())); err != nil {
			t.Errorf("child artifact missing: %v", err)
		}
	})

	t.Run("unknown ids rejected", func(t *testing.T) {
		tool := NewSubAgentTool(runner, parent, 0)
		if _, ok := tool.Execute(context.Background(), json.RawMessage(`{"module_name":"sub","component_ids":["ghost.q"]}`)); ok {
			t.Error("unknown component ids accepted")
		}
	})
}
