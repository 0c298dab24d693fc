package orch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/imyousuf/codescribe/internal/agent"
	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/token"
	"github.com/imyousuf/codescribe/pkg/llm"
)

// overviewClient answers agent prompts with plain text and overview
// prompts with tagged Markdown, recording every prompt it sees.
type overviewClient struct {
	mu      sync.Mutex
	prompts []string
	failOn  string
}

func (c *overviewClient) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	prompt := req.SystemPrompt
	if len(req.Messages) > 0 {
		prompt = req.Messages[0].Content
	}
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	c.mu.Unlock()

	if c.failOn != "" && strings.Contains(prompt, c.failOn) {
		return nil, fmt.Errorf("scripted failure")
	}
	if len(req.Tools) == 0 {
		// Overview synthesis path.
		return &llm.Response{Content: "preamble <OVERVIEW>\n# Overview\n\nSynthesized.\n</OVERVIEW>"}, nil
	}
	return &llm.Response{Content: "# Leaf\n\nDocumented.\n"}, nil
}

func (c *overviewClient) Model() string    { return "fake-model" }
func (c *overviewClient) Provider() string { return "test" }
func (c *overviewClient) Close() error     { return nil }

func newOrchDeps(t *testing.T, client llm.Client, tree *model.ModuleNode, registry model.Registry) *agent.Deps {
	t.Helper()
	ws, err := agent.NewWorkspace(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &agent.Deps{
		Registry:  registry,
		Client:    client,
		Counter:   token.NewCounter(),
		Budgets:   model.DefaultBudgets(),
		Tree:      tree,
		Workspace: ws,
	}
}

func twoLeafTree() (*model.ModuleNode, model.Registry) {
	registry := model.Registry{
		"a.f": {ID: "a.f", Name: "f", RelativePath: "a.py", SourceCode: "def f(): pass"},
		"b.g": {ID: "b.g", Name: "g", RelativePath: "b.py", SourceCode: "def g(): pass"},
	}
	root := model.NewModuleNode("repo", "")
	auth := model.NewModuleNode("auth", "")
	auth.Components = []string{"a.f"}
	store := model.NewModuleNode("storage", "")
	store.Components = []string{"b.g"}
	root.AddChild(auth)
	root.AddChild(store)
	return root, registry
}

func TestRunDocumentsLeavesThenOverview(t *testing.T) {
	root, registry := twoLeafTree()
	client := &overviewClient{}
	deps := newOrchDeps(t, client, root, registry)
	o := New(deps, Options{RepoName: "demo", CommitID: "abc123", FilesAnalyzed: 2})

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	docs := deps.Workspace.DocsDir()
	for _, rel := range []string{"auth.md", "storage.md", "overview.md", "module_tree.json", "metadata.json"} {
		if _, err := os.Stat(filepath.Join(docs, rel)); err != nil {
			t.Errorf("missing artifact %s: %v", rel, err)
		}
	}

	data, _ := os.ReadFile(filepath.Join(docs, "overview.md"))
	if string(data) != "# Overview\n\nSynthesized." {
		t.Errorf("overview content = %q", data)
	}

	// The overview prompt is the last call and embeds both children's
	// artifacts.
	last := client.prompts[len(client.prompts)-1]
	if !strings.Contains(last, "demo") {
		t.Error("repository overview prompt does not name the repository")
	}
	if !strings.Contains(last, "Documented.") {
		t.Error("overview prompt does not embed child artifacts")
	}
	if !strings.Contains(last, "is_target_for_overview_generation") {
		t.Error("overview structure lacks the target marker")
	}

	var meta model.Metadata
	raw, _ := os.ReadFile(filepath.Join(docs, "metadata.json"))
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.GenerationInfo.MainModel != "fake-model" || meta.GenerationInfo.CommitID != "abc123" {
		t.Errorf("generation info = %+v", meta.GenerationInfo)
	}
	if meta.Statistics.TotalComponents != 2 || meta.Statistics.LeafComponents != 2 || meta.Statistics.FilesAnalyzed != 2 {
		t.Errorf("statistics = %+v", meta.Statistics)
	}
}

func TestRunSingleModuleTree(t *testing.T) {
	registry := model.Registry{
		"a.f": {ID: "a.f", Name: "f", RelativePath: "a.py", SourceCode: "def f(): pass"},
	}
	root := model.NewModuleNode("repo", "")
	root.Components = []string{"a.f"}
	client := &overviewClient{}
	deps := newOrchDeps(t, client, root, registry)

	if err := New(deps, Options{RepoName: "tiny"}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// A leaf root is documented by one agent straight into the
	// overview artifact.
	if _, err := os.Stat(filepath.Join(deps.Workspace.DocsDir(), "overview.md")); err != nil {
		t.Errorf("overview missing: %v", err)
	}
}

func TestRunNestedTreeOrdering(t *testing.T) {
	registry := model.Registry{
		"a.f": {ID: "a.f", Name: "f", RelativePath: "a.py", SourceCode: "x"},
		"b.g": {ID: "b.g", Name: "g", RelativePath: "b.py", SourceCode: "y"},
	}
	root := model.NewModuleNode("repo", "")
	core := model.NewModuleNode("core", "")
	root.AddChild(core)
	inner := model.NewModuleNode("inner", "")
	inner.Components = []string{"a.f", "b.g"}
	core.AddChild(inner)

	client := &overviewClient{}
	deps := newOrchDeps(t, client, root, registry)
	if err := New(deps, Options{RepoName: "demo"}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	docs := deps.Workspace.DocsDir()
	if _, err := os.Stat(filepath.Join(docs, "core", "inner.md")); err != nil {
		t.Errorf("leaf artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(docs, "core.md")); err != nil {
		t.Errorf("parent overview missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(docs, "overview.md")); err != nil {
		t.Errorf("repository overview missing: %v", err)
	}
}

func TestRunSkipsExistingOverview(t *testing.T) {
	root, registry := twoLeafTree()
	client := &overviewClient{}
	deps := newOrchDeps(t, client, root, registry)
	docs := deps.Workspace.DocsDir()
	if err := os.WriteFile(filepath.Join(docs, "overview.md"), []byte("kept"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := New(deps, Options{RepoName: "demo"}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(docs, "overview.md"))
	if string(data) != "kept" {
		t.Error("existing overview was regenerated")
	}
}

func TestRunFailureNamesModule(t *testing.T) {
	root, registry := twoLeafTree()
	// Leaf agents see the module name in their system prompt.
	client := &overviewClient{failOn: "auth"}
	deps := newOrchDeps(t, client, root, registry)

	err := New(deps, Options{RepoName: "demo"}).Run(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, agent.ErrAgent) {
		t.Errorf("err = %v, want ErrAgent", err)
	}
	if !strings.Contains(err.Error(), "auth") {
		t.Errorf("error does not name the failing module: %v", err)
	}
	// The sibling after the failure never runs, and no overview is
	// produced.
	if _, statErr := os.Stat(filepath.Join(deps.Workspace.DocsDir(), "overview.md")); statErr == nil {
		t.Error("overview written despite agent failure")
	}
}

func TestRunConcurrentSiblings(t *testing.T) {
	root, registry := twoLeafTree()
	client := &overviewClient{}
	deps := newOrchDeps(t, client, root, registry)

	if err := New(deps, Options{RepoName: "demo", Concurrency: 4}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	docs := deps.Workspace.DocsDir()
	for _, rel := range []string{"auth.md", "storage.md", "overview.md"} {
		if _, err := os.Stat(filepath.Join(docs, rel)); err != nil {
			t.Errorf("missing artifact %s: %v", rel, err)
		}
	}
	// The overview is still strictly last.
	last := client.prompts[len(client.prompts)-1]
	if !strings.Contains(last, "is_target_for_overview_generation") {
		t.Error("last model call was not the overview synthesis")
	}
}

func TestExtractOverview(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"tagged", "x <OVERVIEW> body </OVERVIEW> y", "body", false},
		{"missing open", "body </OVERVIEW>", "", true},
		{"missing close", "<OVERVIEW> body", "", true},
		{"reversed", "</OVERVIEW> x <OVERVIEW>", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractOverview(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
