package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	intllm "github.com/imyousuf/codescribe/internal/llm"
	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/prompts"
	"github.com/imyousuf/codescribe/pkg/llm"
)

// defaultMaxIterations bounds the tool-use loop of one agent
// invocation.
const defaultMaxIterations = 30

// docTypeParagraphs tailor the system prompt's emphasis.
var docTypeParagraphs = map[string]string{
	"api":          "Emphasize public interfaces: document exported functions, types, parameters, return values, and error conditions in detail.",
	"architecture": "Emphasize structure: document module boundaries, dependency direction, data flow, and the rationale behind the decomposition.",
	"user-guide":   "Write for users of the software rather than its maintainers: emphasize tasks, workflows, and examples over internals.",
	"developer":    "Write for contributors: emphasize how to navigate, extend, and test the code, including internal conventions.",
}

// Runner drives one documentation agent per module node.
type Runner struct {
	deps          *Deps
	maxIterations int
}

// NewRunner creates a Runner over the shared dependencies.
func NewRunner(deps *Deps) *Runner {
	return &Runner{deps: deps.normalized(), maxIterations: defaultMaxIterations}
}

// SetMaxIterations overrides the tool-use loop bound.
func (r *Runner) SetMaxIterations(n int) {
	if n > 0 {
		r.maxIterations = n
	}
}

// Run documents one module node with a fresh agent at recursion depth
// zero. The invocation is idempotent: an existing artifact short
// circuits it.
func (r *Runner) Run(ctx context.Context, node *model.ModuleNode) error {
	return r.run(ctx, node, 0)
}

func (r *Runner) run(ctx context.Context, node *model.ModuleNode, depth int) error {
	deps := r.deps
	artifact := node.ArtifactPath(deps.Workspace.DocsDir())
	if _, err := os.Stat(artifact); err == nil {
		deps.Logf("skipping module %s: artifact %s already exists", node.Name, artifact)
		return nil
	}

	complex := spansMultipleFiles(node.Components, deps.Registry)

	registry := NewRegistry()
	registry.Register(NewReaderTool(deps.Registry))
	registry.Register(NewEditorTool(deps.Workspace, deps.Logf))
	if complex {
		registry.Register(NewSubAgentTool(r, node, depth))
	}

	instructions := r.instructions()
	var systemPrompt string
	if complex {
		systemPrompt = prompts.FormatSystemPrompt(node.Name, instructions)
	} else {
		systemPrompt = prompts.FormatLeafSystemPrompt(node.Name, instructions)
	}

	messages := []llm.Message{{
		Role:    llm.RoleUser,
		Content: prompts.FormatUserPrompt(node.Name, node.Components, deps.Registry, deps.Tree, os.ReadFile),
	}}
	tools := registry.Definitions()

	deps.Logf("documenting module %s (complex=%v, depth=%d, %d components)", node.Name, complex, depth, len(node.Components))

	for i := 0; i < r.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: module %s cancelled at iteration %d: %v", ErrAgent, node.Name, i, err)
		}

		resp, err := deps.Client.Complete(ctx, &llm.Request{
			SystemPrompt:    systemPrompt,
			Messages:        messages,
			Tools:           tools,
			MaxOutputTokens: deps.Budgets.MaxOutputTokens,
		})
		if err != nil {
			return fmt.Errorf("%w: module %s: model call failed at iteration %d: %v", ErrAgent, node.Name, i, err)
		}

		if !resp.HasToolCalls() {
			return r.finalize(node, artifact, resp.Content)
		}

		resp.ToolCalls = intllm.RepairToolCalls(resp.ToolCalls, deps.Logf)
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Tool calls run one at a time, in response order.
		for _, tc := range resp.ToolCalls {
			result, _, err := registry.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				result = fmt.Sprintf("Error: %v", err)
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	if _, err := os.Stat(artifact); err == nil {
		deps.Logf("module %s hit the iteration cap but its artifact exists", node.Name)
		return nil
	}
	return fmt.Errorf("%w: module %s exhausted %d iterations without producing %s", ErrAgent, node.Name, r.maxIterations, artifact)
}

// finalize enforces the one-artifact contract once the model stops
// calling tools. A model that answered in text instead of using the
// editor still gets its content persisted.
func (r *Runner) finalize(node *model.ModuleNode, artifact, content string) error {
	if _, err := os.Stat(artifact); err == nil {
		return nil
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: module %s finished without producing %s", ErrAgent, node.Name, artifact)
	}
	r.deps.Logf("module %s: persisting final response as %s", node.Name, artifact)
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		return fmt.Errorf("%w: module %s: %v", ErrAgent, node.Name, err)
	}
	if err := os.WriteFile(artifact, []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: module %s: %v", ErrAgent, node.Name, err)
	}
	return nil
}

func (r *Runner) instructions() string {
	var parts []string
	if p, ok := docTypeParagraphs[r.deps.DocType]; ok {
		parts = append(parts, p)
	}
	if len(r.deps.FocusModules) > 0 {
		parts = append(parts, "Give extra depth to these modules when they appear: "+strings.Join(r.deps.FocusModules, ", ")+".")
	}
	if r.deps.CustomInstructions != "" {
		parts = append(parts, r.deps.CustomInstructions)
	}
	return strings.Join(parts, "\n\n")
}
