// Package agent implements the tool-using documentation agent: the
// constrained file editor, the code reader, the sub-agent spawner, and
// the iteration loop that drives one module's documentation.
package agent

import (
	"errors"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/token"
	"github.com/imyousuf/codescribe/pkg/llm"
)

// ErrAgent wraps any failure inside an agent invocation: a model error,
// a tool panic, or iteration exhaustion.
var ErrAgent = errors.New("agent failed")

// Deps is the shared dependency context injected into an agent
// invocation and every tool it runs. All fields except the workspace
// are read-only during a run.
type Deps struct {
	// Registry is the component registry built by analysis.
	Registry model.Registry
	// Client performs model calls; usually a fallback chain.
	Client llm.Client
	// Counter counts tokens for recursion gating.
	Counter *token.Counter
	// Budgets carries the process-wide token thresholds.
	Budgets model.TokenBudgets
	// Tree is the full module tree, read-only.
	Tree *model.ModuleNode
	// Workspace scopes and serializes file edits.
	Workspace *Workspace
	// CustomInstructions is appended to the agent system prompt.
	CustomInstructions string
	// DocType selects an emphasis paragraph for the system prompt.
	DocType string
	// FocusModules are module names to prioritize in prompts.
	FocusModules []string
	// Logf receives progress and diagnostics. Never nil after New.
	Logf func(format string, args ...any)
}

// normalized fills defaults so tools never nil-check.
func (d *Deps) normalized() *Deps {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return d
}
