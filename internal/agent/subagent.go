package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
)

// inlineMessage is returned whenever the sub-module does not warrant a
// sub-agent, instructing the caller to document it inline.
const inlineMessage = "The sub-module does not require separate documentation. " +
	"Document it inline in the current module's file instead."

// subAgentTool implements generate_sub_module_documentation: spawning a
// nested agent for a sub-module when it is deep, complex, and large
// enough to deserve its own file.
type subAgentTool struct {
	runner *Runner
	parent *model.ModuleNode
	depth  int
}

// NewSubAgentTool creates the generate_sub_module_documentation tool
// bound to the current module and recursion depth.
func NewSubAgentTool(runner *Runner, parent *model.ModuleNode, depth int) Tool {
	return &subAgentTool{runner: runner, parent: parent, depth: depth}
}

func (t *subAgentTool) Name() string { return "generate_sub_module_documentation" }

func (t *subAgentTool) Description() string {
	return "Generate detailed documentation for one sub-module via a sub-agent. " +
		"Provide the sub-module name and the component ids it covers. Small or " +
		"single-file sub-modules are documented inline instead."
}

func (t *subAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"module_name": map[string]any{
				"type":        "string",
				"description": "Name of the sub-module to document.",
			},
			"component_ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Component ids belonging to the sub-module.",
			},
		},
		"required": []string{"module_name", "component_ids"},
	}
}

type subAgentArgs struct {
	ModuleName   string   `json:"module_name"`
	ComponentIDs []string `json:"component_ids"`
}

func (t *subAgentTool) Execute(ctx context.Context, raw json.RawMessage) (string, bool) {
	var args subAgentArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Sprintf("Error: invalid arguments: %v", err), false
	}
	if args.ModuleName == "" {
		return "Error: module_name is required", false
	}

	deps := t.runner.deps
	var known []string
	for _, id := range args.ComponentIDs {
		if _, ok := deps.Registry[id]; ok {
			known = append(known, id)
		}
	}
	if len(known) == 0 {
		return "Error: none of the component_ids exist in the registry", false
	}

	if t.depth >= deps.Budgets.MaxRecursionDepth {
		return inlineMessage, true
	}
	if !spansMultipleFiles(known, deps.Registry) {
		return inlineMessage, true
	}
	if t.componentTokens(known) <= deps.Budgets.MaxTokensPerLeafModule {
		return inlineMessage, true
	}

	child := model.NewModuleNode(model.SanitizeModuleName(args.ModuleName), "")
	child.Components = known
	t.parent.AddChild(child)

	if err := t.runner.run(ctx, child, t.depth+1); err != nil {
		return fmt.Sprintf("Error: sub-module documentation failed: %v", err), false
	}
	return fmt.Sprintf("Sub-module documentation written to %s. Reference it as [%s](%s.md).",
		child.ArtifactPath(deps.Workspace.DocsDir()), child.Name, child.Name), true
}

func (t *subAgentTool) componentTokens(ids []string) int {
	var sources []string
	for _, id := range ids {
		sources = append(sources, t.runner.deps.Registry[id].SourceCode)
	}
	return t.runner.deps.Counter.CountAll(sources...)
}

// spansMultipleFiles reports whether the components live in more than
// one source file, the complexity criterion for sub-agent delegation.
func spansMultipleFiles(ids []string, registry model.Registry) bool {
	first := ""
	for _, id := range ids {
		comp, ok := registry[id]
		if !ok {
			continue
		}
		path := strings.TrimSpace(comp.RelativePath)
		if first == "" {
			first = path
			continue
		}
		if path != first {
			return true
		}
	}
	return false
}
