package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/prompts"
)

// readerTool implements read_code_components: source lookup by
// component id, for dependencies the prompt did not include.
type readerTool struct {
	registry model.Registry
}

// NewReaderTool creates the read_code_components tool.
func NewReaderTool(registry model.Registry) Tool {
	return &readerTool{registry: registry}
}

func (t *readerTool) Name() string { return "read_code_components" }

func (t *readerTool) Description() string {
	return "Read the source code of components by id. Use it to explore dependencies " +
		"that were not included in the provided components."
}

func (t *readerTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"component_ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Component ids to read, e.g. pkg.file.ClassName.",
			},
		},
		"required": []string{"component_ids"},
	}
}

type readerToolArgs struct {
	ComponentIDs []string `json:"component_ids"`
}

func (t *readerTool) Execute(ctx context.Context, raw json.RawMessage) (string, bool) {
	var args readerToolArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Sprintf("Error: invalid arguments: %v", err), false
	}
	if len(args.ComponentIDs) == 0 {
		return "Error: component_ids is required", false
	}

	var b strings.Builder
	for _, id := range args.ComponentIDs {
		comp, ok := t.registry[id]
		if !ok {
			fmt.Fprintf(&b, "## %s\nError: component %q not found in the registry\n\n", id, id)
			continue
		}
		fmt.Fprintf(&b, "## %s (%s, lines %d-%d)\n```%s\n%s\n```\n\n",
			id, comp.RelativePath, comp.StartLine, comp.EndLine,
			prompts.FenceLanguage(comp.RelativePath), comp.SourceCode)
	}
	return strings.TrimRight(b.String(), "\n"), true
}
