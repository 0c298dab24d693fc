// Package orch walks the module tree leaf-first and drives one
// documentation agent per leaf, synthesizing parent overviews from the
// children's artifacts and the repository overview last.
package orch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/codescribe/internal/agent"
	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/prompts"
	"github.com/imyousuf/codescribe/pkg/llm"
)

const (
	moduleTreeFilename = "module_tree.json"
	metadataFilename   = "metadata.json"
)

// Options configure one orchestrator run.
type Options struct {
	// RepoName labels the repository overview.
	RepoName string
	// RepoPath is recorded in metadata.
	RepoPath string
	// CommitID is recorded in metadata when the repository is a git
	// checkout.
	CommitID string
	// Concurrency bounds parallel sibling processing. Values below two
	// keep the walk sequential.
	Concurrency int
	// FilesAnalyzed is recorded in metadata.
	FilesAnalyzed int
}

// Orchestrator owns the documentation phase of a run.
type Orchestrator struct {
	deps   *agent.Deps
	runner *agent.Runner
	opts   Options
	logf   func(format string, args ...any)
}

// New creates an Orchestrator over the shared agent dependencies.
func New(deps *agent.Deps, opts Options) *Orchestrator {
	o := &Orchestrator{
		deps:   deps,
		runner: agent.NewRunner(deps),
		opts:   opts,
		logf:   deps.Logf,
	}
	if o.logf == nil {
		o.logf = func(string, ...any) {}
	}
	return o
}

// Run documents every node of the module tree, then writes the module
// tree and metadata artifacts. Any agent or synthesis failure aborts
// the run naming the module; completed artifacts survive for resume.
func (o *Orchestrator) Run(ctx context.Context) error {
	root := o.deps.Tree
	if root == nil {
		return errors.New("orchestrator: module tree is nil")
	}

	if root.IsLeaf() {
		// The whole repository fits a single module. One agent
		// produces the overview directly.
		o.logf("repository fits a single module, documenting it directly")
		if err := o.runner.Run(ctx, root); err != nil {
			return err
		}
	} else if err := o.process(ctx, root); err != nil {
		return err
	}

	docs := o.deps.Workspace.DocsDir()
	if err := writeJSON(filepath.Join(docs, moduleTreeFilename), root); err != nil {
		return fmt.Errorf("orchestrator: writing module tree: %w", err)
	}
	return o.writeMetadata()
}

// process completes every child of the node before synthesizing the
// node's own overview. Children are independent and may run in
// parallel; the parent strictly waits for all of them.
func (o *Orchestrator) process(ctx context.Context, node *model.ModuleNode) error {
	names := node.ChildNames()
	if o.opts.Concurrency > 1 && len(names) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.opts.Concurrency)
		for _, name := range names {
			child := node.Children[name]
			g.Go(func() error { return o.dispatch(gctx, child) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, name := range names {
			if err := o.dispatch(ctx, node.Children[name]); err != nil {
				return err
			}
		}
	}
	return o.synthesizeOverview(ctx, node)
}

func (o *Orchestrator) dispatch(ctx context.Context, node *model.ModuleNode) error {
	if node.IsLeaf() {
		return o.runner.Run(ctx, node)
	}
	return o.process(ctx, node)
}

// synthesizeOverview writes a non-leaf node's artifact from its
// children's artifacts via a direct model call. The root node gets the
// repository overview prompt.
func (o *Orchestrator) synthesizeOverview(ctx context.Context, node *model.ModuleNode) error {
	docs := o.deps.Workspace.DocsDir()
	artifact := node.ArtifactPath(docs)
	if _, err := os.Stat(artifact); err == nil {
		o.logf("skipping overview for %s: %s already exists", o.nodeLabel(node), artifact)
		return nil
	}

	structure, err := o.overviewStructure(node)
	if err != nil {
		return fmt.Errorf("orchestrator: module %s: building overview structure: %w", o.nodeLabel(node), err)
	}

	var prompt string
	if node.Path == "" {
		prompt = prompts.FormatRepoOverviewPrompt(o.opts.RepoName, structure)
	} else {
		prompt = prompts.FormatModuleOverviewPrompt(node.Name, structure)
	}

	o.logf("synthesizing overview for %s", o.nodeLabel(node))
	resp, err := o.deps.Client.Complete(ctx, &llm.Request{
		Messages:        []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxOutputTokens: o.deps.Budgets.MaxOutputTokens,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: module %s: overview synthesis failed: %w", o.nodeLabel(node), err)
	}

	content, err := extractOverview(resp.Content)
	if err != nil {
		return fmt.Errorf("orchestrator: module %s: %w", o.nodeLabel(node), err)
	}
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		return fmt.Errorf("orchestrator: module %s: %w", o.nodeLabel(node), err)
	}
	if err := os.WriteFile(artifact, []byte(content), 0o644); err != nil {
		return fmt.Errorf("orchestrator: module %s: %w", o.nodeLabel(node), err)
	}
	return nil
}

// overviewStructure renders the module tree as indented JSON, marking
// the synthesis target and inlining the target's direct children's
// artifacts under a "docs" key.
func (o *Orchestrator) overviewStructure(target *model.ModuleNode) (string, error) {
	data, err := json.MarshalIndent(o.structureNode(o.deps.Tree, target), "", "    ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (o *Orchestrator) structureNode(node, target *model.ModuleNode) map[string]any {
	m := map[string]any{
		"name":       node.Name,
		"components": node.Components,
	}
	if node == target {
		m["is_target_for_overview_generation"] = true
	}
	if len(node.Children) == 0 {
		return m
	}
	children := make(map[string]any, len(node.Children))
	for name, child := range node.Children {
		cm := o.structureNode(child, target)
		if node == target {
			path := child.ArtifactPath(o.deps.Workspace.DocsDir())
			data, err := os.ReadFile(path)
			if err != nil {
				o.logf("overview for %s: child artifact missing at %s", o.nodeLabel(node), path)
				cm["docs"] = ""
			} else {
				cm["docs"] = string(data)
			}
		}
		children[name] = cm
	}
	m["children"] = children
	return m
}

func (o *Orchestrator) nodeLabel(node *model.ModuleNode) string {
	if node.Path == "" {
		return o.opts.RepoName
	}
	return node.Path
}

// extractOverview pulls the Markdown between the overview tags. A
// response without both tags is rejected rather than written, so a
// truncated synthesis never becomes an artifact.
func extractOverview(content string) (string, error) {
	const open, close = "<OVERVIEW>", "</OVERVIEW>"
	i := strings.Index(content, open)
	j := strings.Index(content, close)
	if i < 0 || j < 0 || j < i {
		return "", errors.New("overview response missing <OVERVIEW> tags")
	}
	return strings.TrimSpace(content[i+len(open) : j]), nil
}

// writeJSON persists v as indented JSON via a temp file and rename so
// readers never observe a partial artifact.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
