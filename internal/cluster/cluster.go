// Package cluster partitions the leaf component set into a hierarchy of
// named modules. Partitioning is delegated to a language model once the
// component listing exceeds the per-module token budget; responses are
// validated against the component registry before they shape the tree.
package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
	"github.com/imyousuf/codescribe/internal/prompts"
	"github.com/imyousuf/codescribe/internal/token"
	"github.com/imyousuf/codescribe/pkg/llm"
)

// miscellaneousModule collects components the model omitted from its
// partition so no leaf disappears from the tree.
const miscellaneousModule = "Miscellaneous"

const (
	openTag  = "<GROUPED_COMPONENTS>"
	closeTag = "</GROUPED_COMPONENTS>"
)

// Clusterer builds the module tree for one analysis run. It holds only
// read-only state and may be used for a single repository.
type Clusterer struct {
	registry model.Registry
	client   llm.Client
	counter  *token.Counter
	budgets  model.TokenBudgets
	logf     func(format string, args ...any)
}

// New creates a Clusterer. logf may be nil.
func New(registry model.Registry, client llm.Client, counter *token.Counter, budgets model.TokenBudgets, logf func(format string, args ...any)) *Clusterer {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Clusterer{
		registry: registry,
		client:   client,
		counter:  counter,
		budgets:  budgets,
		logf:     logf,
	}
}

// Cluster partitions the leaf ids into a module tree rooted at a node
// named after the repository. Malformed model responses degrade the
// affected subtree to a single leaf module; Cluster itself never fails
// the run.
func (c *Clusterer) Cluster(ctx context.Context, repoName string, leaves []string) *model.ModuleNode {
	root := model.NewModuleNode(repoName, "")
	c.clusterInto(ctx, root, root, leaves, 0)
	return root
}

// groupedModule mirrors one entry of the model's partition response.
type groupedModule struct {
	Path       string   `json:"path"`
	Components []string `json:"components"`
}

func (c *Clusterer) clusterInto(ctx context.Context, treeRoot, node *model.ModuleNode, leaves []string, depth int) {
	leaves = c.knownLeaves(node.Name, leaves)
	if len(leaves) <= 1 || depth >= c.budgets.MaxRecursionDepth {
		node.Components = leaves
		return
	}

	listing, withCode := c.formatComponents(leaves)
	if tokens := c.counter.Count(withCode); tokens <= c.budgets.MaxTokensPerModule {
		c.logf("module %s fits in one leaf (%d tokens)", node.Name, tokens)
		node.Components = leaves
		return
	}

	partition, ok := c.requestPartition(ctx, treeRoot, node, listing, depth)
	if !ok || len(partition) <= 1 {
		node.Components = leaves
		return
	}

	assigned := make(map[string]bool, len(leaves))
	names := make([]string, 0, len(partition))
	for name := range partition {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make(map[string][]string, len(partition)+1)
	for _, name := range names {
		var ids []string
		for _, id := range partition[name].Components {
			if _, known := c.registry[id]; !known {
				c.logf("dropping unknown component %q from module %s", id, name)
				continue
			}
			if assigned[id] {
				continue
			}
			assigned[id] = true
			ids = append(ids, id)
		}
		children[name] = ids
	}

	var missing []string
	for _, id := range leaves {
		if !assigned[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		c.logf("module %s: %d components omitted by the model, grouped under %s", node.Name, len(missing), miscellaneousModule)
		children[miscellaneousModule] = append(children[miscellaneousModule], missing...)
		if _, present := partition[miscellaneousModule]; !present {
			names = append(names, miscellaneousModule)
			sort.Strings(names)
		}
	}

	for _, name := range names {
		ids := children[name]
		if len(ids) == 0 {
			continue
		}
		child := model.NewModuleNode(name, "")
		node.AddChild(child)
		c.clusterInto(ctx, treeRoot, child, ids, depth+1)
	}
	if len(node.Children) == 0 {
		node.Components = leaves
	}
}

// knownLeaves filters ids missing from the registry, logging each.
func (c *Clusterer) knownLeaves(moduleName string, leaves []string) []string {
	valid := leaves[:0:0]
	for _, id := range leaves {
		if _, ok := c.registry[id]; ok {
			valid = append(valid, id)
		} else {
			c.logf("module %s: skipping unknown leaf %q", moduleName, id)
		}
	}
	return valid
}

// formatComponents renders the leaf ids grouped by file: a compact
// listing for the prompt and a source-bearing variant for the token
// gate.
func (c *Clusterer) formatComponents(leaves []string) (listing, withCode string) {
	byFile := make(map[string][]string)
	for _, id := range leaves {
		path := c.registry[id].RelativePath
		byFile[path] = append(byFile[path], id)
	}
	files := make([]string, 0, len(byFile))
	for path := range byFile {
		files = append(files, path)
	}
	sort.Strings(files)

	var plain, code strings.Builder
	for _, path := range files {
		fmt.Fprintf(&plain, "# %s\n", path)
		fmt.Fprintf(&code, "# %s\n", path)
		for _, id := range byFile[path] {
			fmt.Fprintf(&plain, "\t%s\n", id)
			fmt.Fprintf(&code, "\t%s\n%s\n", id, c.registry[id].SourceCode)
		}
	}
	return plain.String(), code.String()
}

// requestPartition performs the model call and parses the sentinel
// block. ok is false whenever the response cannot shape the tree.
func (c *Clusterer) requestPartition(ctx context.Context, treeRoot, node *model.ModuleNode, listing string, depth int) (map[string]groupedModule, bool) {
	var prompt string
	if depth == 0 {
		prompt = prompts.FormatClusterRepoPrompt(listing)
	} else {
		prompt = prompts.FormatClusterModulePrompt(treeRoot, node.Name, listing)
	}

	resp, err := c.client.Complete(ctx, &llm.Request{
		Messages:        []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxOutputTokens: c.budgets.MaxOutputTokens,
	})
	if err != nil {
		c.logf("clustering call failed for %s, keeping as single leaf: %v", node.Name, err)
		return nil, false
	}

	partition, err := parsePartition(resp.Content)
	if err != nil {
		c.logf("clustering response malformed for %s, keeping as single leaf: %v", node.Name, err)
		return nil, false
	}
	return partition, true
}

func parsePartition(response string) (map[string]groupedModule, error) {
	start := strings.Index(response, openTag)
	end := strings.Index(response, closeTag)
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("missing %s tags", openTag)
	}
	body := response[start+len(openTag) : end]

	var partition map[string]groupedModule
	if err := json.Unmarshal([]byte(body), &partition); err != nil {
		return nil, fmt.Errorf("invalid partition JSON: %w", err)
	}
	return partition, nil
}
