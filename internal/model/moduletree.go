package model

import (
	"path/filepath"
	"sort"
	"strings"
)

// ModuleNode is a node in the hierarchical partition tree produced by
// clustering. A node is a leaf module iff it has no children. Children
// marshal as a name-keyed object, sorted by name for stable artifacts.
type ModuleNode struct {
	Name       string                 `json:"name"`
	Path       string                 `json:"path"`
	Components []string               `json:"components"`
	Children   map[string]*ModuleNode `json:"children,omitempty"`
}

// NewModuleNode builds a node at the given slash-separated tree path.
func NewModuleNode(name, path string) *ModuleNode {
	return &ModuleNode{
		Name:       name,
		Path:       path,
		Components: []string{},
		Children:   map[string]*ModuleNode{},
	}
}

// IsLeaf reports whether the node has no children.
func (m *ModuleNode) IsLeaf() bool {
	return len(m.Children) == 0
}

// AddChild attaches a child, deriving its path from the parent's.
func (m *ModuleNode) AddChild(child *ModuleNode) {
	if m.Children == nil {
		m.Children = map[string]*ModuleNode{}
	}
	child.Path = joinModulePath(m.Path, child.Name)
	m.Children[child.Name] = child
}

// Child returns the named child or nil.
func (m *ModuleNode) Child(name string) *ModuleNode {
	if m.Children == nil {
		return nil
	}
	return m.Children[name]
}

// ChildNames returns the child names in stable sorted order.
func (m *ModuleNode) ChildNames() []string {
	names := make([]string, 0, len(m.Children))
	for name := range m.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllComponents returns the union of component ids across the subtree.
func (m *ModuleNode) AllComponents() []string {
	var ids []string
	m.WalkPostOrder(func(n *ModuleNode) {
		ids = append(ids, n.Components...)
	})
	return ids
}

// WalkPostOrder visits the subtree children-first, siblings in sorted
// name order, the receiver last.
func (m *ModuleNode) WalkPostOrder(visit func(*ModuleNode)) {
	for _, name := range m.ChildNames() {
		m.Children[name].WalkPostOrder(visit)
	}
	visit(m)
}

// Depth returns the height of the subtree rooted at the node. A leaf
// has depth zero.
func (m *ModuleNode) Depth() int {
	max := 0
	for _, child := range m.Children {
		if d := child.Depth() + 1; d > max {
			max = d
		}
	}
	return max
}

// ArtifactPath returns the Markdown output path for the node under the
// documentation directory, mirroring the tree structure. The root node
// maps to overview.md.
func (m *ModuleNode) ArtifactPath(docsDir string) string {
	if m.Path == "" {
		return filepath.Join(docsDir, "overview.md")
	}
	parts := strings.Split(m.Path, "/")
	for i, p := range parts {
		parts[i] = SanitizeModuleName(p)
	}
	parts[len(parts)-1] += ".md"
	return filepath.Join(append([]string{docsDir}, parts...)...)
}

// SanitizeModuleName maps a model-chosen module name onto a safe file
// name component.
func SanitizeModuleName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "module"
	}
	return b.String()
}

func joinModulePath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
