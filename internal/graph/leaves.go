package graph

import (
	"sort"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
)

// leafPruneThreshold caps how many leaves reach clustering before the
// utility prune kicks in.
const leafPruneThreshold = 400

// errorKeywords drop trivial error carriers from the leaf set.
var errorKeywords = []string{"error", "exception", "failed", "invalid"}

// identifyLeaves filters the registry down to the component set handed
// to clustering. The permitted kind set starts with class-like types;
// Go repositories add functions and methods (Go code is behavior
// centric), and repositories with no class-like kinds at all fall back
// to plain functions.
func (b *Builder) identifyLeaves(graph model.DependencyGraph) []string {
	validKinds := b.validLeafKinds()

	leafSet := make(map[string]bool)
	for id := range graph {
		comp, ok := b.registry[id]
		if !ok {
			continue
		}
		if !validKinds[comp.Kind] {
			continue
		}
		if isErrorLike(comp.Name) {
			continue
		}
		leafSet[id] = true
	}

	// Constructor entries merge into their enclosing class.
	for id := range leafSet {
		if !strings.HasSuffix(id, ".__init__") {
			continue
		}
		delete(leafSet, id)
		classID := strings.TrimSuffix(id, ".__init__")
		if _, ok := b.registry[classID]; ok && !isErrorLike(b.registry[classID].Name) {
			leafSet[classID] = true
		}
	}

	if len(leafSet) > leafPruneThreshold && !b.hasGoFiles() {
		// Restrict to true leaves: components nothing else depends on.
		// Shared utilities referenced all over the graph would inflate
		// the clustering prompt.
		referenced := make(map[string]bool)
		for _, deps := range graph {
			for dep := range deps {
				referenced[dep] = true
			}
		}
		for id := range leafSet {
			if referenced[id] {
				delete(leafSet, id)
			}
		}
		b.logf("leaf set exceeded %d, pruned to %d unreferenced components", leafPruneThreshold, len(leafSet))
	}

	leaves := make([]string, 0, len(leafSet))
	for id := range leafSet {
		leaves = append(leaves, id)
	}
	sort.Strings(leaves)
	return leaves
}

func (b *Builder) validLeafKinds() map[model.Kind]bool {
	valid := map[model.Kind]bool{
		model.KindClass:     true,
		model.KindInterface: true,
		model.KindStruct:    true,
	}
	if b.hasGoFiles() {
		valid[model.KindFunction] = true
		valid[model.KindMethod] = true
	}
	if !b.hasClassLike() {
		valid[model.KindFunction] = true
	}
	return valid
}

func (b *Builder) hasGoFiles() bool {
	for _, comp := range b.registry {
		if strings.HasSuffix(comp.RelativePath, ".go") {
			return true
		}
	}
	return false
}

func (b *Builder) hasClassLike() bool {
	for _, comp := range b.registry {
		if comp.IsClassLike() {
			return true
		}
	}
	return false
}

func isErrorLike(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
