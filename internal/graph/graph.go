// Package graph assembles extractor output into a dependency graph:
// edge resolution against the component registry, deduplication, cycle
// detection and resolution, topological ordering, and leaf
// identification with language-aware filtering.
package graph

import (
	"sort"
	"strings"

	"github.com/imyousuf/codescribe/internal/model"
)

// Result is the outcome of a graph build.
type Result struct {
	Graph      model.DependencyGraph
	Leaves     []string
	Order      []string
	Cycles     [][]string
	Edges      []*model.CallEdge
	Unresolved int
}

// Builder turns aggregated components and raw edges into a resolved,
// acyclic dependency graph.
type Builder struct {
	registry model.Registry
	logf     func(format string, args ...any)
}

// NewBuilder creates a Builder over the registry. logf may be nil.
func NewBuilder(registry model.Registry, logf func(format string, args ...any)) *Builder {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Builder{registry: registry, logf: logf}
}

// Build runs the full pipeline: dedupe, resolve, assemble, break
// cycles, sort, and identify leaves.
func (b *Builder) Build(edges []*model.CallEdge) *Result {
	deduped := dedupeEdges(edges)
	unresolved := b.resolveEdges(deduped)
	// Resolution can collapse two textual callees onto one id, so
	// dedupe again on the resolved triples.
	deduped = dedupeEdges(deduped)

	graph := b.assemble()

	cycles := DetectCycles(graph)
	if len(cycles) > 0 {
		b.logf("detected %d dependency cycles, resolving", len(cycles))
		ResolveCycles(graph, cycles, b.logf)
	}

	order, ok := TopologicalSort(graph)
	if !ok {
		b.logf("topological sort incomplete, falling back to arbitrary order")
	}

	return &Result{
		Graph:      graph,
		Leaves:     b.identifyLeaves(graph),
		Order:      order,
		Cycles:     cycles,
		Edges:      deduped,
		Unresolved: unresolved,
	}
}

// dedupeEdges collapses duplicate (caller, callee, kind) triples,
// keeping the first occurrence.
func dedupeEdges(edges []*model.CallEdge) []*model.CallEdge {
	type key struct {
		caller, callee string
		kind           model.EdgeKind
	}
	seen := make(map[key]bool, len(edges))
	out := make([]*model.CallEdge, 0, len(edges))
	for _, e := range edges {
		k := key{e.Caller, e.Callee, e.Kind}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

// resolveEdges rewrites each edge's callee to a registry id when a match
// is found and populates the caller's DependsOn set. Resolution tries a
// direct id match, then an id-suffix match (Class.method), then an
// unqualified name match. Returns the count of edges left unresolved.
func (b *Builder) resolveEdges(edges []*model.CallEdge) int {
	byName := make(map[string][]string)
	for id, comp := range b.registry {
		byName[comp.Name] = append(byName[comp.Name], id)
	}
	for name := range byName {
		sort.Strings(byName[name])
	}

	// Suffix index over ids for qualified callees like "Server.log".
	suffixCache := make(map[string]string)

	unresolved := 0
	for _, e := range edges {
		id := b.resolveCallee(e.Callee, byName, suffixCache)
		if id == "" {
			unresolved++
			continue
		}
		e.Callee = id
		e.Resolved = true
		if caller, ok := b.registry[e.Caller]; ok {
			caller.AddDependency(id)
		}
	}
	return unresolved
}

func (b *Builder) resolveCallee(callee string, byName map[string][]string, suffixCache map[string]string) string {
	if _, ok := b.registry[callee]; ok {
		return callee
	}
	if ids, ok := byName[callee]; ok && len(ids) > 0 {
		return ids[0]
	}
	if !strings.Contains(callee, ".") {
		return ""
	}
	if id, ok := suffixCache[callee]; ok {
		return id
	}
	suffix := "." + callee
	var matches []string
	for id := range b.registry {
		if strings.HasSuffix(id, suffix) {
			matches = append(matches, id)
		}
	}
	best := ""
	if len(matches) > 0 {
		sort.Strings(matches)
		best = matches[0]
	}
	suffixCache[callee] = best
	return best
}

// assemble builds the adjacency map from DependsOn restricted to
// registered ids.
func (b *Builder) assemble() model.DependencyGraph {
	graph := make(model.DependencyGraph, len(b.registry))
	for id := range b.registry {
		graph[id] = make(map[string]bool)
	}
	for id, comp := range b.registry {
		// Self-references are kept: a size-1 SCC is not treated as a
		// cycle, and the sort falls back gracefully.
		for dep := range comp.DependsOn {
			if _, ok := b.registry[dep]; ok {
				graph[id][dep] = true
			}
		}
	}
	return graph
}
