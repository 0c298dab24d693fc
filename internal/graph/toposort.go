package graph

import (
	"github.com/imyousuf/codescribe/internal/model"
)

// TopologicalSort orders the graph with Kahn's algorithm, returning a
// dependency-first order (a node appears after everything it depends
// on). When the sort cannot cover the whole graph, the remaining nodes
// are appended in sorted order and ok is false.
func TopologicalSort(graph model.DependencyGraph) (order []string, ok bool) {
	// In-degree counts incoming dependency references, i.e. how many
	// nodes depend on each node.
	inDegree := make(map[string]int, len(graph))
	for id := range graph {
		inDegree[id] = 0
	}
	for _, deps := range graph {
		for dep := range deps {
			if _, known := inDegree[dep]; known {
				inDegree[dep]++
			}
		}
	}

	var queue []string
	for _, id := range sortedKeys(graph) {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	var sorted []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		for _, dep := range sortedKeys(graph[node]) {
			if _, known := inDegree[dep]; !known {
				continue
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(graph) {
		seen := make(map[string]bool, len(sorted))
		for _, id := range sorted {
			seen[id] = true
		}
		for _, id := range sortedKeys(graph) {
			if !seen[id] {
				sorted = append(sorted, id)
			}
		}
		ok = false
	} else {
		ok = true
	}

	// Reverse so dependencies come before their dependents.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted, ok
}
