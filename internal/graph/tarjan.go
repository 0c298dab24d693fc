package graph

import (
	"sort"

	"github.com/imyousuf/codescribe/internal/model"
)

// DetectCycles finds strongly connected components of size greater than
// one using Tarjan's algorithm. Nodes are visited in sorted order so the
// reported cycles are stable across runs.
func DetectCycles(graph model.DependencyGraph) [][]string {
	nodes := sortedKeys(graph)

	index := 0
	indices := make(map[string]int, len(graph))
	lowlinks := make(map[string]int, len(graph))
	onStack := make(map[string]bool, len(graph))
	var stack []string
	var cycles [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range sortedKeys(graph[v]) {
			if _, ok := graph[w]; !ok {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				if lowlinks[w] < lowlinks[v] {
					lowlinks[v] = lowlinks[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlinks[v] {
					lowlinks[v] = indices[w]
				}
			}
		}

		if lowlinks[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				sort.Strings(scc)
				cycles = append(cycles, scc)
			}
		}
	}

	for _, v := range nodes {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return cycles
}

// ResolveCycles breaks each cycle by removing one edge, chosen as the
// lexicographically smallest (from, to) pair present inside the cycle.
// The stable choice keeps repeated runs over an unchanged repository
// byte-identical. Removal repeats until the SCC's members are acyclic.
func ResolveCycles(graph model.DependencyGraph, cycles [][]string, logf func(format string, args ...any)) {
	for _, cycle := range cycles {
		members := make(map[string]bool, len(cycle))
		for _, id := range cycle {
			members[id] = true
		}

		for {
			from, to := smallestInternalEdge(graph, cycle, members)
			if from == "" {
				break
			}
			delete(graph[from], to)
			logf("cycle resolved: removed edge %s -> %s", from, to)

			if len(DetectCycles(subgraph(graph, members))) == 0 {
				break
			}
		}
	}
}

func smallestInternalEdge(graph model.DependencyGraph, cycle []string, members map[string]bool) (string, string) {
	for _, from := range cycle {
		for _, to := range sortedKeys(graph[from]) {
			if members[to] {
				return from, to
			}
		}
	}
	return "", ""
}

func subgraph(graph model.DependencyGraph, members map[string]bool) model.DependencyGraph {
	sub := make(model.DependencyGraph, len(members))
	for id := range members {
		sub[id] = make(map[string]bool)
		for dep := range graph[id] {
			if members[dep] {
				sub[id][dep] = true
			}
		}
	}
	return sub
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
