// Package graph computes dependency relationships between indexed files.
// Nodes are file paths; an edge A→B means A declares a dependency on B.
// Paths referenced only as targets (never indexed) are legitimate nodes.
package graph

import "sort"

const (
	// DefaultMaxDepth bounds transitive traversals when the caller gives no bound.
	DefaultMaxDepth = 10
	// MaxDepthCap is the hard ceiling on requested traversal depth.
	MaxDepthCap = 50
)

// Graph is a directed dependency graph over file paths.
type Graph struct {
	out map[string][]string
	in  map[string][]string
}

// Build constructs a graph from each record's declared dependency list,
// keyed by the record's path. Edge order follows declaration order;
// reverse edges are sorted for deterministic output.
func Build(deps map[string][]string) *Graph {
	g := &Graph{
		out: make(map[string][]string, len(deps)),
		in:  make(map[string][]string),
	}
	for path, targets := range deps {
		if len(targets) == 0 {
			continue
		}
		g.out[path] = append([]string(nil), targets...)
		for _, t := range targets {
			g.in[t] = append(g.in[t], path)
		}
	}
	for target, sources := range g.in {
		sort.Strings(sources)
		g.in[target] = dedupe(sources)
	}
	return g
}

// dedupe removes adjacent duplicates from a sorted slice.
func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// DirectDependencies returns the paths that path declares it depends on,
// in declaration order. Unknown paths yield nil.
func (g *Graph) DirectDependencies(path string) []string {
	return append([]string(nil), g.out[path]...)
}

// DirectDependents returns every path whose dependencies contain path,
// sorted ascending.
func (g *Graph) DirectDependents(path string) []string {
	return append([]string(nil), g.in[path]...)
}

// TransitiveDepth walks outward along dependency edges from path and
// returns the depth of first visit for each reachable node, with path
// itself at depth 0. Nodes are never re-enqueued, which makes the
// traversal cycle-safe, and no node is recorded beyond maxDepth.
func (g *Graph) TransitiveDepth(path string, maxDepth int) map[string]int {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > MaxDepthCap {
		maxDepth = MaxDepthCap
	}

	depths := map[string]int{path: 0}
	queue := []string{path}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		depth := depths[current]
		if depth >= maxDepth {
			continue
		}
		for _, next := range g.out[current] {
			if _, visited := depths[next]; visited {
				continue
			}
			depths[next] = depth + 1
			queue = append(queue, next)
		}
	}
	return depths
}

// Analysis is the composed dependency report for one root path.
type Analysis struct {
	Root         string
	Dependencies []string
	Dependents   []string
	Depths       map[string]int
}

// Analyze composes direct dependencies, direct dependents, and the bounded
// transitive depth map for path. A path with no record and no edges yields
// empty data, not an error.
func (g *Graph) Analyze(path string, maxDepth int) Analysis {
	return Analysis{
		Root:         path,
		Dependencies: g.DirectDependencies(path),
		Dependents:   g.DirectDependents(path),
		Depths:       g.TransitiveDepth(path, maxDepth),
	}
}
