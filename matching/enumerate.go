package matching

import (
	"sort"
	"strings"
	"time"
)

// EnumerationResult carries the enumerated cycles plus the diagnostic bits
// spec.md §4.1 step 5 requires when a budget trips.
type EnumerationResult struct {
	Cycles    [][]string
	Limited   bool
	TimedOut  bool
}

// EnumerateCycles enumerates simple directed cycles of length in
// [minLen, maxLen] via Tarjan SCC decomposition followed by a bounded DFS
// walk restricted to nodes at or after the current start in sort order, per
// spec.md §4.1. maxEnumerated <= 0 and timeout <= 0 mean "no budget".
func EnumerateCycles(g *Graph, minLen, maxLen int, maxEnumerated int, timeout time.Duration) EnumerationResult {
	if minLen < 2 {
		minLen = 2
	}
	if maxLen < minLen {
		maxLen = minLen
	}

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	seen := make(map[string]bool)
	var cycles [][]string
	limited := false
	timedOut := false

	sccs := stronglyConnectedComponents(g)
	// Process SCCs in deterministic order by their smallest member.
	sort.Slice(sccs, func(i, j int) bool { return sccs[i][0] < sccs[j][0] })

outer:
	for _, scc := range sccs {
		if len(scc) < minLen && len(scc) < 2 {
			continue
		}
		inSCC := make(map[string]bool, len(scc))
		for _, n := range scc {
			inSCC[n] = true
		}
		nodes := append([]string(nil), scc...)
		sort.Strings(nodes)

		for _, start := range nodes {
			walker := &cycleWalker{
				graph:     g,
				inSCC:     inSCC,
				start:     start,
				minLen:    minLen,
				maxLen:    maxLen,
				visited:   map[string]bool{start: true},
				path:      []string{start},
				deadline:  deadline,
			}
			walker.walk(start)
			for _, c := range walker.found {
				key := strings.Join(c, ">")
				if seen[key] {
					continue
				}
				seen[key] = true
				cycles = append(cycles, c)
				if maxEnumerated > 0 && len(cycles) >= maxEnumerated {
					limited = true
					break outer
				}
			}
			if walker.timedOut {
				timedOut = true
				break outer
			}
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		if len(cycles[i]) != len(cycles[j]) {
			return len(cycles[i]) < len(cycles[j])
		}
		return strings.Join(cycles[i], ">") < strings.Join(cycles[j], ">")
	})

	return EnumerationResult{Cycles: cycles, Limited: limited, TimedOut: timedOut}
}

type cycleWalker struct {
	graph    *Graph
	inSCC    map[string]bool
	start    string
	minLen   int
	maxLen   int
	visited  map[string]bool
	path     []string
	found    [][]string
	deadline time.Time
	timedOut bool
}

func (w *cycleWalker) walk(u string) {
	if w.timedOut {
		return
	}
	if !w.deadline.IsZero() && time.Now().After(w.deadline) {
		w.timedOut = true
		return
	}
	for _, v := range w.graph.Edges[u] {
		if !w.inSCC[v] {
			continue
		}
		if v < w.start {
			continue
		}
		if v == w.start {
			if len(w.path) >= w.minLen && len(w.path) <= w.maxLen {
				cycle := append([]string(nil), w.path...)
				w.found = append(w.found, cycle)
			}
			continue
		}
		if w.visited[v] {
			continue
		}
		if len(w.path) >= w.maxLen {
			continue
		}
		w.visited[v] = true
		w.path = append(w.path, v)
		w.walk(v)
		w.path = w.path[:len(w.path)-1]
		w.visited[v] = false
		if w.timedOut {
			return
		}
	}
}
