package matching

import (
	"testing"
	"time"
)

func TestEnumerateCyclesTwoWay(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b"},
		Edges: map[string][]string{"a": {"b"}, "b": {"a"}},
	}
	result := EnumerateCycles(g, 2, 3, 0, 0)
	if len(result.Cycles) != 1 {
		t.Fatalf("expected exactly one cycle, got %v", result.Cycles)
	}
	if result.Cycles[0][0] != "a" || result.Cycles[0][1] != "b" {
		t.Fatalf("expected canonical rotation starting at lexicographically smallest id, got %v", result.Cycles[0])
	}
	if result.Limited || result.TimedOut {
		t.Fatalf("expected no diagnostic bits set for an unbounded run")
	}
}

func TestEnumerateCyclesThreeWay(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b", "c"},
		Edges: map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"a"}},
	}
	result := EnumerateCycles(g, 2, 3, 0, 0)
	if len(result.Cycles) != 1 {
		t.Fatalf("expected exactly one canonical 3-cycle, got %v", result.Cycles)
	}
	if len(result.Cycles[0]) != 3 {
		t.Fatalf("expected cycle length 3, got %d", len(result.Cycles[0]))
	}
}

func TestEnumerateCyclesDedupsRotations(t *testing.T) {
	// A 3-node bidirectional ring contains two distinct directed 3-cycles
	// (a>b>c and a>c>b); neither should be double-counted via rotation.
	g := &Graph{
		Nodes: []string{"a", "b", "c"},
		Edges: map[string][]string{
			"a": {"b", "c"},
			"b": {"a", "c"},
			"c": {"a", "b"},
		},
	}
	result := EnumerateCycles(g, 3, 3, 0, 0)
	seen := make(map[string]bool)
	for _, c := range result.Cycles {
		key := c[0] + c[1] + c[2]
		if seen[key] {
			t.Fatalf("found duplicate cycle %v", c)
		}
		seen[key] = true
	}
	if len(result.Cycles) != 2 {
		t.Fatalf("expected exactly 2 distinct directed 3-cycles, got %d: %v", len(result.Cycles), result.Cycles)
	}
}

func TestEnumerateCyclesRespectsLengthBounds(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b", "c", "d"},
		Edges: map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"d"}, "d": {"a"}},
	}
	result := EnumerateCycles(g, 2, 3, 0, 0)
	if len(result.Cycles) != 0 {
		t.Fatalf("expected no cycles within [2,3] for a 4-cycle graph, got %v", result.Cycles)
	}
	result = EnumerateCycles(g, 2, 4, 0, 0)
	if len(result.Cycles) != 1 {
		t.Fatalf("expected the 4-cycle once max length covers it, got %v", result.Cycles)
	}
}

func TestEnumerateCyclesIsDeterministicAcrossRuns(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b", "c", "d", "e"},
		Edges: map[string][]string{
			"a": {"b"}, "b": {"c"}, "c": {"a", "d"}, "d": {"e"}, "e": {"c"},
		},
	}
	first := EnumerateCycles(g, 2, 3, 0, 0)
	second := EnumerateCycles(g, 2, 3, 0, 0)
	if len(first.Cycles) != len(second.Cycles) {
		t.Fatalf("expected deterministic cycle count across runs")
	}
	for i := range first.Cycles {
		if len(first.Cycles[i]) != len(second.Cycles[i]) {
			t.Fatalf("cycle %d differs in length across runs", i)
		}
		for j := range first.Cycles[i] {
			if first.Cycles[i][j] != second.Cycles[i][j] {
				t.Fatalf("cycle %d differs in content across runs: %v vs %v", i, first.Cycles[i], second.Cycles[i])
			}
		}
	}
}

func TestEnumerateCyclesMaxEnumeratedSetsLimitedBit(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b", "c"},
		Edges: map[string][]string{
			"a": {"b", "c"},
			"b": {"a", "c"},
			"c": {"a", "b"},
		},
	}
	result := EnumerateCycles(g, 2, 3, 1, 0)
	if !result.Limited {
		t.Fatalf("expected cycle_enumeration_limited to be set when maxEnumerated trips")
	}
	if len(result.Cycles) != 1 {
		t.Fatalf("expected enumeration to stop at the budget, got %d cycles", len(result.Cycles))
	}
}

func TestEnumerateCyclesNegativeTimeoutMeansNoBudget(t *testing.T) {
	g := &Graph{Nodes: []string{"a"}, Edges: map[string][]string{"a": {"a"}}}
	// A non-positive timeout means no time budget, so no deadline is set.
	result := EnumerateCycles(g, 2, 3, 0, -time.Nanosecond)
	_ = result
	// No directed self-loop participates (min length 2), so this mainly
	// exercises that a negative timeout doesn't panic; the meaningful
	// assertion is covered by the budget test above. Confirm no cycles.
	if len(result.Cycles) != 0 {
		t.Fatalf("expected no cycles from a single self-referential node below min length")
	}
}
