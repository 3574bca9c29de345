package matching

import (
	"reflect"
	"sort"
	"testing"
)

func TestStronglyConnectedComponentsSimpleCycle(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b", "c"},
		Edges: map[string][]string{
			"a": {"b"},
			"b": {"c"},
			"c": {"a"},
		},
	}
	sccs := stronglyConnectedComponents(g)
	if len(sccs) != 1 {
		t.Fatalf("expected one SCC, got %d: %v", len(sccs), sccs)
	}
	got := append([]string(nil), sccs[0]...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected all three nodes in one SCC, got %v", got)
	}
}

func TestStronglyConnectedComponentsDisjointNodes(t *testing.T) {
	g := &Graph{
		Nodes: []string{"a", "b"},
		Edges: map[string][]string{"a": {"b"}},
	}
	sccs := stronglyConnectedComponents(g)
	if len(sccs) != 2 {
		t.Fatalf("expected two singleton SCCs for a one-way edge, got %d: %v", len(sccs), sccs)
	}
}

func TestStronglyConnectedComponentsDeterministicOrdering(t *testing.T) {
	g := &Graph{
		Nodes: []string{"x", "y", "z"},
		Edges: map[string][]string{
			"x": {"y"},
			"y": {"x"},
			"z": {},
		},
	}
	first := stronglyConnectedComponents(g)
	second := stronglyConnectedComponents(g)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected deterministic SCC output across repeated calls")
	}
}
