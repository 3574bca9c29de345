package matching

import (
	"time"

	"swapmesh/core/types"
)

// Options bounds one matching run.
type Options struct {
	MinCycleLength      int
	MaxCycleLength      int
	MaxEnumeratedCycles int
	Timeout             time.Duration
	Now                 time.Time
}

// DefaultOptions returns the spec's default bounds (min 2, max 3) with no
// enumeration budget.
func DefaultOptions(now time.Time) Options {
	return Options{MinCycleLength: 2, MaxCycleLength: 3, Now: now}
}

// Result is the outcome of one matching run: the selected, pairwise
// intent-disjoint proposals plus full diagnostics.
type Result struct {
	Selected    []*types.CycleProposal
	Diagnostics types.MatchingRunDiagnostics
}

// Run snapshots active intents, builds the compatibility graph, enumerates
// bounded simple cycles, scores them into candidate proposals, and selects
// a maximal disjoint set — the full matching-engine pipeline of spec.md
// §4.1.
func Run(intents map[string]*types.SwapIntent, values AssetValues, opts Options) (Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	minLen, maxLen := opts.MinCycleLength, opts.MaxCycleLength
	if minLen <= 0 {
		minLen = 2
	}
	if maxLen <= 0 {
		maxLen = 3
	}

	graph := Build(intents, values, now)
	enumeration := EnumerateCycles(graph, minLen, maxLen, opts.MaxEnumeratedCycles, opts.Timeout)

	var candidates []*types.CycleProposal
	for _, cycle := range enumeration.Cycles {
		proposal, err := BuildProposal(cycle, intents, values, now)
		if err != nil {
			// A cycle whose participant rejects the length (max_cycle_length)
			// is dropped from candidates, not a fatal error for the run.
			continue
		}
		candidates = append(candidates, proposal)
	}

	selected, trace := SelectDisjoint(candidates)

	edgeCount := 0
	for _, neighbors := range graph.Edges {
		edgeCount += len(neighbors)
	}

	return Result{
		Selected: selected,
		Diagnostics: types.MatchingRunDiagnostics{
			Nodes:                    len(graph.Nodes),
			Edges:                    edgeCount,
			Candidates:               len(candidates),
			Selected:                 len(selected),
			CycleEnumerationLimited:  enumeration.Limited,
			CycleEnumerationTimedOut: enumeration.TimedOut,
			SelectionTrace:           trace,
		},
	}, nil
}
