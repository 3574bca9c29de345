package matching

import (
	"swapmesh/core/types"
	"testing"
)

func proposal(id string, score float64, intentIDs ...string) *types.CycleProposal {
	participants := make([]types.ProposalParticipant, len(intentIDs))
	for i, id := range intentIDs {
		participants[i] = types.ProposalParticipant{IntentID: id}
	}
	return &types.CycleProposal{ID: id, ConfidenceScore: score, Participants: participants}
}

func TestSelectDisjointOrdersByScoreDescThenIDAsc(t *testing.T) {
	candidates := []*types.CycleProposal{
		proposal("p2", 0.5, "a"),
		proposal("p1", 0.9, "b"),
		proposal("p3", 0.9, "c"),
	}
	selected, trace := SelectDisjoint(candidates)
	if len(selected) != 3 {
		t.Fatalf("expected all disjoint candidates selected, got %d", len(selected))
	}
	if trace[0].ProposalID != "p1" || trace[1].ProposalID != "p3" || trace[2].ProposalID != "p2" {
		t.Fatalf("expected order p1,p3,p2 (score desc, id asc tiebreak), got %v", trace)
	}
}

func TestSelectDisjointRejectsSharedIntentConflict(t *testing.T) {
	candidates := []*types.CycleProposal{
		proposal("high", 0.9, "a", "b"),
		proposal("low", 0.5, "b", "c"),
	}
	selected, trace := SelectDisjoint(candidates)
	if len(selected) != 1 || selected[0].ID != "high" {
		t.Fatalf("expected only the higher-scoring proposal selected, got %v", selected)
	}
	if trace[0].Decision != "selected" {
		t.Fatalf("expected high to be selected, got %s", trace[0].Decision)
	}
	if trace[1].Decision != "conflict_shared_intent" {
		t.Fatalf("expected low to be rejected for sharing intent b, got %s", trace[1].Decision)
	}
}

func TestSelectDisjointAllowsDisjointIntentSets(t *testing.T) {
	candidates := []*types.CycleProposal{
		proposal("p1", 0.9, "a", "b"),
		proposal("p2", 0.8, "c", "d"),
	}
	selected, _ := SelectDisjoint(candidates)
	if len(selected) != 2 {
		t.Fatalf("expected both disjoint proposals selected, got %d", len(selected))
	}
}

func TestSelectDisjointTraceCoversEveryCandidateInOrder(t *testing.T) {
	candidates := []*types.CycleProposal{
		proposal("p1", 0.9, "a"),
		proposal("p2", 0.8, "b"),
	}
	_, trace := SelectDisjoint(candidates)
	if len(trace) != len(candidates) {
		t.Fatalf("expected one trace entry per candidate, got %d", len(trace))
	}
}
