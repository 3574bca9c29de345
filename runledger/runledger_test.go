package runledger

import (
	"testing"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/matching"
)

func TestRecordPersistsSelectedProposalsAndRun(t *testing.T) {
	snap := state.NewSnapshot()
	proposal := &types.CycleProposal{ID: "p1", Participants: []types.ProposalParticipant{{IntentID: "a"}, {IntentID: "b"}}}
	result := matching.Result{
		Selected: []*types.CycleProposal{proposal},
		Diagnostics: types.MatchingRunDiagnostics{
			Nodes: 2, Edges: 2, Candidates: 1, Selected: 1,
		},
	}
	now := time.Now()

	run := Record(snap, result, "partner-1", now)
	if run.PartnerID != "partner-1" {
		t.Fatalf("expected partner id to be recorded, got %s", run.PartnerID)
	}
	if len(run.ProposalIDs) != 1 || run.ProposalIDs[0] != "p1" {
		t.Fatalf("expected proposal id p1 in the run, got %v", run.ProposalIDs)
	}
	if _, ok := snap.Proposals["p1"]; !ok {
		t.Fatalf("expected the selected proposal to be persisted into the snapshot")
	}
	fetched, ok := Get(snap, run.ID)
	if !ok || fetched.ID != run.ID {
		t.Fatalf("expected Get to retrieve the recorded run by id")
	}
}

func TestGetReturnsFalseForUnknownRun(t *testing.T) {
	snap := state.NewSnapshot()
	_, ok := Get(snap, "missing-run")
	if ok {
		t.Fatalf("expected an unknown run id to report not found")
	}
}

func TestRecordWithNoSelectedProposalsStillPersistsRun(t *testing.T) {
	snap := state.NewSnapshot()
	result := matching.Result{Diagnostics: types.MatchingRunDiagnostics{Nodes: 0, Edges: 0}}
	run := Record(snap, result, "", time.Now())
	if len(run.ProposalIDs) != 0 {
		t.Fatalf("expected no proposal ids for an empty result")
	}
	if _, ok := Get(snap, run.ID); !ok {
		t.Fatalf("expected the run to be retrievable even with zero selections")
	}
}
