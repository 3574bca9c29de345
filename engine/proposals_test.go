package engine

import (
	"context"
	"testing"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
)

func seedTwoWayProposal(t *testing.T, e *Engine, id, intentA, intentB, partnerID string) {
	t.Helper()
	e.Store.Update(func(snap *state.Snapshot) error {
		proposal := &types.CycleProposal{
			ID: id,
			Participants: []types.ProposalParticipant{
				{IntentID: intentA, Actor: types.Actor{Type: types.ActorUser, ID: intentA}},
				{IntentID: intentB, Actor: types.Actor{Type: types.ActorUser, ID: intentB}},
			},
		}
		snap.Proposals[id] = proposal
		snap.Intents[intentA] = &types.SwapIntent{ID: intentA, Actor: proposal.Participants[0].Actor, Status: types.IntentActive}
		snap.Intents[intentB] = &types.SwapIntent{ID: intentB, Actor: proposal.Participants[1].Actor, Status: types.IntentActive}
		if partnerID != "" {
			if snap.Tenancy.Proposals == nil {
				snap.Tenancy.Proposals = make(map[string]string)
			}
			snap.Tenancy.Proposals[id] = partnerID
		}
		return nil
	})
}

func TestAcceptProposalReachesReadyOnUnanimity(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	seedTwoWayProposal(t, e, "p1", "a", "b", "")

	aCaller := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "a"}, IdempotencyKey: "key-a"}
	resp, err := e.AcceptProposal(context.Background(), aCaller, AcceptDeclineRequest{ProposalID: "p1", IntentID: "a"})
	if err != nil {
		t.Fatalf("AcceptProposal a: %v", err)
	}
	if resp.Commit == nil || resp.Commit.Phase == types.CommitReady {
		t.Fatalf("expected commit not yet ready after one of two accepts")
	}

	bCaller := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "b"}, IdempotencyKey: "key-b"}
	resp, err = e.AcceptProposal(context.Background(), bCaller, AcceptDeclineRequest{ProposalID: "p1", IntentID: "b"})
	if err != nil {
		t.Fatalf("AcceptProposal b: %v", err)
	}
	if resp.Commit == nil || resp.Commit.Phase != types.CommitReady {
		t.Fatalf("expected commit to reach ready once both participants accept")
	}
}

func TestDeclineProposalCancelsCommit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	seedTwoWayProposal(t, e, "p1", "a", "b", "")

	bCaller := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "b"}, IdempotencyKey: "key-b"}
	resp, err := e.DeclineProposal(context.Background(), bCaller, AcceptDeclineRequest{ProposalID: "p1", IntentID: "b"})
	if err != nil {
		t.Fatalf("DeclineProposal: %v", err)
	}
	if resp.Commit == nil || resp.Commit.Phase != types.CommitCancelled {
		t.Fatalf("expected a decline to cancel the commit")
	}
}

func TestGetProposalScopesToPartnerOfRecord(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	seedTwoWayProposal(t, e, "p1", "a", "b", "partner-1")

	partner := Caller{Actor: types.Actor{Type: types.ActorPartner, ID: "partner-1"}}
	if _, err := e.GetProposal(partner, "p1"); err != nil {
		t.Fatalf("expected the recording partner to read the proposal, got %v", err)
	}

	other := Caller{Actor: types.Actor{Type: types.ActorPartner, ID: "partner-2"}}
	if _, err := e.GetProposal(other, "p1"); err == nil {
		t.Fatalf("expected a different partner to be rejected")
	}
}

func TestListProposalsScopedToParticipant(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	seedTwoWayProposal(t, e, "p1", "a", "b", "")
	seedTwoWayProposal(t, e, "p2", "c", "d", "")

	aCaller := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "a"}}
	list, err := e.ListProposals(aCaller)
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(list) != 1 || list[0].ID != "p1" {
		t.Fatalf("expected participant a to see only p1, got %v", list)
	}
}
