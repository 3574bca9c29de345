package tenancy

import (
	"testing"

	"swapmesh/core/state"
	"swapmesh/core/types"
)

func TestCanReadAllowsParticipant(t *testing.T) {
	snap := state.NewSnapshot()
	participant := types.Actor{Type: types.ActorUser, ID: "u1"}
	err := CanRead(snap, "p1", participant, []types.Actor{participant})
	if err != nil {
		t.Fatalf("expected a direct participant to read unconditionally, got %v", err)
	}
}

func TestCanReadRejectsUnscopedNonParticipant(t *testing.T) {
	snap := state.NewSnapshot()
	err := CanRead(snap, "p1", types.Actor{Type: types.ActorUser, ID: "stranger"}, nil)
	if err == nil {
		t.Fatalf("expected a non-participant with no tenancy scope to be rejected")
	}
}

func TestRecordProposalScopesToPartnerAndAllowsThatPartnerToRead(t *testing.T) {
	snap := state.NewSnapshot()
	RecordProposal(snap, "p1", "partner-1")

	err := CanRead(snap, "p1", types.Actor{Type: types.ActorPartner, ID: "partner-1"}, nil)
	if err != nil {
		t.Fatalf("expected the recording partner to read its own proposal, got %v", err)
	}
}

func TestCanReadRejectsOtherPartner(t *testing.T) {
	snap := state.NewSnapshot()
	RecordProposal(snap, "p1", "partner-1")

	err := CanRead(snap, "p1", types.Actor{Type: types.ActorPartner, ID: "partner-2"}, nil)
	if err == nil {
		t.Fatalf("expected a different partner to be rejected")
	}
}

func TestRecordProposalWithEmptyPartnerLeavesUnscoped(t *testing.T) {
	snap := state.NewSnapshot()
	RecordProposal(snap, "p1", "")
	if _, scoped := snap.Tenancy.Proposals["p1"]; scoped {
		t.Fatalf("expected an empty partner id to leave the proposal unscoped")
	}
}
