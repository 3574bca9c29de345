// Package tenancy enforces partner-scoped read access to cycles and
// proposals (spec.md §3/§6): only the recording partner and the directly
// involved user/agent actors may read a cycle/proposal/timeline/receipt.
package tenancy

import (
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
)

// RecordProposal scopes a newly created proposal (and its cycle id, which
// is the same value per this engine's id scheme) to partnerID. A zero-value
// partnerID leaves the proposal unscoped, readable by any caller who is
// already a participant.
func RecordProposal(snap *state.Snapshot, proposalID, partnerID string) {
	if partnerID == "" {
		return
	}
	snap.Tenancy.Proposals[proposalID] = partnerID
	snap.Tenancy.Cycles[proposalID] = partnerID
}

// CanRead reports whether caller may read the given cycle/proposal id: its
// recording partner, or one of participantActors.
func CanRead(snap *state.Snapshot, proposalID string, caller types.Actor, participantActors []types.Actor) error {
	for _, p := range participantActors {
		if p.Equal(caller) {
			return nil
		}
	}
	owner, scoped := snap.Tenancy.Proposals[proposalID]
	if !scoped {
		return engineerr.Forbiddenf("not_participant", "caller is not a participant of %s", proposalID)
	}
	if caller.Type == types.ActorPartner && caller.ID == owner {
		return nil
	}
	return engineerr.Forbiddenf("tenancy_scope", "caller is not the recording partner of %s", proposalID)
}
