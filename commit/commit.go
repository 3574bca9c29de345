// Package commit implements the unanimous accept/decline aggregation and
// single-cycle intent reservation described in spec.md §4.2. At-most-one
// cycle per intent is the central invariant this package enforces.
package commit

import (
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
)

func findParticipant(proposal *types.CycleProposal, intentID string) *types.ProposalParticipant {
	for i := range proposal.Participants {
		if proposal.Participants[i].IntentID == intentID {
			return &proposal.Participants[i]
		}
	}
	return nil
}

func commitFor(snap *state.Snapshot, proposalID string) *types.Commit {
	c, ok := snap.Commits[proposalID]
	if !ok {
		c = &types.Commit{
			ProposalID: proposalID,
			Phase:      types.CommitPending,
			Accepted:   map[string]bool{},
			Declined:   map[string]bool{},
		}
		snap.Commits[proposalID] = c
	}
	return c
}

// Accept records caller's acceptance of their participant intent in the
// given proposal. See spec.md §4.2 for the full contract.
func Accept(snap *state.Snapshot, proposalID, intentID string, caller types.Actor, now time.Time) ([]DomainEvent, error) {
	proposal, ok := snap.Proposals[proposalID]
	if !ok {
		return nil, engineerr.NotFoundf("proposal %s not found", proposalID)
	}
	participant := findParticipant(proposal, intentID)
	if participant == nil {
		return nil, engineerr.NotFoundf("intent %s is not a participant of proposal %s", intentID, proposalID)
	}
	if !participant.Actor.Equal(caller) {
		return nil, engineerr.Forbiddenf("caller_mismatch", "caller does not match participant actor")
	}

	if res, ok := snap.Reservations[intentID]; ok && res.CycleID != proposalID {
		return nil, engineerr.Conflictf("intent reserved by another cycle").WithDetails(map[string]interface{}{
			"other_cycle_id": res.CycleID,
		})
	}

	c := commitFor(snap, proposalID)
	if c.Phase == types.CommitCancelled {
		return nil, engineerr.Conflictf("commit for proposal %s is cancelled", proposalID)
	}
	if c.Declined[intentID] {
		return nil, engineerr.Conflictf("intent %s has already declined proposal %s", intentID, proposalID)
	}
	if c.Accepted[intentID] {
		return nil, nil
	}

	c.Accepted[intentID] = true
	c.UpdatedAt = now
	snap.Reservations[intentID] = &types.Reservation{IntentID: intentID, CycleID: proposalID, ReservedAt: now}

	var events []DomainEvent
	if c.Unanimous(proposal.IntentIDs()) {
		c.Phase = types.CommitReady
		readyEvents := onUnanimousAccept(snap, proposal, now)
		events = append(events, readyEvents...)
	}
	return events, nil
}

// Decline immediately cancels the commit, releases any reservations it
// held, and cancels the proposal. Declines are sticky.
func Decline(snap *state.Snapshot, proposalID, intentID string, caller types.Actor, now time.Time) ([]DomainEvent, error) {
	proposal, ok := snap.Proposals[proposalID]
	if !ok {
		return nil, engineerr.NotFoundf("proposal %s not found", proposalID)
	}
	participant := findParticipant(proposal, intentID)
	if participant == nil {
		return nil, engineerr.NotFoundf("intent %s is not a participant of proposal %s", intentID, proposalID)
	}
	if !participant.Actor.Equal(caller) {
		return nil, engineerr.Forbiddenf("caller_mismatch", "caller does not match participant actor")
	}

	c := commitFor(snap, proposalID)
	if c.Phase == types.CommitCancelled {
		return nil, nil
	}
	c.Declined[intentID] = true
	c.Phase = types.CommitCancelled
	c.UpdatedAt = now

	events := releaseReservations(snap, proposal, proposalID, now)
	return events, nil
}

// onUnanimousAccept marks every participant intent reserved and cancels any
// other proposal sharing one of those intents.
func onUnanimousAccept(snap *state.Snapshot, proposal *types.CycleProposal, now time.Time) []DomainEvent {
	participantIDs := proposal.IntentIDs()
	for _, id := range participantIDs {
		if intent, ok := snap.Intents[id]; ok {
			intent.Status = types.IntentReserved
			intent.UpdatedAt = now
		}
	}

	var events []DomainEvent
	shared := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		shared[id] = true
	}

	for otherID, otherProposal := range snap.Proposals {
		if otherID == proposal.ID {
			continue
		}
		hasShared := false
		for _, pid := range otherProposal.IntentIDs() {
			if shared[pid] {
				hasShared = true
				break
			}
		}
		if !hasShared {
			continue
		}
		otherCommit, ok := snap.Commits[otherID]
		if !ok || otherCommit.Phase == types.CommitCancelled {
			continue
		}
		otherCommit.Phase = types.CommitCancelled
		otherCommit.Accepted = map[string]bool{}
		otherCommit.UpdatedAt = now
		events = append(events, releaseReservations(snap, otherProposal, otherID, now)...)
	}
	return events
}

// releaseReservations drops any reservation owned by cycleID across the
// proposal's participants and restores those intents to active, unless they
// are currently reserved to a different (winning) cycle.
func releaseReservations(snap *state.Snapshot, proposal *types.CycleProposal, cycleID string, now time.Time) []DomainEvent {
	var events []DomainEvent
	for _, pid := range proposal.IntentIDs() {
		res, ok := snap.Reservations[pid]
		if !ok || res.CycleID != cycleID {
			continue
		}
		delete(snap.Reservations, pid)
		if intent, ok := snap.Intents[pid]; ok && intent.Status == types.IntentReserved {
			intent.Status = types.IntentActive
			intent.UpdatedAt = now
		}
		events = append(events, DomainEvent{
			Type:     types.EventIntentUnreserved,
			DedupKey: pid + "|" + cycleID,
			Payload:  map[string]string{"intent_id": pid, "cycle_id": cycleID},
		})
	}
	return events
}
