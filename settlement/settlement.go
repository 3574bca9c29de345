// Package settlement implements the escrow/execution state machine of
// spec.md §4.3: escrow.pending -> escrow.ready -> executing ->
// completed|failed, with optional vault-prefunded legs.
package settlement

import (
	"sort"
	"time"

	"swapmesh/core/idgen"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/crypto"
	"swapmesh/engineerr"
)

// DomainEvent mirrors commit.DomainEvent: a pending, unsigned event
// description the engine facade turns into a signed types.Event.
type DomainEvent struct {
	Type     string
	DedupKey string
	Payload  map[string]string
}

// VaultBinding pre-fulfils a leg with a reserved vault holding, per
// spec.md §4.3 "start".
type VaultBinding struct {
	IntentID      string
	HoldingID     string
	ReservationID string
}

// defaultDepositWindow bounds how long escrow.pending waits for every leg
// when Start is given no positive window.
const defaultDepositWindow = 24 * time.Hour

// Start transitions a unanimously-accepted proposal into escrow.pending (or
// directly into escrow.ready when every leg is bound on entry). proposal
// must have a commit in phase ready.
func Start(snap *state.Snapshot, proposal *types.CycleProposal, bindings []VaultBinding, depositWindow time.Duration, now time.Time) ([]DomainEvent, error) {
	commitRec, ok := snap.Commits[proposal.ID]
	if !ok || commitRec.Phase != types.CommitReady {
		return nil, engineerr.ConstraintViolationf("proposal %s commit is not ready", proposal.ID)
	}
	if _, exists := snap.Timelines[proposal.ID]; exists {
		return nil, engineerr.Conflictf("timeline for cycle %s already started", proposal.ID)
	}
	if depositWindow <= 0 {
		depositWindow = defaultDepositWindow
	}

	n := len(proposal.Participants)
	legs := make([]types.Leg, n)
	for i, participant := range proposal.Participants {
		// leg i: participant i delivers its Give assets to the predecessor,
		// i.e. from = participant i, to = participant (i-1 mod n).
		to := proposal.Participants[(i-1+n)%n]
		legs[i] = types.Leg{
			LegID:             proposal.ID + "#" + participant.IntentID,
			IntentID:          participant.IntentID,
			FromActor:         participant.Actor,
			ToActor:           to.Actor,
			Assets:            append([]types.Asset(nil), participant.Give...),
			Status:            types.LegPending,
			DepositDeadlineAt: now.Add(depositWindow),
		}
	}

	timeline := &types.Timeline{
		CycleID:   proposal.ID,
		State:     types.TimelineEscrowPending,
		Legs:      legs,
		UpdatedAt: now,
	}

	var events []DomainEvent
	for _, binding := range bindings {
		holding, ok := snap.VaultHoldings[binding.HoldingID]
		if !ok {
			return nil, engineerr.NotFoundf("vault holding %s not found", binding.HoldingID)
		}
		if holding.Status != types.VaultReserved || holding.ReservationID != binding.ReservationID {
			return nil, engineerr.ConstraintViolationf("vault holding %s is not reserved under %s", binding.HoldingID, binding.ReservationID)
		}
		legIdx := timeline.LegByIntent(binding.IntentID)
		if legIdx < 0 {
			return nil, engineerr.NotFoundf("intent %s is not a leg of cycle %s", binding.IntentID, proposal.ID)
		}
		leg := &timeline.Legs[legIdx]
		if leg.FromActor != holding.OwnerActor {
			return nil, engineerr.ConstraintViolationf("vault holding %s owner does not match leg %s", binding.HoldingID, leg.LegID)
		}
		if !assetInLeg(holding.Asset, leg.Assets) {
			return nil, engineerr.ConstraintViolationf("vault holding %s asset does not match leg %s", binding.HoldingID, leg.LegID)
		}
		if leg.Status == types.LegDeposited {
			return nil, engineerr.Conflictf("leg %s already bound", leg.LegID)
		}

		leg.Status = types.LegDeposited
		leg.DepositMode = types.DepositVault
		leg.DepositRef = "vault:" + binding.HoldingID + ":" + binding.ReservationID
		leg.VaultHoldingID = binding.HoldingID
		leg.VaultReservationID = binding.ReservationID
		t := now
		leg.DepositedAt = &t

		holding.SettlementCycleID = proposal.ID
		holding.UpdatedAt = now

		events = append(events, DomainEvent{
			Type:     types.EventVaultDepositConfirmed,
			DedupKey: proposal.ID + "|" + binding.IntentID,
			Payload:  map[string]string{"cycle_id": proposal.ID, "intent_id": binding.IntentID, "holding_id": binding.HoldingID},
		})
	}

	if timeline.AllLegsDeposited() {
		timeline.State = types.TimelineEscrowReady
	}
	snap.Timelines[proposal.ID] = timeline

	events = append(events, DomainEvent{
		Type:     types.EventCycleStateChanged,
		DedupKey: proposal.ID + "|" + string(timeline.State),
		Payload:  map[string]string{"cycle_id": proposal.ID, "state": string(timeline.State)},
	})
	if timeline.State == types.TimelineEscrowPending {
		events = append(events, DomainEvent{
			Type:     types.EventSettlementDepositRequired,
			DedupKey: proposal.ID,
			Payload:  map[string]string{"cycle_id": proposal.ID},
		})
	}
	return events, nil
}

func assetInLeg(asset types.Asset, legAssets []types.Asset) bool {
	for _, a := range legAssets {
		if a.Fingerprint() == asset.Fingerprint() {
			return true
		}
	}
	return false
}

// ConfirmDeposit records a manual deposit for the requesting actor's leg.
// Replays with an identical depositRef are idempotent; a conflicting one is
// CONFLICT.
func ConfirmDeposit(snap *state.Snapshot, cycleID, intentID string, actor types.Actor, depositRef string, now time.Time) ([]DomainEvent, error) {
	timeline, ok := snap.Timelines[cycleID]
	if !ok {
		return nil, engineerr.NotFoundf("timeline for cycle %s not found", cycleID)
	}
	if timeline.State.Terminal() {
		return nil, engineerr.Conflictf("cycle %s is already terminal", cycleID)
	}
	if timeline.State != types.TimelineEscrowPending {
		return nil, engineerr.ConstraintViolationf("cycle %s is not accepting deposits", cycleID)
	}
	idx := timeline.LegByIntent(intentID)
	if idx < 0 {
		return nil, engineerr.NotFoundf("intent %s is not a leg of cycle %s", intentID, cycleID)
	}
	leg := &timeline.Legs[idx]
	if !leg.FromActor.Equal(actor) {
		return nil, engineerr.Forbiddenf("caller_mismatch", "caller is not the leg's from_actor")
	}
	if leg.DepositMode == types.DepositVault {
		return nil, engineerr.ConstraintViolationf("leg %s is vault-bound, not manually confirmable", leg.LegID)
	}
	if leg.Status == types.LegDeposited {
		if leg.DepositRef == depositRef {
			return nil, nil
		}
		return nil, engineerr.Conflictf("leg %s already deposited under a different reference", leg.LegID)
	}

	leg.Status = types.LegDeposited
	leg.DepositMode = types.DepositManual
	leg.DepositRef = depositRef
	t := now
	leg.DepositedAt = &t
	timeline.UpdatedAt = now

	events := []DomainEvent{{
		Type:     types.EventSettlementDepositConfirmed,
		DedupKey: cycleID + "|" + intentID,
		Payload:  map[string]string{"cycle_id": cycleID, "intent_id": intentID, "deposit_ref": depositRef},
	}}

	if timeline.AllLegsDeposited() {
		timeline.State = types.TimelineEscrowReady
		events = append(events, DomainEvent{
			Type:     types.EventCycleStateChanged,
			DedupKey: cycleID + "|" + string(types.TimelineEscrowReady),
			Payload:  map[string]string{"cycle_id": cycleID, "state": string(types.TimelineEscrowReady)},
		})
	}
	return events, nil
}

// BeginExecution requires escrow.ready and transitions to executing.
func BeginExecution(snap *state.Snapshot, cycleID string, now time.Time) ([]DomainEvent, error) {
	timeline, ok := snap.Timelines[cycleID]
	if !ok {
		return nil, engineerr.NotFoundf("timeline for cycle %s not found", cycleID)
	}
	if timeline.State.Terminal() {
		return nil, engineerr.Conflictf("cycle %s is already terminal", cycleID)
	}
	if timeline.State != types.TimelineEscrowReady {
		return nil, engineerr.ConstraintViolationf("cycle %s is not escrow.ready", cycleID)
	}
	timeline.State = types.TimelineExecuting
	timeline.UpdatedAt = now
	return []DomainEvent{{
		Type:     types.EventSettlementExecuting,
		DedupKey: cycleID,
		Payload:  map[string]string{"cycle_id": cycleID},
	}}, nil
}

// Complete requires executing and every leg deposited. It releases every
// leg and reservation, withdraws vault-bound holdings, and writes a signed
// completed receipt.
func Complete(snap *state.Snapshot, ring *crypto.Ring, cycleID string, now time.Time) ([]DomainEvent, *types.Receipt, error) {
	timeline, ok := snap.Timelines[cycleID]
	if !ok {
		return nil, nil, engineerr.NotFoundf("timeline for cycle %s not found", cycleID)
	}
	if timeline.State.Terminal() {
		return nil, nil, engineerr.Conflictf("cycle %s is already terminal", cycleID)
	}
	if timeline.State != types.TimelineExecuting {
		return nil, nil, engineerr.ConstraintViolationf("cycle %s is not executing", cycleID)
	}
	if !timeline.AllLegsDeposited() {
		return nil, nil, engineerr.ConstraintViolationf("cycle %s has undeposited legs", cycleID)
	}

	intentIDs := make([]string, len(timeline.Legs))
	assetIDs := make([]string, 0)
	for i, leg := range timeline.Legs {
		timeline.Legs[i].Status = types.LegReleased
		t := now
		timeline.Legs[i].ReleasedAt = &t
		intentIDs[i] = leg.IntentID
		for _, a := range leg.Assets {
			assetIDs = append(assetIDs, a.Fingerprint())
		}
		delete(snap.Reservations, leg.IntentID)
		if leg.VaultHoldingID != "" {
			if holding, ok := snap.VaultHoldings[leg.VaultHoldingID]; ok {
				holding.Status = types.VaultWithdrawn
				t := now
				holding.WithdrawnAt = &t
				holding.UpdatedAt = now
			}
		}
	}

	var fees []types.FeeEntry
	if proposal, ok := snap.Proposals[cycleID]; ok {
		fees = proposal.FeeBreakdown
	}

	timeline.State = types.TimelineCompleted
	timeline.UpdatedAt = now

	receipt, err := buildReceipt(ring, cycleID, types.ReceiptCompleted, intentIDs, assetIDs, fees, nil, now)
	if err != nil {
		return nil, nil, err
	}
	snap.Receipts[receipt.ID] = receipt

	events := []DomainEvent{
		{Type: types.EventCycleStateChanged, DedupKey: cycleID + "|" + string(types.TimelineCompleted), Payload: map[string]string{"cycle_id": cycleID, "state": string(types.TimelineCompleted)}},
		{Type: types.EventReceiptCreated, DedupKey: receipt.ID, Payload: map[string]string{"cycle_id": cycleID, "receipt_id": receipt.ID}},
	}
	return events, receipt, nil
}

// ExpireDepositWindow is the control operation that fails a cycle whose
// deposit window has elapsed without every leg deposited.
func ExpireDepositWindow(snap *state.Snapshot, ring *crypto.Ring, cycleID string, now time.Time) ([]DomainEvent, *types.Receipt, error) {
	timeline, ok := snap.Timelines[cycleID]
	if !ok {
		return nil, nil, engineerr.NotFoundf("timeline for cycle %s not found", cycleID)
	}
	if timeline.State.Terminal() {
		return nil, nil, engineerr.Conflictf("cycle %s is already terminal", cycleID)
	}
	if timeline.AllLegsDeposited() {
		return nil, nil, engineerr.ConstraintViolationf("cycle %s has no pending deposits to expire", cycleID)
	}

	deadlinePassed := false
	for _, leg := range timeline.Legs {
		if now.After(leg.DepositDeadlineAt) {
			deadlinePassed = true
			break
		}
	}
	if !deadlinePassed {
		return nil, nil, engineerr.ConstraintViolationf("cycle %s deposit window has not elapsed", cycleID)
	}

	var events []DomainEvent
	intentIDs := make([]string, len(timeline.Legs))
	for i, leg := range timeline.Legs {
		intentIDs[i] = leg.IntentID
		switch leg.Status {
		case types.LegDeposited:
			timeline.Legs[i].Status = types.LegRefunded
			t := now
			timeline.Legs[i].RefundedAt = &t
			timeline.Legs[i].RefundReason = "deposit_timeout"
			if leg.DepositMode == types.DepositVault {
				if holding, ok := snap.VaultHoldings[leg.VaultHoldingID]; ok {
					holding.Status = types.VaultAvailable
					holding.SettlementCycleID = ""
					holding.UpdatedAt = now
				}
			}
			events = append(events, DomainEvent{
				Type:     types.EventVaultHoldingReleased,
				DedupKey: cycleID + "|" + leg.IntentID,
				Payload:  map[string]string{"cycle_id": cycleID, "intent_id": leg.IntentID, "reason_code": "deposit_timeout"},
			})
		}
		delete(snap.Reservations, leg.IntentID)
		if intent, ok := snap.Intents[leg.IntentID]; ok && intent.Status == types.IntentReserved {
			intent.Status = types.IntentActive
			intent.UpdatedAt = now
		}
	}

	timeline.State = types.TimelineFailed
	timeline.UpdatedAt = now

	receipt, err := buildReceipt(ring, cycleID, types.ReceiptFailed, intentIDs, nil, nil, map[string]string{"reason_code": "deposit_timeout"}, now)
	if err != nil {
		return nil, nil, err
	}
	snap.Receipts[receipt.ID] = receipt

	events = append(events,
		DomainEvent{Type: types.EventCycleStateChanged, DedupKey: cycleID + "|" + string(types.TimelineFailed), Payload: map[string]string{"cycle_id": cycleID, "state": string(types.TimelineFailed)}},
		DomainEvent{Type: types.EventReceiptCreated, DedupKey: receipt.ID, Payload: map[string]string{"cycle_id": cycleID, "receipt_id": receipt.ID}},
	)
	return events, receipt, nil
}

// sortedCopy returns ids sorted ascending, per spec.md §3's receipt
// invariant (intent_ids sorted); the input slice is left untouched.
func sortedCopy(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

// dedupSorted returns ids deduplicated and sorted ascending, per spec.md
// §3's receipt invariant (asset_ids deduped, sorted).
func dedupSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func buildReceipt(ring *crypto.Ring, cycleID string, finalState types.ReceiptFinalState, intentIDs, assetIDs []string, fees []types.FeeEntry, transparency map[string]string, now time.Time) (*types.Receipt, error) {
	receipt := &types.Receipt{
		ID:           idgen.ReceiptID(cycleID, string(finalState)),
		CycleID:      cycleID,
		FinalState:   finalState,
		IntentIDs:    sortedCopy(intentIDs),
		AssetIDs:     dedupSorted(assetIDs),
		Fees:         fees,
		CreatedAt:    now,
		Transparency: transparency,
	}
	sig, err := ring.SignCanonical(*receipt)
	if err != nil {
		return nil, err
	}
	receipt.Signature = types.Signature{KeyID: sig.KeyID, Alg: sig.Alg, Sig: sig.Sig}
	return receipt, nil
}
