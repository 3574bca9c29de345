package engine

import (
	"context"
	"testing"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
)

func seedReadyTwoWayCycle(t *testing.T, e *Engine, id, a, b string) *types.CycleProposal {
	t.Helper()
	var proposal *types.CycleProposal
	e.Store.Update(func(snap *state.Snapshot) error {
		proposal = &types.CycleProposal{
			ID: id,
			Participants: []types.ProposalParticipant{
				{IntentID: a, Actor: types.Actor{Type: types.ActorUser, ID: a}, Give: []types.Asset{{Platform: "steam", AssetID: "x"}}},
				{IntentID: b, Actor: types.Actor{Type: types.ActorUser, ID: b}, Give: []types.Asset{{Platform: "steam", AssetID: "y"}}},
			},
		}
		snap.Proposals[id] = proposal
		snap.Commits[id] = &types.Commit{
			ProposalID: id, Phase: types.CommitReady,
			Accepted: map[string]bool{a: true, b: true}, Declined: map[string]bool{},
		}
		return nil
	})
	return proposal
}

func TestSettlementFullHappyPathThroughEngine(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	seedReadyTwoWayCycle(t, e, "p1", "a", "b")

	operator := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "operator"}, IdempotencyKey: "key-start"}
	started, err := e.StartSettlement(context.Background(), operator, StartSettlementRequest{CycleID: "p1"})
	if err != nil {
		t.Fatalf("StartSettlement: %v", err)
	}
	if started.Timeline.State != types.TimelineEscrowPending {
		t.Fatalf("expected escrow.pending after start, got %s", started.Timeline.State)
	}

	aCaller := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "a"}, IdempotencyKey: "key-dep-a"}
	if _, err := e.ConfirmDeposit(context.Background(), aCaller, ConfirmDepositRequest{CycleID: "p1", IntentID: "a", DepositRef: "ref-a"}); err != nil {
		t.Fatalf("ConfirmDeposit a: %v", err)
	}
	bCaller := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "b"}, IdempotencyKey: "key-dep-b"}
	confirmed, err := e.ConfirmDeposit(context.Background(), bCaller, ConfirmDepositRequest{CycleID: "p1", IntentID: "b", DepositRef: "ref-b"})
	if err != nil {
		t.Fatalf("ConfirmDeposit b: %v", err)
	}
	if confirmed.Timeline.State != types.TimelineEscrowReady {
		t.Fatalf("expected escrow.ready once both legs deposited, got %s", confirmed.Timeline.State)
	}

	operator.IdempotencyKey = "key-exec"
	executing, err := e.BeginExecution(context.Background(), operator, BeginExecutionRequest{CycleID: "p1"})
	if err != nil {
		t.Fatalf("BeginExecution: %v", err)
	}
	if executing.Timeline.State != types.TimelineExecuting {
		t.Fatalf("expected executing state, got %s", executing.Timeline.State)
	}

	operator.IdempotencyKey = "key-complete"
	completed, err := e.CompleteSettlement(context.Background(), operator, CompleteSettlementRequest{CycleID: "p1"})
	if err != nil {
		t.Fatalf("CompleteSettlement: %v", err)
	}
	if completed.Timeline.State != types.TimelineCompleted {
		t.Fatalf("expected completed state, got %s", completed.Timeline.State)
	}
	if completed.Receipt == nil {
		t.Fatalf("expected a signed receipt from CompleteSettlement")
	}

	fetched, err := e.GetReceipt(operator, completed.Receipt.ID)
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if fetched.ID != completed.Receipt.ID {
		t.Fatalf("expected GetReceipt to retrieve the same receipt")
	}

	status, err := e.SettlementStatus(operator, "p1")
	if err != nil {
		t.Fatalf("SettlementStatus: %v", err)
	}
	if status.State != types.TimelineCompleted {
		t.Fatalf("expected SettlementStatus to report completed, got %s", status.State)
	}
}

func TestExpireDepositWindowFailsCycleThroughEngine(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	e.DepositWindow = time.Hour
	seedReadyTwoWayCycle(t, e, "p1", "a", "b")

	operator := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "operator"}, IdempotencyKey: "key-start"}
	if _, err := e.StartSettlement(context.Background(), operator, StartSettlementRequest{CycleID: "p1"}); err != nil {
		t.Fatalf("StartSettlement: %v", err)
	}

	later := now.Add(2 * time.Hour)
	e2 := testEngine(t, fixedClock(later))
	e2.Store = e.Store
	e2.DepositWindow = time.Hour

	operator.IdempotencyKey = "key-expire"
	resp, err := e2.ExpireDepositWindow(context.Background(), operator, ExpireDepositWindowRequest{CycleID: "p1"})
	if err != nil {
		t.Fatalf("ExpireDepositWindow: %v", err)
	}
	if resp.Timeline.State != types.TimelineFailed {
		t.Fatalf("expected failed state after expiring the deposit window, got %s", resp.Timeline.State)
	}
}
