package engine

import (
	"context"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
	"swapmesh/settlement"
)

// TimelineResponse wraps a cycle's settlement timeline for the wire.
type TimelineResponse struct {
	CorrelationID string          `json:"correlation_id"`
	Timeline      *types.Timeline `json:"timeline"`
}

// StartSettlementRequest is the settlement.start payload.
type StartSettlementRequest struct {
	CycleID  string                     `json:"cycle_id"`
	Bindings []settlement.VaultBinding `json:"vault_bindings,omitempty"`
}

// StartSettlement implements settlement.start.
func (e *Engine) StartSettlement(ctx context.Context, caller Caller, req StartSettlementRequest) (TimelineResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return TimelineResponse{}, err
	}
	if err := e.Manifest.Authorize("settlement.start", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return TimelineResponse{}, err
	}
	corr := correlationID("settlement.start", caller.IdempotencyKey)
	return operation(e, ctx, "settlement.start", caller, req, func(snap *state.Snapshot, now time.Time) (TimelineResponse, []pendingEventRecord, error) {
		if err := e.authorize("settlement.start", caller, nil, nil); err != nil {
			return TimelineResponse{}, nil, err
		}
		proposal, ok := snap.Proposals[req.CycleID]
		if !ok {
			return TimelineResponse{}, nil, engineerr.NotFoundf("proposal %s not found", req.CycleID)
		}
		evs, err := settlement.Start(snap, proposal, req.Bindings, e.DepositWindow, now)
		if err != nil {
			return TimelineResponse{}, nil, err
		}
		return TimelineResponse{CorrelationID: corr, Timeline: snap.Timelines[req.CycleID].Clone()}, adaptSettlementEvents(evs), nil
	})
}

// ConfirmDepositRequest is the settlement.deposit_confirmed payload.
type ConfirmDepositRequest struct {
	CycleID    string `json:"cycle_id"`
	IntentID   string `json:"intent_id"`
	DepositRef string `json:"deposit_ref"`
}

// ConfirmDeposit implements settlement.deposit_confirmed.
func (e *Engine) ConfirmDeposit(ctx context.Context, caller Caller, req ConfirmDepositRequest) (TimelineResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return TimelineResponse{}, err
	}
	if err := e.Manifest.Authorize("settlement.deposit_confirmed", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return TimelineResponse{}, err
	}
	corr := correlationID("settlement.deposit_confirmed", caller.IdempotencyKey)
	return operation(e, ctx, "settlement.deposit_confirmed", caller, req, func(snap *state.Snapshot, now time.Time) (TimelineResponse, []pendingEventRecord, error) {
		if err := e.authorize("settlement.deposit_confirmed", caller, nil, nil); err != nil {
			return TimelineResponse{}, nil, err
		}
		evs, err := settlement.ConfirmDeposit(snap, req.CycleID, req.IntentID, caller.Actor, req.DepositRef, now)
		if err != nil {
			return TimelineResponse{}, nil, err
		}
		return TimelineResponse{CorrelationID: corr, Timeline: snap.Timelines[req.CycleID].Clone()}, adaptSettlementEvents(evs), nil
	})
}

// BeginExecutionRequest is the settlement.begin_execution payload.
type BeginExecutionRequest struct {
	CycleID string `json:"cycle_id"`
}

// BeginExecution implements settlement.begin_execution.
func (e *Engine) BeginExecution(ctx context.Context, caller Caller, req BeginExecutionRequest) (TimelineResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return TimelineResponse{}, err
	}
	if err := e.Manifest.Authorize("settlement.begin_execution", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return TimelineResponse{}, err
	}
	corr := correlationID("settlement.begin_execution", caller.IdempotencyKey)
	return operation(e, ctx, "settlement.begin_execution", caller, req, func(snap *state.Snapshot, now time.Time) (TimelineResponse, []pendingEventRecord, error) {
		if err := e.authorize("settlement.begin_execution", caller, nil, nil); err != nil {
			return TimelineResponse{}, nil, err
		}
		evs, err := settlement.BeginExecution(snap, req.CycleID, now)
		if err != nil {
			return TimelineResponse{}, nil, err
		}
		return TimelineResponse{CorrelationID: corr, Timeline: snap.Timelines[req.CycleID].Clone()}, adaptSettlementEvents(evs), nil
	})
}

// CompleteSettlementRequest is the settlement.complete payload.
type CompleteSettlementRequest struct {
	CycleID string `json:"cycle_id"`
}

// CompleteResponse wraps a completed cycle's timeline and signed receipt.
type CompleteResponse struct {
	CorrelationID string          `json:"correlation_id"`
	Timeline      *types.Timeline `json:"timeline"`
	Receipt       *types.Receipt  `json:"receipt"`
}

// CompleteSettlement implements settlement.complete.
func (e *Engine) CompleteSettlement(ctx context.Context, caller Caller, req CompleteSettlementRequest) (CompleteResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return CompleteResponse{}, err
	}
	if err := e.Manifest.Authorize("settlement.complete", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return CompleteResponse{}, err
	}
	corr := correlationID("settlement.complete", caller.IdempotencyKey)
	return operation(e, ctx, "settlement.complete", caller, req, func(snap *state.Snapshot, now time.Time) (CompleteResponse, []pendingEventRecord, error) {
		if err := e.authorize("settlement.complete", caller, nil, nil); err != nil {
			return CompleteResponse{}, nil, err
		}
		evs, receipt, err := settlement.Complete(snap, e.Keys.Receipts, req.CycleID, now)
		if err != nil {
			return CompleteResponse{}, nil, err
		}
		if e.Metrics != nil {
			e.Metrics.SettlementTransitions.WithLabelValues(string(types.TimelineCompleted)).Inc()
		}
		return CompleteResponse{CorrelationID: corr, Timeline: snap.Timelines[req.CycleID].Clone(), Receipt: receipt.Clone()}, adaptSettlementEvents(evs), nil
	})
}

// ExpireDepositWindowRequest is the operator control-plane payload backing
// the deposit-timeout sweep (spec.md §4.3).
type ExpireDepositWindowRequest struct {
	CycleID string `json:"cycle_id"`
}

// ExpireDepositWindow fails a cycle whose deposit window elapsed without
// every leg deposited. This is the operator/scheduler sweep operation
// backing spec.md §4.3's deposit-timeout unwind.
func (e *Engine) ExpireDepositWindow(ctx context.Context, caller Caller, req ExpireDepositWindowRequest) (CompleteResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return CompleteResponse{}, err
	}
	if err := e.Manifest.Authorize("settlement.expire_deposit_window", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return CompleteResponse{}, err
	}
	corr := correlationID("settlement.expire_deposit_window", caller.IdempotencyKey)
	return operation(e, ctx, "settlement.expire_deposit_window", caller, req, func(snap *state.Snapshot, now time.Time) (CompleteResponse, []pendingEventRecord, error) {
		if err := e.authorize("settlement.expire_deposit_window", caller, nil, nil); err != nil {
			return CompleteResponse{}, nil, err
		}
		evs, receipt, err := settlement.ExpireDepositWindow(snap, e.Keys.Receipts, req.CycleID, now)
		if err != nil {
			return CompleteResponse{}, nil, err
		}
		if e.Metrics != nil {
			e.Metrics.SettlementTransitions.WithLabelValues(string(types.TimelineFailed)).Inc()
		}
		return CompleteResponse{CorrelationID: corr, Timeline: snap.Timelines[req.CycleID].Clone(), Receipt: receipt.Clone()}, adaptSettlementEvents(evs), nil
	})
}

// SettlementStatus implements settlement.status, a pure read.
func (e *Engine) SettlementStatus(caller Caller, cycleID string) (*types.Timeline, error) {
	if err := e.Manifest.Authorize("settlement.status", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out *types.Timeline
	var notFound bool
	e.Store.View(func(snap *state.Snapshot) {
		timeline, ok := snap.Timelines[cycleID]
		if !ok {
			notFound = true
			return
		}
		out = timeline.Clone()
	})
	if notFound {
		return nil, engineerr.NotFoundf("timeline for cycle %s not found", cycleID)
	}
	return out, nil
}

// GetReceipt implements receipts.get, a pure read.
func (e *Engine) GetReceipt(caller Caller, receiptID string) (*types.Receipt, error) {
	if err := e.Manifest.Authorize("receipts.get", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out *types.Receipt
	var notFound bool
	e.Store.View(func(snap *state.Snapshot) {
		receipt, ok := snap.Receipts[receiptID]
		if !ok {
			notFound = true
			return
		}
		out = receipt.Clone()
	})
	if notFound {
		return nil, engineerr.NotFoundf("receipt %s not found", receiptID)
	}
	return out, nil
}

func adaptSettlementEvents(evs []settlement.DomainEvent) []pendingEventRecord {
	out := make([]pendingEventRecord, len(evs))
	for i, e := range evs {
		out[i] = pendingEventRecord{Type: e.Type, DedupKey: e.DedupKey, Payload: e.Payload}
	}
	return out
}
