package engine

import (
	"context"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
	"swapmesh/vault"
)

// VaultHoldingResponse wraps a single vault holding for the wire.
type VaultHoldingResponse struct {
	CorrelationID string              `json:"correlation_id"`
	Holding       *types.VaultHolding `json:"holding"`
}

// DepositVaultRequest is the vault.deposit payload.
type DepositVaultRequest struct {
	HoldingID string      `json:"holding_id"`
	VaultID   string      `json:"vault_id"`
	Asset     types.Asset `json:"asset"`
}

// DepositVault implements vault.deposit.
func (e *Engine) DepositVault(ctx context.Context, caller Caller, req DepositVaultRequest) (VaultHoldingResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return VaultHoldingResponse{}, err
	}
	if err := e.Manifest.Authorize("vault.deposit", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return VaultHoldingResponse{}, err
	}
	corr := correlationID("vault.deposit", caller.IdempotencyKey)
	return operation(e, ctx, "vault.deposit", caller, req, func(snap *state.Snapshot, now time.Time) (VaultHoldingResponse, []pendingEventRecord, error) {
		if err := e.authorize("vault.deposit", caller, nil, nil); err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		holding, err := vault.Deposit(snap, req.HoldingID, req.VaultID, req.Asset, caller.Actor, now)
		if err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		return VaultHoldingResponse{CorrelationID: corr, Holding: holding.Clone()}, nil, nil
	})
}

// ReserveVaultRequest is the vault.reserve payload.
type ReserveVaultRequest struct {
	HoldingID     string `json:"holding_id"`
	ReservationID string `json:"reservation_id"`
}

// ReserveVault implements vault.reserve.
func (e *Engine) ReserveVault(ctx context.Context, caller Caller, req ReserveVaultRequest) (VaultHoldingResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return VaultHoldingResponse{}, err
	}
	if err := e.Manifest.Authorize("vault.reserve", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return VaultHoldingResponse{}, err
	}
	corr := correlationID("vault.reserve", caller.IdempotencyKey)
	return operation(e, ctx, "vault.reserve", caller, req, func(snap *state.Snapshot, now time.Time) (VaultHoldingResponse, []pendingEventRecord, error) {
		if err := e.authorize("vault.reserve", caller, nil, nil); err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		holding, err := vault.Reserve(snap, req.HoldingID, req.ReservationID, caller.Actor, now)
		if err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		evs := []pendingEventRecord{{
			Type:     types.EventVaultHoldingReserved,
			DedupKey: req.HoldingID + "|" + req.ReservationID,
			Payload:  map[string]string{"holding_id": req.HoldingID, "reservation_id": req.ReservationID},
		}}
		return VaultHoldingResponse{CorrelationID: corr, Holding: holding.Clone()}, evs, nil
	})
}

// ReleaseVaultRequest is the vault.release payload.
type ReleaseVaultRequest struct {
	HoldingID string `json:"holding_id"`
}

// ReleaseVault implements vault.release.
func (e *Engine) ReleaseVault(ctx context.Context, caller Caller, req ReleaseVaultRequest) (VaultHoldingResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return VaultHoldingResponse{}, err
	}
	if err := e.Manifest.Authorize("vault.release", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return VaultHoldingResponse{}, err
	}
	corr := correlationID("vault.release", caller.IdempotencyKey)
	return operation(e, ctx, "vault.release", caller, req, func(snap *state.Snapshot, now time.Time) (VaultHoldingResponse, []pendingEventRecord, error) {
		if err := e.authorize("vault.release", caller, nil, nil); err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		holding, err := vault.Release(snap, req.HoldingID, now)
		if err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		evs := []pendingEventRecord{{
			Type:     types.EventVaultHoldingReleased,
			DedupKey: req.HoldingID,
			Payload:  map[string]string{"holding_id": req.HoldingID, "reason_code": "released"},
		}}
		return VaultHoldingResponse{CorrelationID: corr, Holding: holding.Clone()}, evs, nil
	})
}

// WithdrawVaultRequest is the vault.withdraw payload.
type WithdrawVaultRequest struct {
	HoldingID string `json:"holding_id"`
}

// WithdrawVault implements vault.withdraw.
func (e *Engine) WithdrawVault(ctx context.Context, caller Caller, req WithdrawVaultRequest) (VaultHoldingResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return VaultHoldingResponse{}, err
	}
	if err := e.Manifest.Authorize("vault.withdraw", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return VaultHoldingResponse{}, err
	}
	corr := correlationID("vault.withdraw", caller.IdempotencyKey)
	return operation(e, ctx, "vault.withdraw", caller, req, func(snap *state.Snapshot, now time.Time) (VaultHoldingResponse, []pendingEventRecord, error) {
		if err := e.authorize("vault.withdraw", caller, nil, nil); err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		holding, err := vault.Withdraw(snap, req.HoldingID, caller.Actor, now)
		if err != nil {
			return VaultHoldingResponse{}, nil, err
		}
		evs := []pendingEventRecord{{
			Type:     types.EventVaultHoldingWithdrawn,
			DedupKey: req.HoldingID,
			Payload:  map[string]string{"holding_id": req.HoldingID},
		}}
		return VaultHoldingResponse{CorrelationID: corr, Holding: holding.Clone()}, evs, nil
	})
}

// GetVaultHolding implements vault.get, a pure read.
func (e *Engine) GetVaultHolding(caller Caller, holdingID string) (*types.VaultHolding, error) {
	if err := e.Manifest.Authorize("vault.get", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out *types.VaultHolding
	var failure error
	e.Store.View(func(snap *state.Snapshot) {
		holding, ok := snap.VaultHoldings[holdingID]
		if !ok {
			failure = engineerr.NotFoundf("vault holding %s not found", holdingID)
			return
		}
		if !holding.OwnerActor.Equal(caller.Actor) && caller.Actor.Type != types.ActorPartner {
			failure = engineerr.Forbiddenf("caller_mismatch", "caller does not own vault holding %s", holdingID)
			return
		}
		out = holding.Clone()
	})
	if failure != nil {
		return nil, failure
	}
	return out, nil
}

// ListVaultHoldings implements vault.list, scoped to holdings the caller
// owns; a partner caller sees every holding.
func (e *Engine) ListVaultHoldings(caller Caller) ([]*types.VaultHolding, error) {
	if err := e.Manifest.Authorize("vault.list", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out []*types.VaultHolding
	e.Store.View(func(snap *state.Snapshot) {
		for _, holding := range snap.VaultHoldings {
			if !holding.OwnerActor.Equal(caller.Actor) && caller.Actor.Type != types.ActorPartner {
				continue
			}
			out = append(out, holding.Clone())
		}
	})
	return out, nil
}
