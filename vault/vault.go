// Package vault implements the pre-deposited asset holding lifecycle that
// settlement legs can bind to in place of a manual deposit (spec.md §4.3,
// §9 glossary "Vault holding").
package vault

import (
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
)

// Deposit registers a new available holding for owner.
func Deposit(snap *state.Snapshot, holdingID, vaultID string, asset types.Asset, owner types.Actor, now time.Time) (*types.VaultHolding, error) {
	if _, exists := snap.VaultHoldings[holdingID]; exists {
		return nil, engineerr.Conflictf("vault holding %s already exists", holdingID)
	}
	holding := &types.VaultHolding{
		HoldingID:   holdingID,
		VaultID:     vaultID,
		Asset:       asset,
		OwnerActor:  owner,
		Status:      types.VaultAvailable,
		DepositedAt: now,
		UpdatedAt:   now,
	}
	snap.VaultHoldings[holdingID] = holding
	return holding, nil
}

// Reserve marks an available holding reserved under reservationID, making it
// eligible to bind a settlement leg via settlement.Start.
func Reserve(snap *state.Snapshot, holdingID, reservationID string, caller types.Actor, now time.Time) (*types.VaultHolding, error) {
	holding, ok := snap.VaultHoldings[holdingID]
	if !ok {
		return nil, engineerr.NotFoundf("vault holding %s not found", holdingID)
	}
	if !holding.OwnerActor.Equal(caller) {
		return nil, engineerr.Forbiddenf("caller_mismatch", "caller does not own vault holding %s", holdingID)
	}
	if holding.Status == types.VaultReserved && holding.ReservationID == reservationID {
		return holding, nil
	}
	if holding.Status != types.VaultAvailable {
		return nil, engineerr.ConstraintViolationf("vault holding %s is not available", holdingID)
	}
	holding.Status = types.VaultReserved
	holding.ReservationID = reservationID
	holding.UpdatedAt = now
	return holding, nil
}

// Release returns a reserved holding to available, e.g. when a competing
// cycle wins the intent or a deposit window expires without the holding
// being consumed by settlement.Complete.
func Release(snap *state.Snapshot, holdingID string, now time.Time) (*types.VaultHolding, error) {
	holding, ok := snap.VaultHoldings[holdingID]
	if !ok {
		return nil, engineerr.NotFoundf("vault holding %s not found", holdingID)
	}
	if holding.Status != types.VaultReserved {
		return holding, nil
	}
	holding.Status = types.VaultAvailable
	holding.ReservationID = ""
	holding.SettlementCycleID = ""
	holding.UpdatedAt = now
	return holding, nil
}

// Withdraw removes an available holding from the vault permanently. A
// reserved holding cannot be withdrawn directly; an already-withdrawn
// holding is returned unchanged. settlement.Complete withdraws consumed
// holdings itself.
func Withdraw(snap *state.Snapshot, holdingID string, caller types.Actor, now time.Time) (*types.VaultHolding, error) {
	holding, ok := snap.VaultHoldings[holdingID]
	if !ok {
		return nil, engineerr.NotFoundf("vault holding %s not found", holdingID)
	}
	if !holding.OwnerActor.Equal(caller) {
		return nil, engineerr.Forbiddenf("caller_mismatch", "caller does not own vault holding %s", holdingID)
	}
	if holding.Status == types.VaultWithdrawn {
		return holding, nil
	}
	if holding.Status != types.VaultAvailable {
		return nil, engineerr.ConstraintViolationf("vault holding %s is reserved and cannot be withdrawn", holdingID)
	}
	holding.Status = types.VaultWithdrawn
	t := now
	holding.WithdrawnAt = &t
	holding.UpdatedAt = now
	return holding, nil
}
