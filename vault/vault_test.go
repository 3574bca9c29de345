package vault

import (
	"testing"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
)

var owner = types.Actor{Type: types.ActorUser, ID: "owner-1"}
var asset = types.Asset{Platform: "steam", AssetID: "x"}

func TestDepositRejectsDuplicateHoldingID(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("first Deposit: %v", err)
	}
	_, err := Deposit(snap, "h1", "vault-1", asset, owner, now)
	if err == nil {
		t.Fatalf("expected duplicate holding id to be rejected")
	}
}

func TestReserveThenReleaseRoundTrips(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	holding, err := Reserve(snap, "h1", "res-1", owner, now)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if holding.Status != types.VaultReserved {
		t.Fatalf("expected reserved status, got %s", holding.Status)
	}
	holding, err = Release(snap, "h1", now)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if holding.Status != types.VaultAvailable {
		t.Fatalf("expected available status after release, got %s", holding.Status)
	}
	if holding.ReservationID != "" {
		t.Fatalf("expected reservation id cleared after release")
	}
}

func TestReserveIsIdempotentUnderSameReservationID(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := Reserve(snap, "h1", "res-1", owner, now); err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	holding, err := Reserve(snap, "h1", "res-1", owner, now)
	if err != nil {
		t.Fatalf("replay Reserve: %v", err)
	}
	if holding.ReservationID != "res-1" {
		t.Fatalf("expected reservation id unchanged on replay")
	}
}

func TestReserveRejectsCallerMismatch(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	other := types.Actor{Type: types.ActorUser, ID: "someone-else"}
	_, err := Reserve(snap, "h1", "res-1", other, now)
	if err == nil {
		t.Fatalf("expected a non-owner reserve to be rejected")
	}
}

func TestReserveRejectsAlreadyReservedUnderDifferentID(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := Reserve(snap, "h1", "res-1", owner, now); err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	_, err := Reserve(snap, "h1", "res-2", owner, now)
	if err == nil {
		t.Fatalf("expected a second distinct reservation to be rejected while already reserved")
	}
}

func TestWithdrawRejectsReservedHolding(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := Reserve(snap, "h1", "res-1", owner, now); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	_, err := Withdraw(snap, "h1", owner, now)
	if err == nil {
		t.Fatalf("expected withdraw of a reserved holding to be rejected")
	}
}

func TestWithdrawIsIdempotent(t *testing.T) {
	snap := state.NewSnapshot()
	now := time.Now()
	if _, err := Deposit(snap, "h1", "vault-1", asset, owner, now); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := Withdraw(snap, "h1", owner, now); err != nil {
		t.Fatalf("first Withdraw: %v", err)
	}
	holding, err := Withdraw(snap, "h1", owner, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("replay Withdraw: %v", err)
	}
	if holding.Status != types.VaultWithdrawn {
		t.Fatalf("expected withdrawn status to persist across replay")
	}
}
