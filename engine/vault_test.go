package engine

import (
	"context"
	"testing"
	"time"

	"swapmesh/core/types"
)

func TestVaultDepositReserveReleaseWithdrawThroughEngine(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	owner := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "u1"}, IdempotencyKey: "key-deposit"}

	deposited, err := e.DepositVault(context.Background(), owner, DepositVaultRequest{
		HoldingID: "holding-1", VaultID: "vault-1", Asset: types.Asset{Platform: "steam", AssetID: "x"},
	})
	if err != nil {
		t.Fatalf("DepositVault: %v", err)
	}
	if deposited.Holding.HoldingID != "holding-1" {
		t.Fatalf("expected the deposited holding id to round-trip, got %s", deposited.Holding.HoldingID)
	}

	owner.IdempotencyKey = "key-reserve"
	reserved, err := e.ReserveVault(context.Background(), owner, ReserveVaultRequest{HoldingID: "holding-1", ReservationID: "res-1"})
	if err != nil {
		t.Fatalf("ReserveVault: %v", err)
	}
	_ = reserved

	stranger := Caller{Actor: types.Actor{Type: types.ActorUser, ID: "u2"}, IdempotencyKey: "key-stranger"}
	if _, err := e.GetVaultHolding(stranger, "holding-1"); err == nil {
		t.Fatalf("expected a non-owner to be rejected from reading the holding")
	}
	if _, err := e.WithdrawVault(context.Background(), owner, WithdrawVaultRequest{HoldingID: "holding-1"}); err == nil {
		t.Fatalf("expected withdrawing a reserved holding to be rejected")
	}

	owner.IdempotencyKey = "key-release"
	if _, err := e.ReleaseVault(context.Background(), owner, ReleaseVaultRequest{HoldingID: "holding-1"}); err != nil {
		t.Fatalf("ReleaseVault: %v", err)
	}

	owner.IdempotencyKey = "key-withdraw"
	withdrawn, err := e.WithdrawVault(context.Background(), owner, WithdrawVaultRequest{HoldingID: "holding-1"})
	if err != nil {
		t.Fatalf("WithdrawVault: %v", err)
	}
	if withdrawn.Holding.HoldingID != "holding-1" {
		t.Fatalf("expected the withdrawn response to reference the same holding")
	}

	list, err := e.ListVaultHoldings(owner)
	if err != nil {
		t.Fatalf("ListVaultHoldings: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected the owner to see exactly one vault holding, got %d", len(list))
	}
}
