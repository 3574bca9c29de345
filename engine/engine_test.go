package engine

import (
	"testing"
	"time"

	"swapmesh/authz"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/crypto"
	"swapmesh/policy"
)

func testKeyRing(t *testing.T) *crypto.Ring {
	t.Helper()
	_, priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ring, err := crypto.NewRing("key-1", priv, nil)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return ring
}

// fullManifest grants every operation exercised by the engine test suite to
// all three actor types with no required scopes, mirroring a permissive
// test-fixture manifest rather than the production-locked one.
func fullManifest() authz.Manifest {
	allActors := []types.ActorType{types.ActorUser, types.ActorAgent, types.ActorPartner}
	ops := []string{
		"intents.create", "intents.update", "intents.cancel", "intents.get", "intents.list",
		"cycle_proposals.get", "cycle_proposals.list", "cycle_proposals.accept", "cycle_proposals.decline",
		"marketplace.matching.runs.create", "marketplace.matching.runs.get",
		"settlement.start", "settlement.deposit_confirmed", "settlement.begin_execution",
		"settlement.complete", "settlement.expire_deposit_window", "settlement.status", "receipts.get",
		"delegations.mint", "delegations.revoke", "delegations.list",
		"vault.deposit", "vault.reserve", "vault.release", "vault.withdraw", "vault.get", "vault.list",
		"webhooks.proposals.ingest", "health.read",
	}
	m := make(authz.Manifest, len(ops))
	for _, op := range ops {
		m[op] = authz.OperationRule{AllowedActorTypes: allActors}
	}
	return m
}

// testEngine constructs a fully wired Engine over an in-memory store with a
// fresh key ring per ring slot and a permissive manifest, fixed to the
// supplied clock.
func testEngine(t *testing.T, now func() time.Time) *Engine {
	t.Helper()
	store := state.OpenMemory()
	keys := KeyRings{
		Events:      testKeyRing(t),
		Receipts:    testKeyRing(t),
		Delegations: testKeyRing(t),
		Consent:     testKeyRing(t),
	}
	e := New(store, keys, fullManifest(), policy.ConsentEnforcement{}, nil, nil, nil, now)
	return e
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
