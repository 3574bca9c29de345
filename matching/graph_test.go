package matching

import (
	"testing"
	"time"

	"swapmesh/core/types"
)

func makeIntent(id, wantAssetID string, offerAssetID string, minUSD, maxUSD float64) *types.SwapIntent {
	return &types.SwapIntent{
		ID:     id,
		Actor:  types.Actor{Type: types.ActorUser, ID: id},
		Offer:  []types.Asset{{Platform: "steam", AssetID: offerAssetID}},
		WantSpec: types.WantSpec{
			Type: types.WantSpecSpecificAsset, Platform: "steam", AssetKey: wantAssetID,
		},
		ValueBand:        types.ValueBand{MinUSD: minUSD, MaxUSD: maxUSD},
		TrustConstraints: types.TrustConstraints{MaxCycleLength: 3},
		TimeConstraints:  types.TimeConstraints{ExpiresAt: time.Now().Add(24 * time.Hour)},
		Status:           types.IntentActive,
	}
}

func TestBuildGraphTwoWayEdge(t *testing.T) {
	now := time.Now()
	intents := map[string]*types.SwapIntent{
		"a": makeIntent("a", "asset_2", "asset_1", 80, 120),
		"b": makeIntent("b", "asset_1", "asset_2", 80, 120),
	}
	values := AssetValues{"steam:asset_1": 100, "steam:asset_2": 101}
	g := Build(intents, values, now)
	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges["a"]) != 1 || g.Edges["a"][0] != "b" {
		t.Fatalf("expected a->b edge, got %v", g.Edges["a"])
	}
	if len(g.Edges["b"]) != 1 || g.Edges["b"][0] != "a" {
		t.Fatalf("expected b->a edge, got %v", g.Edges["b"])
	}
}

func TestBuildGraphExcludesExpiredAndInactive(t *testing.T) {
	now := time.Now()
	expired := makeIntent("a", "asset_2", "asset_1", 0, 0)
	expired.TimeConstraints.ExpiresAt = now.Add(-time.Hour)
	cancelled := makeIntent("b", "asset_1", "asset_2", 0, 0)
	cancelled.Status = types.IntentCancelled

	intents := map[string]*types.SwapIntent{"a": expired, "b": cancelled}
	g := Build(intents, AssetValues{}, now)
	if len(g.Nodes) != 0 {
		t.Fatalf("expected no active nodes, got %v", g.Nodes)
	}
}

func TestBuildGraphRejectsOutOfBandValue(t *testing.T) {
	now := time.Now()
	intents := map[string]*types.SwapIntent{
		"a": makeIntent("a", "asset_2", "asset_1", 80, 120),
		"b": makeIntent("b", "asset_1", "asset_2", 80, 120),
	}
	values := AssetValues{"steam:asset_1": 100, "steam:asset_2": 500}
	g := Build(intents, values, now)
	if len(g.Edges["a"]) != 0 {
		t.Fatalf("expected no edge a->b when b's value exceeds a's band, got %v", g.Edges["a"])
	}
}

func TestContainsTreatsZeroMaxAsUnbounded(t *testing.T) {
	band := types.ValueBand{MinUSD: 10, MaxUSD: 0}
	if !contains(band, 1_000_000) {
		t.Fatalf("expected MaxUSD=0 to mean unbounded upper limit")
	}
	if contains(band, 5) {
		t.Fatalf("expected value below MinUSD to fail")
	}
}
