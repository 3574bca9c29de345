package matching

import (
	"strings"

	"swapmesh/core/types"
)

// Satisfies reports whether offer satisfies want, per spec.md §4.1.
func Satisfies(want types.WantSpec, offer []types.Asset) bool {
	switch want.Type {
	case types.WantSpecSpecificAsset:
		for _, a := range offer {
			if a.Platform != want.Platform {
				continue
			}
			if matchesAssetKey(a, want.AssetKey) {
				return true
			}
		}
		return false
	case types.WantSpecCategory:
		for _, a := range offer {
			if a.Platform != want.Platform {
				continue
			}
			if a.AppID != want.AppID {
				continue
			}
			if a.Category() != want.Category {
				continue
			}
			if !satisfiesConstraints(a, want.Constraints) {
				continue
			}
			return true
		}
		return false
	case types.WantSpecSet:
		if len(want.AnyOf) == 0 {
			return false
		}
		for _, sub := range want.AnyOf {
			if Satisfies(sub, offer) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// matchesAssetKey compares an asset against a want's asset_key, honoring the
// optional "steam:" prefix convention; a literal match is accepted when the
// prefix is omitted.
func matchesAssetKey(a types.Asset, assetKey string) bool {
	if rest, ok := strings.CutPrefix(assetKey, "steam:"); ok {
		return a.AssetID == rest
	}
	return a.AssetID == assetKey
}

func satisfiesConstraints(a types.Asset, constraints *types.CategoryConstraints) bool {
	if constraints == nil {
		return true
	}
	if len(constraints.AcceptableWear) > 0 {
		wear := a.Wear()
		found := false
		for _, w := range constraints.AcceptableWear {
			if w == wear {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
