package types

// WantSpecType tags the algebraic WantSpec union.
type WantSpecType string

const (
	WantSpecSet            WantSpecType = "set"
	WantSpecSpecificAsset  WantSpecType = "specific_asset"
	WantSpecCategory       WantSpecType = "category"
)

// CategoryConstraints narrows a category want to specific acceptable
// conditions. Only AcceptableWear is defined by the spec today; the slice is
// logically OR'd against the offered asset's wear metadata.
type CategoryConstraints struct {
	AcceptableWear []string `json:"acceptable_wear,omitempty"`
}

// WantSpec is a tagged union: exactly one of the type-specific fields is
// populated, selected by Type. Dispatch is by tag, never by dynamic type.
type WantSpec struct {
	Type WantSpecType `json:"type"`

	// set
	AnyOf []WantSpec `json:"any_of,omitempty"`

	// specific_asset
	Platform string `json:"platform,omitempty"`
	AssetKey string `json:"asset_key,omitempty"`

	// category (Platform above is reused for this variant too)
	AppID       string                `json:"app_id,omitempty"`
	Category    string                `json:"category,omitempty"`
	Constraints *CategoryConstraints  `json:"constraints,omitempty"`
}
