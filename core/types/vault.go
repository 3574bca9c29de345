package types

import "time"

// VaultHoldingStatus is the tagged status of a vault holding.
type VaultHoldingStatus string

const (
	VaultAvailable VaultHoldingStatus = "available"
	VaultReserved  VaultHoldingStatus = "reserved"
	VaultWithdrawn VaultHoldingStatus = "withdrawn"
)

// VaultHolding is a pre-deposited asset record the engine may bind to a
// settlement leg in place of a manual deposit.
type VaultHolding struct {
	HoldingID         string             `json:"holding_id"`
	VaultID           string             `json:"vault_id"`
	Asset             Asset              `json:"asset"`
	OwnerActor        Actor              `json:"owner_actor"`
	Status            VaultHoldingStatus `json:"status"`
	ReservationID     string             `json:"reservation_id,omitempty"`
	SettlementCycleID string             `json:"settlement_cycle_id,omitempty"`
	DepositedAt       time.Time          `json:"deposited_at"`
	WithdrawnAt       *time.Time         `json:"withdrawn_at,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the holding.
func (h *VaultHolding) Clone() *VaultHolding {
	if h == nil {
		return nil
	}
	clone := *h
	if h.WithdrawnAt != nil {
		t := *h.WithdrawnAt
		clone.WithdrawnAt = &t
	}
	return &clone
}
