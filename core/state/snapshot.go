// Package state implements the durable, append-only snapshot of all engine
// state under one lock: the single logical writer described in spec §5.
// Every entity family named in the wire persisted-state layout lives here.
package state

import "swapmesh/core/types"

// Snapshot is one point-in-time view of every entity family the engine
// owns. Handlers mutate records in place through the pointers held in
// these maps; the snapshot can always be canonically serialized.
type Snapshot struct {
	Intents      map[string]*types.SwapIntent    `json:"intents"`
	Proposals    map[string]*types.CycleProposal `json:"proposals"`
	Commits      map[string]*types.Commit        `json:"commits"`
	Reservations map[string]*types.Reservation    `json:"reservations"`
	Timelines    map[string]*types.Timeline       `json:"timelines"`
	Receipts     map[string]*types.Receipt        `json:"receipts"`
	Delegations  map[string]*types.Delegation     `json:"delegations"`

	Tenancy types.Tenancy `json:"tenancy"`

	Events []*types.Event `json:"events"`

	Idempotency map[string]*types.IdempotencyRecord `json:"idempotency"`

	VaultHoldings map[string]*types.VaultHolding `json:"vault_holdings"`
	VaultEvents   []*types.Event                 `json:"vault_events"`

	// PolicySpendDaily is keyed subject -> YYYY-MM-DD -> summed max_usd.
	PolicySpendDaily map[string]map[string]float64 `json:"policy_spend_daily"`
	// PolicyConsentReplay is the set of observed
	// "consent_id|subject|delegation_id|nonce" replay keys.
	PolicyConsentReplay map[string]bool `json:"policy_consent_replay"`

	Delivery struct {
		WebhookSeenEventIDs map[string]bool `json:"webhook_seen_event_ids"`
	} `json:"delivery"`

	MatchingRuns map[string]*types.MatchingRun `json:"matching_runs"`

	// PausedModules records operator-paused logical modules
	// ("matching", "commit", "settlement", "vault", "delegation").
	PausedModules map[string]bool `json:"paused_modules"`
}

// NewSnapshot returns an empty, fully initialized snapshot.
func NewSnapshot() *Snapshot {
	s := &Snapshot{
		Intents:             make(map[string]*types.SwapIntent),
		Proposals:           make(map[string]*types.CycleProposal),
		Commits:             make(map[string]*types.Commit),
		Reservations:        make(map[string]*types.Reservation),
		Timelines:           make(map[string]*types.Timeline),
		Receipts:            make(map[string]*types.Receipt),
		Delegations:         make(map[string]*types.Delegation),
		Idempotency:         make(map[string]*types.IdempotencyRecord),
		VaultHoldings:       make(map[string]*types.VaultHolding),
		PolicySpendDaily:    make(map[string]map[string]float64),
		PolicyConsentReplay: make(map[string]bool),
		MatchingRuns:        make(map[string]*types.MatchingRun),
		PausedModules:       make(map[string]bool),
	}
	s.Tenancy.Cycles = make(map[string]string)
	s.Tenancy.Proposals = make(map[string]string)
	s.Delivery.WebhookSeenEventIDs = make(map[string]bool)
	return s
}

// IsPaused implements native common.PauseView-style gating for a logical
// module name.
func (s *Snapshot) IsPaused(module string) bool {
	if s == nil || s.PausedModules == nil {
		return false
	}
	return s.PausedModules[module]
}
