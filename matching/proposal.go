package matching

import (
	"time"

	"swapmesh/core/idgen"
	"swapmesh/core/types"
)

// ErrCycleLengthExceeded is returned by BuildProposal when a participant's
// max_cycle_length is smaller than the cycle's length.
type ErrCycleLengthExceeded struct {
	IntentID string
	Length   int
	Max      int
}

func (e *ErrCycleLengthExceeded) Error() string {
	return "matching: participant " + e.IntentID + " max_cycle_length exceeded"
}

// BuildProposal packages a canonical cycle (intent ids in cycle order) into
// a scored CycleProposal, per spec.md §4.1. now is used as CreatedAt.
func BuildProposal(cycle []string, intents map[string]*types.SwapIntent, values AssetValues, now time.Time) (*types.CycleProposal, error) {
	n := len(cycle)
	participants := make([]types.ProposalParticipant, n)
	getValues := make([]float64, n)
	var earliestExpiry time.Time

	for k, intentID := range cycle {
		intent := intents[intentID]
		nextIntent := intents[cycle[(k+1)%n]]
		if intent.TrustConstraints.MaxCycleLength < n {
			return nil, &ErrCycleLengthExceeded{IntentID: intentID, Length: n, Max: intent.TrustConstraints.MaxCycleLength}
		}
		participants[k] = types.ProposalParticipant{
			IntentID: intentID,
			Actor:    intent.Actor,
			Give:     append([]types.Asset(nil), intent.Offer...),
			Get:      append([]types.Asset(nil), nextIntent.Offer...),
		}
		getValues[k] = values.ValueOf(nextIntent.Offer)
		expiry := intent.TimeConstraints.ExpiresAt
		if !expiry.IsZero() && (earliestExpiry.IsZero() || expiry.Before(earliestExpiry)) {
			earliestExpiry = expiry
		}
	}

	valueSpread := computeValueSpread(getValues)
	base := 0.9
	if n != 2 {
		base = 0.85
	}
	score := round(clamp01(base-valueSpread), 4)

	fees := make([]types.FeeEntry, n)
	for k, participant := range participants {
		fees[k] = types.FeeEntry{IntentID: participant.IntentID, AmountUSD: round(getValues[k]*0.01, 2)}
	}

	proposalID, err := idgen.ProposalID(cycle)
	if err != nil {
		return nil, err
	}

	return &types.CycleProposal{
		ID:              proposalID,
		ExpiresAt:       earliestExpiry,
		Participants:    participants,
		ConfidenceScore: score,
		ValueSpread:     valueSpread,
		FeeBreakdown:    fees,
		Explainability: types.Explainability{
			CycleLength: n,
			BaseScore:   base,
			ValueSpread: valueSpread,
		},
		CreatedAt: now,
	}, nil
}

func computeValueSpread(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max, min := values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	if max <= 0 {
		return 0
	}
	return round((max-min)/max, 4)
}
