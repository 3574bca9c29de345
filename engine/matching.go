package engine

import (
	"context"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
	"swapmesh/matching"
	"swapmesh/runledger"
	"swapmesh/tenancy"
)

// CreateMatchingRunRequest is the marketplace.matching.runs.create payload.
// AssetValuesUSD keys are asset fingerprints ("platform:asset_id").
type CreateMatchingRunRequest struct {
	AssetValuesUSD      map[string]float64 `json:"asset_values_usd"`
	MinCycleLength      int                `json:"min_cycle_length,omitempty"`
	MaxCycleLength      int                `json:"max_cycle_length,omitempty"`
	MaxEnumeratedCycles int                `json:"max_enumerated_cycles,omitempty"`
	TimeoutMS           int                `json:"timeout_ms,omitempty"`
}

// MatchingRunResponse wraps a persisted matching run for the wire.
type MatchingRunResponse struct {
	CorrelationID string             `json:"correlation_id"`
	Run           *types.MatchingRun `json:"run"`
	Proposals     []*types.CycleProposal `json:"proposals,omitempty"`
}

// CreateMatchingRun implements marketplace.matching.runs.create. Only a
// partner actor may trigger a run (the manifest enforces this); the run is
// scoped to that partner for subsequent tenancy checks.
func (e *Engine) CreateMatchingRun(ctx context.Context, caller Caller, req CreateMatchingRunRequest) (MatchingRunResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return MatchingRunResponse{}, err
	}
	if err := e.Manifest.Authorize("marketplace.matching.runs.create", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return MatchingRunResponse{}, err
	}
	corr := correlationID("marketplace.matching.runs.create", caller.IdempotencyKey)
	return operation(e, ctx, "marketplace.matching.runs.create", caller, req, func(snap *state.Snapshot, now time.Time) (MatchingRunResponse, []pendingEventRecord, error) {
		if err := e.authorize("marketplace.matching.runs.create", caller, nil, nil); err != nil {
			return MatchingRunResponse{}, nil, err
		}

		opts := matching.DefaultOptions(now)
		if req.MinCycleLength > 0 {
			opts.MinCycleLength = req.MinCycleLength
		}
		if req.MaxCycleLength > 0 {
			opts.MaxCycleLength = req.MaxCycleLength
		}
		opts.MaxEnumeratedCycles = req.MaxEnumeratedCycles
		if req.TimeoutMS > 0 {
			opts.Timeout = time.Duration(req.TimeoutMS) * time.Millisecond
		}

		result, err := matching.Run(snap.Intents, matching.AssetValues(req.AssetValuesUSD), opts)
		if err != nil {
			return MatchingRunResponse{}, nil, err
		}
		if e.Metrics != nil {
			e.Metrics.MatchingCandidates.Observe(float64(result.Diagnostics.Candidates))
			e.Metrics.MatchingSelected.Observe(float64(result.Diagnostics.Selected))
		}

		partnerID := ""
		if caller.Actor.Type == types.ActorPartner {
			partnerID = caller.Actor.ID
		}
		run := runledger.Record(snap, result, partnerID, now)
		for _, p := range result.Selected {
			tenancy.RecordProposal(snap, p.ID, partnerID)
		}

		evs := make([]pendingEventRecord, 0, len(result.Selected))
		for _, p := range result.Selected {
			evs = append(evs, pendingEventRecord{
				Type:     types.EventProposalCreated,
				DedupKey: p.ID,
				Payload:  map[string]string{"proposal_id": p.ID, "run_id": run.ID},
			})
		}

		return MatchingRunResponse{CorrelationID: corr, Run: run, Proposals: result.Selected}, evs, nil
	})
}

// GetMatchingRun implements marketplace.matching.runs.get, a pure read; a
// partner caller other than the run's recording partner is refused.
func (e *Engine) GetMatchingRun(caller Caller, runID string) (*types.MatchingRun, error) {
	if err := e.Manifest.Authorize("marketplace.matching.runs.get", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out *types.MatchingRun
	var forbidden, notFound error
	e.Store.View(func(snap *state.Snapshot) {
		run, ok := runledger.Get(snap, runID)
		if !ok {
			notFound = engineerr.NotFoundf("matching run %s not found", runID)
			return
		}
		if run.PartnerID != "" && caller.Actor.Type == types.ActorPartner && caller.Actor.ID != run.PartnerID {
			forbidden = engineerr.Forbiddenf("tenancy_scope", "caller is not the recording partner of run %s", runID)
			return
		}
		out = run.Clone()
	})
	if notFound != nil {
		return nil, notFound
	}
	if forbidden != nil {
		return nil, forbidden
	}
	return out, nil
}
