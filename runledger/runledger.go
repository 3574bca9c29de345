// Package runledger persists matching.Result batches as types.MatchingRun
// records (spec.md §6 "marketplace.matching.runs.*").
package runledger

import (
	"time"

	"swapmesh/core/idgen"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/matching"
)

// Record stores result as a new MatchingRun, persists every selected
// proposal into the snapshot, and returns the run.
func Record(snap *state.Snapshot, result matching.Result, partnerID string, now time.Time) *types.MatchingRun {
	proposalIDs := make([]string, len(result.Selected))
	for i, p := range result.Selected {
		snap.Proposals[p.ID] = p
		proposalIDs[i] = p.ID
	}

	runID := idgen.HexPrefix12([]byte(now.Format(time.RFC3339Nano) + "|" + partnerID))
	run := &types.MatchingRun{
		ID:          runID,
		PartnerID:   partnerID,
		ProposalIDs: proposalIDs,
		Diagnostics: result.Diagnostics,
		CreatedAt:   now,
	}
	snap.MatchingRuns[runID] = run
	return run
}

// Get looks up a previously recorded run by id.
func Get(snap *state.Snapshot, runID string) (*types.MatchingRun, bool) {
	run, ok := snap.MatchingRuns[runID]
	return run, ok
}
