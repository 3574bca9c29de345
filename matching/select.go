package matching

import (
	"sort"

	"swapmesh/core/types"
)

// SelectDisjoint sorts candidates by (score desc, proposal_id asc), then
// scans once selecting a candidate iff none of its intent ids is already
// used. Returns the selected proposals plus a deterministic decision trace
// for every candidate, in the same sorted order.
func SelectDisjoint(candidates []*types.CycleProposal) ([]*types.CycleProposal, []types.MatchingRunCandidateTrace) {
	ordered := append([]*types.CycleProposal(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].ConfidenceScore != ordered[j].ConfidenceScore {
			return ordered[i].ConfidenceScore > ordered[j].ConfidenceScore
		}
		return ordered[i].ID < ordered[j].ID
	})

	used := make(map[string]bool)
	var selected []*types.CycleProposal
	trace := make([]types.MatchingRunCandidateTrace, 0, len(ordered))

	for _, candidate := range ordered {
		conflict := false
		for _, p := range candidate.Participants {
			if used[p.IntentID] {
				conflict = true
				break
			}
		}
		if conflict {
			trace = append(trace, types.MatchingRunCandidateTrace{ProposalID: candidate.ID, Decision: "conflict_shared_intent"})
			continue
		}
		for _, p := range candidate.Participants {
			used[p.IntentID] = true
		}
		selected = append(selected, candidate)
		trace = append(trace, types.MatchingRunCandidateTrace{ProposalID: candidate.ID, Decision: "selected"})
	}

	return selected, trace
}
