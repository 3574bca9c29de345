package engine

import (
	"context"
	"time"

	"swapmesh/commit"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
	"swapmesh/tenancy"
)

// ProposalResponse wraps a single proposal for the wire.
type ProposalResponse struct {
	CorrelationID string                `json:"correlation_id"`
	Proposal      *types.CycleProposal  `json:"proposal"`
	Commit        *types.Commit         `json:"commit,omitempty"`
}

func participantActors(p *types.CycleProposal) []types.Actor {
	actors := make([]types.Actor, len(p.Participants))
	for i, part := range p.Participants {
		actors[i] = part.Actor
	}
	return actors
}

// GetProposal implements cycle_proposals.get.
func (e *Engine) GetProposal(caller Caller, proposalID string) (ProposalResponse, error) {
	if err := e.Manifest.Authorize("cycle_proposals.get", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return ProposalResponse{}, err
	}
	var resp ProposalResponse
	var failure error
	e.Store.View(func(snap *state.Snapshot) {
		proposal, ok := snap.Proposals[proposalID]
		if !ok {
			failure = engineerr.NotFoundf("proposal %s not found", proposalID)
			return
		}
		if err := tenancy.CanRead(snap, proposalID, caller.Actor, participantActors(proposal)); err != nil {
			failure = err
			return
		}
		resp.Proposal = proposal.Clone()
		if c, ok := snap.Commits[proposalID]; ok {
			resp.Commit = c.Clone()
		}
	})
	if failure != nil {
		return ProposalResponse{}, failure
	}
	return resp, nil
}

// ListProposals implements cycle_proposals.list, scoped to proposals the
// caller participates in (or, for a partner, proposals it recorded).
func (e *Engine) ListProposals(caller Caller) ([]*types.CycleProposal, error) {
	if err := e.Manifest.Authorize("cycle_proposals.list", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out []*types.CycleProposal
	e.Store.View(func(snap *state.Snapshot) {
		for id, proposal := range snap.Proposals {
			if tenancy.CanRead(snap, id, caller.Actor, participantActors(proposal)) != nil {
				continue
			}
			out = append(out, proposal.Clone())
		}
	})
	return out, nil
}

// AcceptDeclineRequest is the cycle_proposals.{accept,decline} payload.
type AcceptDeclineRequest struct {
	ProposalID string `json:"proposal_id"`
	IntentID   string `json:"intent_id"`
}

// AcceptProposal implements cycle_proposals.accept.
func (e *Engine) AcceptProposal(ctx context.Context, caller Caller, req AcceptDeclineRequest) (ProposalResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return ProposalResponse{}, err
	}
	if err := e.Manifest.Authorize("cycle_proposals.accept", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return ProposalResponse{}, err
	}
	corr := correlationID("cycle_proposals.accept", caller.IdempotencyKey)
	return operation(e, ctx, "cycle_proposals.accept", caller, req, func(snap *state.Snapshot, now time.Time) (ProposalResponse, []pendingEventRecord, error) {
		if err := e.authorize("cycle_proposals.accept", caller, nil, nil); err != nil {
			return ProposalResponse{}, nil, err
		}
		evs, err := commit.Accept(snap, req.ProposalID, req.IntentID, caller.Actor, now)
		if err != nil {
			return ProposalResponse{}, nil, err
		}
		resp, err := e.proposalResponse(snap, corr, req.ProposalID)
		if err != nil {
			return ProposalResponse{}, nil, err
		}
		return resp, adaptCommitEvents(evs), nil
	})
}

// DeclineProposal implements cycle_proposals.decline.
func (e *Engine) DeclineProposal(ctx context.Context, caller Caller, req AcceptDeclineRequest) (ProposalResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return ProposalResponse{}, err
	}
	if err := e.Manifest.Authorize("cycle_proposals.decline", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return ProposalResponse{}, err
	}
	corr := correlationID("cycle_proposals.decline", caller.IdempotencyKey)
	return operation(e, ctx, "cycle_proposals.decline", caller, req, func(snap *state.Snapshot, now time.Time) (ProposalResponse, []pendingEventRecord, error) {
		if err := e.authorize("cycle_proposals.decline", caller, nil, nil); err != nil {
			return ProposalResponse{}, nil, err
		}
		evs, err := commit.Decline(snap, req.ProposalID, req.IntentID, caller.Actor, now)
		if err != nil {
			return ProposalResponse{}, nil, err
		}
		resp, err := e.proposalResponse(snap, corr, req.ProposalID)
		if err != nil {
			return ProposalResponse{}, nil, err
		}
		return resp, adaptCommitEvents(evs), nil
	})
}

func (e *Engine) proposalResponse(snap *state.Snapshot, corr, proposalID string) (ProposalResponse, error) {
	proposal, ok := snap.Proposals[proposalID]
	if !ok {
		return ProposalResponse{}, engineerr.NotFoundf("proposal %s not found", proposalID)
	}
	resp := ProposalResponse{CorrelationID: corr, Proposal: proposal.Clone()}
	if c, ok := snap.Commits[proposalID]; ok {
		resp.Commit = c.Clone()
	}
	return resp, nil
}

func adaptCommitEvents(evs []commit.DomainEvent) []pendingEventRecord {
	out := make([]pendingEventRecord, len(evs))
	for i, e := range evs {
		out[i] = pendingEventRecord{Type: e.Type, DedupKey: e.DedupKey, Payload: e.Payload}
	}
	return out
}
