package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
	"swapmesh/policy"
)

// CreateIntentRequest is the intents.create payload.
type CreateIntentRequest struct {
	Offer                 []types.Asset               `json:"offer"`
	WantSpec              types.WantSpec              `json:"want_spec"`
	ValueBand             types.ValueBand             `json:"value_band"`
	TrustConstraints      types.TrustConstraints      `json:"trust_constraints"`
	TimeConstraints       types.TimeConstraints       `json:"time_constraints"`
	SettlementPreferences types.SettlementPreferences `json:"settlement_preferences"`
	Consent               *types.UserConsent          `json:"user_consent,omitempty"`
}

// IntentResponse wraps a single intent for the wire.
type IntentResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Intent        *types.SwapIntent `json:"intent"`
}

// CreateIntent implements intents.create.
func (e *Engine) CreateIntent(ctx context.Context, caller Caller, req CreateIntentRequest) (IntentResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return IntentResponse{}, err
	}
	if err := e.Manifest.Authorize("intents.create", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return IntentResponse{}, err
	}
	corr := correlationID("intents.create", caller.IdempotencyKey)
	return operation(e, ctx, "intents.create", caller, req, func(snap *state.Snapshot, now time.Time) (IntentResponse, []pendingEventRecord, error) {
		delegation := caller.Delegation
		if delegation == nil && caller.Actor.Type == types.ActorAgent {
			return IntentResponse{}, nil, engineerr.Forbiddenf("delegation_required", "agent actor requires a delegation to create intents")
		}

		candidate := &types.SwapIntent{
			Offer:                 req.Offer,
			WantSpec:              req.WantSpec,
			ValueBand:             req.ValueBand,
			TrustConstraints:      req.TrustConstraints,
			TimeConstraints:       req.TimeConstraints,
			SettlementPreferences: req.SettlementPreferences,
			Status:                types.IntentActive,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		subject := caller.Actor
		if delegation != nil {
			subject = delegation.SubjectActor
		}
		candidate.Actor = subject

		if err := e.authorize("intents.create", caller, candidate, nil); err != nil {
			return IntentResponse{}, nil, err
		}

		if delegation != nil {
			if err := policy.CheckDailyCap(snap, subject.Key(), nil, candidate, delegation.Policy.MaxValuePerDayUSD, now); err != nil {
				return IntentResponse{}, nil, err
			}
			if err := policy.EvaluateHighValueConsent(snap, e.Keys.Consent, e.Consent, req.Consent, subject.Key(), delegation.DelegationID, "", "intents.create", candidate.ValueBand.MaxUSD, delegation.Policy.HighValueConsentThresholdUSD, now); err != nil {
				return IntentResponse{}, nil, err
			}
		}

		candidate.ID = "intent_" + uuid.NewString()
		snap.Intents[candidate.ID] = candidate

		return IntentResponse{CorrelationID: corr, Intent: candidate.Clone()}, nil, nil
	})
}

// UpdateIntentRequest is the intents.update payload. Only value_band and
// time_constraints may be revised after creation; offer/want_spec are
// immutable (cancel and recreate to change what an intent trades).
type UpdateIntentRequest struct {
	IntentID        string                `json:"intent_id"`
	ValueBand       types.ValueBand       `json:"value_band"`
	TimeConstraints types.TimeConstraints `json:"time_constraints"`
	Consent         *types.UserConsent    `json:"user_consent,omitempty"`
}

// UpdateIntent implements intents.update.
func (e *Engine) UpdateIntent(ctx context.Context, caller Caller, req UpdateIntentRequest) (IntentResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return IntentResponse{}, err
	}
	if err := e.Manifest.Authorize("intents.update", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return IntentResponse{}, err
	}
	corr := correlationID("intents.update", caller.IdempotencyKey)
	return operation(e, ctx, "intents.update", caller, req, func(snap *state.Snapshot, now time.Time) (IntentResponse, []pendingEventRecord, error) {
		existing, ok := snap.Intents[req.IntentID]
		if !ok {
			return IntentResponse{}, nil, engineerr.NotFoundf("intent %s not found", req.IntentID)
		}
		if !existing.Actor.Equal(caller.Actor) && caller.Delegation == nil {
			return IntentResponse{}, nil, engineerr.Forbiddenf("caller_mismatch", "caller does not own intent %s", req.IntentID)
		}
		if existing.Status != types.IntentActive {
			return IntentResponse{}, nil, engineerr.ConstraintViolationf("intent %s is not active", req.IntentID)
		}

		previous := existing.Clone()
		updated := existing.Clone()
		updated.ValueBand = req.ValueBand
		updated.TimeConstraints = req.TimeConstraints
		updated.UpdatedAt = now

		if err := e.authorize("intents.update", caller, updated, nil); err != nil {
			return IntentResponse{}, nil, err
		}
		if delegation := caller.Delegation; delegation != nil {
			if err := policy.CheckDailyCap(snap, delegation.SubjectActor.Key(), previous, updated, delegation.Policy.MaxValuePerDayUSD, now); err != nil {
				return IntentResponse{}, nil, err
			}
			if err := policy.EvaluateHighValueConsent(snap, e.Keys.Consent, e.Consent, req.Consent, delegation.SubjectActor.Key(), delegation.DelegationID, req.IntentID, "intents.update", updated.ValueBand.MaxUSD, delegation.Policy.HighValueConsentThresholdUSD, now); err != nil {
				return IntentResponse{}, nil, err
			}
		}

		*existing = *updated
		return IntentResponse{CorrelationID: corr, Intent: existing.Clone()}, nil, nil
	})
}

// CancelIntentRequest is the intents.cancel payload.
type CancelIntentRequest struct {
	IntentID string `json:"intent_id"`
}

// CancelIntent implements intents.cancel. Cancelling a reserved intent is
// rejected: the owner must decline the cycle holding the reservation first.
func (e *Engine) CancelIntent(ctx context.Context, caller Caller, req CancelIntentRequest) (IntentResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return IntentResponse{}, err
	}
	if err := e.Manifest.Authorize("intents.cancel", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return IntentResponse{}, err
	}
	corr := correlationID("intents.cancel", caller.IdempotencyKey)
	return operation(e, ctx, "intents.cancel", caller, req, func(snap *state.Snapshot, now time.Time) (IntentResponse, []pendingEventRecord, error) {
		existing, ok := snap.Intents[req.IntentID]
		if !ok {
			return IntentResponse{}, nil, engineerr.NotFoundf("intent %s not found", req.IntentID)
		}
		if !existing.Actor.Equal(caller.Actor) && caller.Delegation == nil {
			return IntentResponse{}, nil, engineerr.Forbiddenf("caller_mismatch", "caller does not own intent %s", req.IntentID)
		}
		if err := e.authorize("intents.cancel", caller, nil, nil); err != nil {
			return IntentResponse{}, nil, err
		}
		if existing.Status == types.IntentReserved {
			return IntentResponse{}, nil, engineerr.ConstraintViolationf("intent %s is reserved by a live cycle; decline it first", req.IntentID)
		}
		if existing.Status != types.IntentCancelled {
			existing.Status = types.IntentCancelled
			existing.UpdatedAt = now
		}
		return IntentResponse{CorrelationID: corr, Intent: existing.Clone()}, nil, nil
	})
}

// GetIntent implements intents.get, a pure read.
func (e *Engine) GetIntent(caller Caller, intentID string) (*types.SwapIntent, error) {
	if err := e.Manifest.Authorize("intents.get", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out *types.SwapIntent
	var notFound bool
	e.Store.View(func(snap *state.Snapshot) {
		intent, ok := snap.Intents[intentID]
		if !ok {
			notFound = true
			return
		}
		out = intent.Clone()
	})
	if notFound {
		return nil, engineerr.NotFoundf("intent %s not found", intentID)
	}
	return out, nil
}

// ListIntents implements intents.list, scoped to the caller's own actor
// (or the delegation's subject, for an agent) unless caller is a partner.
func (e *Engine) ListIntents(caller Caller) ([]*types.SwapIntent, error) {
	if err := e.Manifest.Authorize("intents.list", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	subject := caller.Actor
	if caller.Delegation != nil {
		subject = caller.Delegation.SubjectActor
	}
	var out []*types.SwapIntent
	e.Store.View(func(snap *state.Snapshot) {
		for _, intent := range snap.Intents {
			if caller.Actor.Type != types.ActorPartner && !intent.Actor.Equal(subject) {
				continue
			}
			out = append(out, intent.Clone())
		}
	})
	return out, nil
}
