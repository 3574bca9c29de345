package engine

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"swapmesh/authz"
	"swapmesh/core/canon"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/crypto"
	"swapmesh/engineerr"
)

// MintDelegationRequest is the delegations.mint payload: a user actor
// grants an agent actor standing authority bounded by policy.
type MintDelegationRequest struct {
	PrincipalAgent types.Actor             `json:"principal_agent"`
	Scopes         []string                `json:"scopes"`
	Policy         types.DelegationPolicy  `json:"policy"`
	ExpiresAt      *time.Time              `json:"expires_at,omitempty"`
}

// MintDelegationResponse carries the persisted record and the signed
// sgdt1. bearer token the agent presents on subsequent calls.
type MintDelegationResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Delegation    *types.Delegation `json:"delegation"`
	Token         string            `json:"token"`
}

// MintDelegation implements delegations.mint. Only a user actor may mint a
// delegation over itself as subject.
func (e *Engine) MintDelegation(ctx context.Context, caller Caller, req MintDelegationRequest) (MintDelegationResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return MintDelegationResponse{}, err
	}
	if err := e.Manifest.Authorize("delegations.mint", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return MintDelegationResponse{}, err
	}
	corr := correlationID("delegations.mint", caller.IdempotencyKey)
	return operation(e, ctx, "delegations.mint", caller, req, func(snap *state.Snapshot, now time.Time) (MintDelegationResponse, []pendingEventRecord, error) {
		if err := e.authorize("delegations.mint", caller, nil, nil); err != nil {
			return MintDelegationResponse{}, nil, err
		}
		if caller.Actor.Type != types.ActorUser {
			return MintDelegationResponse{}, nil, engineerr.Forbiddenf("actor_type_not_allowed", "only a user actor may mint a delegation over itself")
		}

		delegation := &types.Delegation{
			DelegationID:   "deleg_" + uuid.NewString(),
			PrincipalAgent: req.PrincipalAgent,
			SubjectActor:   caller.Actor,
			Scopes:         req.Scopes,
			Policy:         req.Policy,
			IssuedAt:       now,
			ExpiresAt:      req.ExpiresAt,
		}
		snap.Delegations[delegation.DelegationID] = delegation

		token, err := mintDelegationToken(e.Keys.Delegations, delegation)
		if err != nil {
			return MintDelegationResponse{}, nil, err
		}
		return MintDelegationResponse{CorrelationID: corr, Delegation: delegation.Clone(), Token: token}, nil, nil
	})
}

// RevokeDelegationRequest is the delegations.revoke payload.
type RevokeDelegationRequest struct {
	DelegationID string `json:"delegation_id"`
}

// DelegationResponse wraps a single delegation for the wire.
type DelegationResponse struct {
	CorrelationID string            `json:"correlation_id"`
	Delegation    *types.Delegation `json:"delegation"`
}

// RevokeDelegation implements delegations.revoke. Only the subject user may
// revoke their own delegation.
func (e *Engine) RevokeDelegation(ctx context.Context, caller Caller, req RevokeDelegationRequest) (DelegationResponse, error) {
	if err := ensureIdempotencyKey(caller); err != nil {
		return DelegationResponse{}, err
	}
	if err := e.Manifest.Authorize("delegations.revoke", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return DelegationResponse{}, err
	}
	corr := correlationID("delegations.revoke", caller.IdempotencyKey)
	return operation(e, ctx, "delegations.revoke", caller, req, func(snap *state.Snapshot, now time.Time) (DelegationResponse, []pendingEventRecord, error) {
		if err := e.authorize("delegations.revoke", caller, nil, nil); err != nil {
			return DelegationResponse{}, nil, err
		}
		delegation, ok := snap.Delegations[req.DelegationID]
		if !ok {
			return DelegationResponse{}, nil, engineerr.NotFoundf("delegation %s not found", req.DelegationID)
		}
		if !delegation.SubjectActor.Equal(caller.Actor) {
			return DelegationResponse{}, nil, engineerr.Forbiddenf("caller_mismatch", "caller does not own delegation %s", req.DelegationID)
		}
		if !delegation.Revoked() {
			t := now
			delegation.RevokedAt = &t
		}
		return DelegationResponse{CorrelationID: corr, Delegation: delegation.Clone()}, nil, nil
	})
}

// ListDelegations implements delegations.list, scoped to delegations the
// caller is the subject or principal agent of.
func (e *Engine) ListDelegations(caller Caller) ([]*types.Delegation, error) {
	if err := e.Manifest.Authorize("delegations.list", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return nil, err
	}
	var out []*types.Delegation
	e.Store.View(func(snap *state.Snapshot) {
		for _, d := range snap.Delegations {
			if d.SubjectActor.Equal(caller.Actor) || d.PrincipalAgent.Equal(caller.Actor) {
				out = append(out, d.Clone())
			}
		}
	})
	return out, nil
}

// mintDelegationToken signs a fresh sgdt1. bearer token over delegation's
// public fields, mirroring the envelope shape authz.VerifyDelegationToken
// decodes.
func mintDelegationToken(ring *crypto.Ring, d *types.Delegation) (string, error) {
	body := struct {
		DelegationID   string                 `json:"delegation_id"`
		PrincipalAgent types.Actor            `json:"principal_agent"`
		SubjectActor   types.Actor            `json:"subject_actor"`
		Scopes         []string               `json:"scopes"`
		Policy         types.DelegationPolicy `json:"policy"`
		IssuedAt       time.Time              `json:"issued_at"`
		ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	}{
		DelegationID:   d.DelegationID,
		PrincipalAgent: d.PrincipalAgent,
		SubjectActor:   d.SubjectActor,
		Scopes:         d.Scopes,
		Policy:         d.Policy,
		IssuedAt:       d.IssuedAt,
		ExpiresAt:      d.ExpiresAt,
	}
	sig, err := ring.SignCanonical(body)
	if err != nil {
		return "", err
	}
	envelope := struct {
		Delegation interface{} `json:"delegation"`
		Signature  struct {
			KeyID string `json:"key_id"`
			Alg   string `json:"alg"`
			Sig   string `json:"sig"`
		} `json:"signature"`
	}{Delegation: body}
	envelope.Signature.KeyID = sig.KeyID
	envelope.Signature.Alg = sig.Alg
	envelope.Signature.Sig = sig.Sig

	raw, err := canon.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return authz.DelegationTokenPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}
