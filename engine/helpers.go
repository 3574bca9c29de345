package engine

import (
	"time"

	"swapmesh/authz"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/engineerr"
	"swapmesh/policy"
)

// correlationID renders "corr_<operation>_<key>" with '.' collapsed to '_'
// so the id reads as one token on the wire.
func correlationID(operationID, key string) string {
	out := make([]byte, 0, len(operationID)+len(key)+6)
	out = append(out, "corr_"...)
	for i := 0; i < len(operationID); i++ {
		if operationID[i] == '.' {
			out = append(out, '_')
		} else {
			out = append(out, operationID[i])
		}
	}
	out = append(out, '_')
	out = append(out, key...)
	return string(out)
}

// authorize runs the manifest check for caller, then — for agent actors
// acting under a delegation — the delegation's trading-policy bounds
// relevant to a single intent or proposal mutation. Either policyIntent or
// policyProposal may be nil; only the non-nil one is evaluated.
func (e *Engine) authorize(operationID string, caller Caller, policyIntent *types.SwapIntent, policyProposal *types.CycleProposal) error {
	if err := e.Manifest.Authorize(operationID, caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return err
	}
	if caller.Actor.Type != types.ActorAgent || caller.Delegation == nil {
		return nil
	}
	if policyIntent != nil {
		if err := policy.EvaluateIntent(caller.Delegation.Policy, policyIntent); err != nil {
			return err
		}
	}
	if policyProposal != nil {
		if err := policy.EvaluateProposal(caller.Delegation.Policy, policyProposal); err != nil {
			return err
		}
	}
	if inQuiet, err := policy.InQuietHours(caller.Delegation.Policy.QuietHours, e.now()); err != nil {
		return err
	} else if inQuiet {
		return engineerr.Forbiddenf("quiet_hours", "delegation %s is inside its quiet hours window", caller.Delegation.DelegationID)
	}
	return nil
}

// resolveDelegation verifies a presented delegation token, if any, and
// returns the resolved delegation (nil when no token is presented).
func (e *Engine) resolveDelegation(snap *state.Snapshot, token string, now time.Time) (*types.Delegation, error) {
	if token == "" {
		return nil, nil
	}
	return authz.VerifyDelegationToken(snap, e.Keys.Delegations, token, now)
}

// ensureIdempotencyKey rejects a mutation with no idempotency key, per
// spec.md §6's "required for mutations".
func ensureIdempotencyKey(caller Caller) error {
	if caller.IdempotencyKey == "" {
		return engineerr.SchemaInvalidf("idempotency_key is required for mutations")
	}
	return nil
}
