// Package authz verifies delegation tokens and enforces the per-operation
// manifest described in spec.md §4.4.
package authz

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/crypto"
	"swapmesh/engineerr"
)

// DelegationTokenPrefix tags a delegation token.
const DelegationTokenPrefix = "sgdt1."

type delegationTokenBody struct {
	DelegationID   string                 `json:"delegation_id"`
	PrincipalAgent types.Actor            `json:"principal_agent"`
	SubjectActor   types.Actor            `json:"subject_actor"`
	Scopes         []string               `json:"scopes"`
	Policy         types.DelegationPolicy `json:"policy"`
	IssuedAt       time.Time              `json:"issued_at"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
}

type delegationTokenSignature struct {
	KeyID string `json:"key_id"`
	Alg   string `json:"alg"`
	Sig   string `json:"sig"`
}

type delegationTokenEnvelope struct {
	Delegation delegationTokenBody      `json:"delegation"`
	Signature  delegationTokenSignature `json:"signature"`
}

// VerifyDelegationToken decodes and verifies a presented sgdt1. token
// against ring. If snap holds a persisted delegation record under the
// token's delegation_id, that record's fields win over the token's
// (defense against a stale but still validly-signed token); a
// subject/principal mismatch between the two is FORBIDDEN.
func VerifyDelegationToken(snap *state.Snapshot, ring *crypto.Ring, token string, now time.Time) (*types.Delegation, error) {
	if !strings.HasPrefix(token, DelegationTokenPrefix) {
		return nil, engineerr.Unauthorizedf("delegation_token_malformed", "delegation token missing %s prefix", DelegationTokenPrefix)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, DelegationTokenPrefix))
	if err != nil {
		return nil, engineerr.Unauthorizedf("delegation_token_malformed", "delegation token is not valid base64url")
	}
	var env delegationTokenEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, engineerr.Unauthorizedf("delegation_token_malformed", "delegation token body is not valid JSON")
	}
	sig := crypto.Signature{KeyID: env.Signature.KeyID, Alg: env.Signature.Alg, Sig: env.Signature.Sig}
	if err := ring.VerifyCanonical(env.Delegation, sig); err != nil {
		if err == crypto.ErrUnknownKeyID {
			return nil, engineerr.Unauthorizedf("unknown_key_id", "delegation token key id %s is unknown", sig.KeyID)
		}
		return nil, engineerr.Unauthorizedf("delegation_token_invalid", "delegation token signature does not verify")
	}

	presented := &types.Delegation{
		DelegationID:   env.Delegation.DelegationID,
		PrincipalAgent: env.Delegation.PrincipalAgent,
		SubjectActor:   env.Delegation.SubjectActor,
		Scopes:         env.Delegation.Scopes,
		Policy:         env.Delegation.Policy,
		IssuedAt:       env.Delegation.IssuedAt,
		ExpiresAt:      env.Delegation.ExpiresAt,
	}

	resolved := presented
	if persisted, ok := snap.Delegations[presented.DelegationID]; ok {
		if !persisted.PrincipalAgent.Equal(presented.PrincipalAgent) || !persisted.SubjectActor.Equal(presented.SubjectActor) {
			return nil, engineerr.Forbiddenf("delegation_subject_mismatch", "persisted delegation %s does not match presented principal/subject", presented.DelegationID)
		}
		resolved = persisted
	}

	if resolved.Revoked() {
		return nil, engineerr.Unauthorizedf("delegation_revoked", "delegation %s is revoked", resolved.DelegationID)
	}
	if resolved.ExpiredAt(now) {
		return nil, engineerr.Unauthorizedf("delegation_expired", "delegation %s expired", resolved.DelegationID)
	}
	return resolved, nil
}
