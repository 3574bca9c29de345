package authz

import (
	"swapmesh/core/types"
	"swapmesh/engineerr"
)

// OperationRule is one manifest entry: operation_id -> allowed actor types
// and required scopes.
type OperationRule struct {
	AllowedActorTypes []types.ActorType
	RequiredScopes    []string
}

// Manifest maps operation id to its authorization rule.
type Manifest map[string]OperationRule

// Authorize enforces spec.md §4.4's per-operation authorization: unknown
// operation ids and disallowed actor types are FORBIDDEN, missing scopes
// are INSUFFICIENT_SCOPE, and agent actors must present a delegation whose
// principal matches the caller and whose subject is a user.
func (m Manifest) Authorize(operationID string, caller types.Actor, grantedScopes []string, delegation *types.Delegation) error {
	rule, ok := m[operationID]
	if !ok {
		return engineerr.Forbiddenf("unknown_operation", "operation %s is not in the authorization manifest", operationID)
	}

	allowed := false
	for _, t := range rule.AllowedActorTypes {
		if t == caller.Type {
			allowed = true
			break
		}
	}
	if !allowed {
		return engineerr.Forbiddenf("actor_type_not_allowed", "actor type %s may not call %s", caller.Type, operationID)
	}

	if caller.Type == types.ActorAgent {
		if delegation == nil {
			return engineerr.Forbiddenf("delegation_required", "agent actor requires a delegation to call %s", operationID)
		}
		if !delegation.PrincipalAgent.Equal(caller) {
			return engineerr.Forbiddenf("delegation_principal_mismatch", "delegation principal does not match caller")
		}
		if delegation.SubjectActor.Type != types.ActorUser {
			return engineerr.Forbiddenf("delegation_subject_invalid", "delegation subject must be a user actor")
		}
	}

	granted := make(map[string]bool, len(grantedScopes))
	for _, s := range grantedScopes {
		granted[s] = true
	}
	var missing []string
	for _, s := range rule.RequiredScopes {
		if !granted[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return engineerr.New(engineerr.InsufficientScope, "caller is missing required scopes").WithDetails(map[string]interface{}{
			"missing_scopes": missing,
		})
	}
	return nil
}
