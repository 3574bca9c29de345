package policy

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"time"

	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/crypto"
	"swapmesh/engineerr"
)

// ConsentProofPrefix tags a policy-integrity consent proof token.
const ConsentProofPrefix = "sgcp2."

// ConsentEnforcement stages the five orthogonal high-value consent flags
// from spec.md §4.4. An implementation must pick a non-nonsensical
// combination (e.g. replay without signature is rejected at config load,
// see config.Validate).
type ConsentEnforcement struct {
	RequireTier      bool
	RequireBinding   bool
	RequireSignature bool
	RequireReplay    bool
	RequireChallenge bool
}

// consentProofBody is the canonicalized, signed body of a consent proof.
type consentProofBody struct {
	ConsentID    string `json:"consent_id"`
	Subject      string `json:"subject"`
	DelegationID string `json:"delegation_id"`
	IntentID     string `json:"intent_id"`
	AmountCents  int64  `json:"amount_cents"`
	OperationID  string `json:"operation_id,omitempty"`
	ChallengeID  string `json:"challenge_id,omitempty"`
	Nonce        string `json:"nonce"`
}

type consentProofSignature struct {
	KeyID string `json:"key_id"`
	Alg   string `json:"alg"`
	Sig   string `json:"sig"`
}

type consentProofEnvelope struct {
	Body      consentProofBody      `json:"body"`
	Signature consentProofSignature `json:"signature"`
}

// RequiredTier returns the minimum acceptable consent tier for maxUSD
// against threshold: passkey above 1.5x threshold, else step_up.
func RequiredTier(maxUSD, thresholdUSD float64) types.UserConsentTier {
	if maxUSD > thresholdUSD*1.5 {
		return types.ConsentPasskey
	}
	return types.ConsentStepUp
}

func decodeConsentProof(proof string) (*consentProofEnvelope, error) {
	if !strings.HasPrefix(proof, ConsentProofPrefix) {
		return nil, engineerr.Forbiddenf("consent_proof_malformed", "consent_proof missing %s prefix", ConsentProofPrefix)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(proof, ConsentProofPrefix))
	if err != nil {
		return nil, engineerr.Forbiddenf("consent_proof_malformed", "consent_proof is not valid base64url")
	}
	var env consentProofEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, engineerr.Forbiddenf("consent_proof_malformed", "consent_proof body is not valid JSON")
	}
	return &env, nil
}

// EvaluateHighValueConsent enforces spec.md §4.4's high-value consent rule
// when maxUSD exceeds thresholdUSD. consent may be nil, in which case
// absence itself is the failure (consent_required).
func EvaluateHighValueConsent(
	snap *state.Snapshot,
	ring *crypto.Ring,
	enforcement ConsentEnforcement,
	consent *types.UserConsent,
	subject, delegationID, intentID, operationID string,
	maxUSD, thresholdUSD float64,
	now time.Time,
) error {
	if thresholdUSD <= 0 || maxUSD <= thresholdUSD {
		return nil
	}
	if consent == nil {
		return engineerr.Forbiddenf("consent_required", "max_usd %.2f exceeds high_value_consent_threshold_usd %.2f", maxUSD, thresholdUSD)
	}

	if enforcement.RequireTier {
		required := RequiredTier(maxUSD, thresholdUSD)
		if required == types.ConsentPasskey && consent.ConsentTier != types.ConsentPasskey {
			return engineerr.Forbiddenf("consent_tier_insufficient", "passkey consent required above 1.5x threshold")
		}
	}

	if consent.ExpiresAt != nil && now.After(*consent.ExpiresAt) {
		return engineerr.Forbiddenf("consent_expired", "consent %s expired at %s", consent.ConsentID, consent.ExpiresAt)
	}
	if consent.ApprovedMaxUSD > 0 && consent.ApprovedMaxUSD < maxUSD {
		return engineerr.Forbiddenf("consent_limit_exceeded", "consent approved_max_usd %.2f below max_usd %.2f", consent.ApprovedMaxUSD, maxUSD)
	}

	if !enforcement.RequireSignature && !enforcement.RequireBinding && !enforcement.RequireReplay && !enforcement.RequireChallenge {
		return nil
	}

	env, err := decodeConsentProof(consent.ConsentProof)
	if err != nil {
		return err
	}

	if enforcement.RequireBinding {
		amountCents := int64(math.Round(maxUSD * 100))
		if env.Body.ConsentID != consent.ConsentID ||
			env.Body.Subject != subject ||
			env.Body.DelegationID != delegationID ||
			env.Body.IntentID != intentID ||
			env.Body.AmountCents != amountCents {
			return engineerr.Forbiddenf("consent_proof_binding_mismatch", "consent proof body does not bind the requested mutation")
		}
		if enforcement.RequireChallenge {
			if env.Body.OperationID != operationID || env.Body.ChallengeID != consent.ChallengeID || consent.ChallengeID == "" {
				return engineerr.Forbiddenf("consent_proof_binding_mismatch", "consent proof does not bind operation_id/challenge_id")
			}
		}
	}

	if enforcement.RequireSignature {
		if ring == nil {
			return engineerr.Forbiddenf("consent_proof_invalid", "no policy-integrity ring configured")
		}
		sig := crypto.Signature{KeyID: env.Signature.KeyID, Alg: env.Signature.Alg, Sig: env.Signature.Sig}
		if err := ring.VerifyCanonical(env.Body, sig); err != nil {
			return engineerr.Forbiddenf("consent_proof_invalid", "consent proof signature does not verify")
		}
	}

	if enforcement.RequireReplay {
		replayKey := env.Body.ConsentID + "|" + subject + "|" + delegationID + "|" + env.Body.Nonce
		if snap.PolicyConsentReplay[replayKey] {
			return engineerr.Forbiddenf("consent_proof_replayed", "consent proof nonce already observed")
		}
		snap.PolicyConsentReplay[replayKey] = true
	}

	return nil
}
