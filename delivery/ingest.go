package delivery

import (
	"crypto/ed25519"
	"encoding/base64"
	"time"

	"swapmesh/core/canon"
	"swapmesh/core/state"
	"swapmesh/engineerr"
)

// InboundSignature is the wire shape of a partner-signed envelope's
// signature block.
type InboundSignature struct {
	KeyID string `json:"key_id"`
	Alg   string `json:"alg"`
	Sig   string `json:"sig"`
}

// InboundEnvelope is a webhook proposal-ingestion envelope delivered by a
// partner integration (spec.md §6 "webhooks.proposals.ingest").
type InboundEnvelope struct {
	EventID   string            `json:"event_id"`
	PartnerID string            `json:"partner_id"`
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload"`
	Signature InboundSignature  `json:"signature"`
}

// canonicalBody is what the partner actually signs: the envelope with its
// own signature field stripped.
type canonicalBody struct {
	EventID   string            `json:"event_id"`
	PartnerID string            `json:"partner_id"`
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload"`
}

// PartnerKeySet resolves a partner id to its currently delivered public
// key set, keyed by key id, allowing partner-side key rotation.
type PartnerKeySet interface {
	VerifyingKeys(partnerID string) map[string]ed25519.PublicKey
}

// StaticPartnerKeys is a PartnerKeySet backed by a fixed in-memory map,
// suitable for deployments whose partner keys are rotated by redeploying
// rather than by a dynamic key-management service. The process config
// does not populate it.
type StaticPartnerKeys map[string]map[string]ed25519.PublicKey

// VerifyingKeys implements PartnerKeySet.
func (s StaticPartnerKeys) VerifyingKeys(partnerID string) map[string]ed25519.PublicKey {
	return s[partnerID]
}

// Ingest verifies env's signature against the partner's delivered key set,
// rejects replays by event_id, and rate-limits per partner. It returns
// (accepted=false, nil) for a duplicate event id without error, since a
// replayed envelope is not itself a failure.
func Ingest(snap *state.Snapshot, keys PartnerKeySet, limiter *Limiter, env InboundEnvelope, now time.Time) (accepted bool, err error) {
	if limiter != nil && !limiter.Allow(env.PartnerID, now) {
		return false, engineerr.Forbiddenf("rate_limited", "partner %s exceeded webhook ingestion rate", env.PartnerID)
	}
	if snap.Delivery.WebhookSeenEventIDs[env.EventID] {
		return false, nil
	}

	verifiers := keys.VerifyingKeys(env.PartnerID)
	pub, ok := verifiers[env.Signature.KeyID]
	if !ok {
		return false, engineerr.Unauthorizedf("unknown_key_id", "partner %s has no verifying key %s", env.PartnerID, env.Signature.KeyID)
	}

	body := canonicalBody{EventID: env.EventID, PartnerID: env.PartnerID, Type: env.Type, Payload: env.Payload}
	data, err := canon.Marshal(body)
	if err != nil {
		return false, err
	}
	sig, err := base64.StdEncoding.DecodeString(env.Signature.Sig)
	if err != nil {
		return false, engineerr.Unauthorizedf("envelope_signature_invalid", "envelope signature is not valid base64")
	}
	if !ed25519.Verify(pub, data, sig) {
		return false, engineerr.Unauthorizedf("envelope_signature_invalid", "envelope signature does not verify")
	}

	snap.Delivery.WebhookSeenEventIDs[env.EventID] = true
	return true, nil
}
