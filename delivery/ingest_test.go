package delivery

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"swapmesh/core/canon"
	"swapmesh/core/state"
)

type staticKeySet map[string]map[string]ed25519.PublicKey

func (s staticKeySet) VerifyingKeys(partnerID string) map[string]ed25519.PublicKey {
	return s[partnerID]
}

func signedEnvelope(t *testing.T, priv ed25519.PrivateKey, keyID, eventID, partnerID string) InboundEnvelope {
	t.Helper()
	body := canonicalBody{EventID: eventID, PartnerID: partnerID, Type: "proposal.ingest", Payload: map[string]string{"foo": "bar"}}
	data, err := canon.Marshal(body)
	if err != nil {
		t.Fatalf("canon.Marshal: %v", err)
	}
	sig := ed25519.Sign(priv, data)
	return InboundEnvelope{
		EventID: eventID, PartnerID: partnerID, Type: "proposal.ingest", Payload: body.Payload,
		Signature: InboundSignature{KeyID: keyID, Alg: "ed25519", Sig: base64.StdEncoding.EncodeToString(sig)},
	}
}

func TestIngestAcceptsValidEnvelope(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	keys := staticKeySet{"partner-1": {"key-1": pub}}
	snap := state.NewSnapshot()
	env := signedEnvelope(t, priv, "key-1", "evt-1", "partner-1")

	accepted, err := Ingest(snap, keys, nil, env, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !accepted {
		t.Fatalf("expected a validly signed, fresh envelope to be accepted")
	}
}

func TestIngestDedupsByEventID(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	keys := staticKeySet{"partner-1": {"key-1": pub}}
	snap := state.NewSnapshot()
	env := signedEnvelope(t, priv, "key-1", "evt-1", "partner-1")

	if _, err := Ingest(snap, keys, nil, env, time.Now()); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	accepted, err := Ingest(snap, keys, nil, env, time.Now())
	if err != nil {
		t.Fatalf("replay Ingest: %v", err)
	}
	if accepted {
		t.Fatalf("expected a replayed event id to be reported as not accepted, with no error")
	}
}

func TestIngestRejectsUnknownKeyID(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	_ = pub
	keys := staticKeySet{"partner-1": {}}
	snap := state.NewSnapshot()
	env := signedEnvelope(t, priv, "key-1", "evt-1", "partner-1")

	_, err := Ingest(snap, keys, nil, env, time.Now())
	if err == nil {
		t.Fatalf("expected an envelope signed under an unregistered key id to be rejected")
	}
}

func TestIngestRejectsTamperedSignature(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	keys := staticKeySet{"partner-1": {"key-1": pub}}
	snap := state.NewSnapshot()
	env := signedEnvelope(t, priv, "key-1", "evt-1", "partner-1")
	env.Payload["foo"] = "tampered"

	_, err := Ingest(snap, keys, nil, env, time.Now())
	if err == nil {
		t.Fatalf("expected a tampered payload to fail signature verification")
	}
}

func TestIngestRejectsRateLimitedPartner(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(nil)
	keys := staticKeySet{"partner-1": {"key-1": pub}}
	snap := state.NewSnapshot()
	limiter := NewLimiter(1, 1)
	now := time.Now()

	env1 := signedEnvelope(t, priv, "key-1", "evt-1", "partner-1")
	if _, err := Ingest(snap, keys, limiter, env1, now); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	env2 := signedEnvelope(t, priv, "key-1", "evt-2", "partner-1")
	_, err := Ingest(snap, keys, limiter, env2, now)
	if err == nil {
		t.Fatalf("expected the second immediate envelope to be rate limited")
	}
}
