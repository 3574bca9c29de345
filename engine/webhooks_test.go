package engine

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"swapmesh/core/canon"
	"swapmesh/core/types"
	"swapmesh/delivery"
)

type engineTestKeySet map[string]map[string]ed25519.PublicKey

func (s engineTestKeySet) VerifyingKeys(partnerID string) map[string]ed25519.PublicKey {
	return s[partnerID]
}

func signedWebhookEnvelope(t *testing.T, priv ed25519.PrivateKey, keyID, eventID, partnerID string) delivery.InboundEnvelope {
	t.Helper()
	body := struct {
		EventID   string            `json:"event_id"`
		PartnerID string            `json:"partner_id"`
		Type      string            `json:"type"`
		Payload   map[string]string `json:"payload"`
	}{EventID: eventID, PartnerID: partnerID, Type: "proposal.ingest", Payload: map[string]string{"foo": "bar"}}
	data, err := canon.Marshal(body)
	if err != nil {
		t.Fatalf("canon.Marshal: %v", err)
	}
	sig := ed25519.Sign(priv, data)
	return delivery.InboundEnvelope{
		EventID: eventID, PartnerID: partnerID, Type: "proposal.ingest", Payload: body.Payload,
		Signature: delivery.InboundSignature{KeyID: keyID, Alg: "ed25519", Sig: base64.StdEncoding.EncodeToString(sig)},
	}
}

func TestWebhookIngestAcceptsValidEnvelopeAndDedupsReplay(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := testEngine(t, fixedClock(now))
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	keys := engineTestKeySet{"partner-1": {"key-1": pub}}
	caller := Caller{Actor: types.Actor{Type: types.ActorPartner, ID: "partner-1"}}
	env := signedWebhookEnvelope(t, priv, "key-1", "evt-1", "partner-1")

	first, err := e.Ingest(context.Background(), caller, keys, nil, WebhookIngestRequest{Envelope: env})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !first.Accepted {
		t.Fatalf("expected the first delivery of a fresh event to be accepted")
	}

	// The engine scopes the idempotency key to the envelope's own event_id,
	// so replaying the identical envelope returns the identical stored
	// response (accepted=true) rather than re-entering delivery.Ingest's
	// own dedup path.
	second, err := e.Ingest(context.Background(), caller, keys, nil, WebhookIngestRequest{Envelope: env})
	if err != nil {
		t.Fatalf("replayed Ingest: %v", err)
	}
	if !second.Accepted {
		t.Fatalf("expected the idempotent replay to return the identical accepted response")
	}
	if second.CorrelationID != first.CorrelationID {
		t.Fatalf("expected the replay's correlation id to match the original")
	}
}
