// Package events builds and signs the Event envelopes appended to the state
// store's event log, and defines the Emitter interface downstream
// subscribers implement.
package events

import (
	"time"

	"swapmesh/core/idgen"
	"swapmesh/core/types"
	"swapmesh/crypto"
)

// Emitter broadcasts events to downstream subscribers (e.g. delivery
// webhooks, metrics). Engine packages hold an Emitter and call Emit for
// every event appended to the log within an operation.
type Emitter interface {
	Emit(*types.Event)
}

// NoopEmitter satisfies Emitter while discarding all events.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(*types.Event) {}

// Build constructs and signs an event envelope. dedupKey is the
// type-specific key folded into the deterministic event id (proposal id,
// transition edge, "intentId|depositRef", …).
func Build(ring *crypto.Ring, eventType, correlationID string, actor types.Actor, dedupKey string, payload map[string]string, occurredAt time.Time) (*types.Event, error) {
	evt := &types.Event{
		EventID:       idgen.EventID(eventType, correlationID, dedupKey),
		Type:          eventType,
		OccurredAt:    occurredAt,
		CorrelationID: correlationID,
		Actor:         actor,
		Payload:       payload,
	}
	unsigned := *evt
	unsigned.Signature = types.Signature{}
	sig, err := ring.SignCanonical(unsigned)
	if err != nil {
		return nil, err
	}
	evt.Signature = types.Signature{KeyID: sig.KeyID, Alg: sig.Alg, Sig: sig.Sig}
	return evt, nil
}

// Verify checks an event's signature against its canonicalized envelope with
// the signature field stripped.
func Verify(ring *crypto.Ring, evt *types.Event) error {
	unsigned := *evt
	unsigned.Signature = types.Signature{}
	return ring.VerifyCanonical(unsigned, crypto.Signature{
		KeyID: evt.Signature.KeyID,
		Alg:   evt.Signature.Alg,
		Sig:   evt.Signature.Sig,
	})
}
