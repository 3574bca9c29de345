// Package idempotency implements the at-most-once mutation ledger: first
// invocation of a (actor, operation, key) scope stores the payload hash and
// response; an exact replay returns the stored response with no side
// effects; a conflicting payload is a payload-hash mismatch.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"swapmesh/core/canon"
	"swapmesh/core/types"
	"swapmesh/engineerr"
)

// Scope renders the ledger scope key described by spec.md §4.5:
// "actor_type:actor_id|operation_id|idempotency_key".
func Scope(actorType, actorID, operationID, idempotencyKey string) string {
	return actorType + ":" + actorID + "|" + operationID + "|" + idempotencyKey
}

// HashPayload computes the canonical-JSON SHA-256 hash of a request
// payload, used to detect idempotency-key reuse with a different body.
func HashPayload(payload interface{}) (string, error) {
	data, err := canon.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Ledger is the interface the engine's idempotency store must support. It
// is satisfied by a closure over state.Store's entity map within a single
// writer transaction.
type Ledger interface {
	Get(scope string) (*types.IdempotencyRecord, bool)
	Put(record *types.IdempotencyRecord)
}

// MapLedger adapts a plain map[string]*types.IdempotencyRecord (the shape
// the state snapshot carries) to the Ledger interface.
type MapLedger struct {
	Records map[string]*types.IdempotencyRecord
}

func (m MapLedger) Get(scope string) (*types.IdempotencyRecord, bool) {
	rec, ok := m.Records[scope]
	return rec, ok
}

func (m MapLedger) Put(record *types.IdempotencyRecord) {
	m.Records[record.Scope] = record
}

// Check enforces the at-most-once contract for one mutation. If the scope
// has no prior record, it returns (nil, false, nil) and the caller should
// proceed, then call Record. If the scope has a byte-equal prior payload,
// it returns (the stored response, true, nil) and the caller must return
// that response verbatim without re-executing the mutation. If the scope
// has a prior record with a different payload hash, it returns a tagged
// IDEMPOTENCY_KEY_REUSE_PAYLOAD_MISMATCH error.
func Check(ledger Ledger, scope string, payload interface{}) (priorResponse []byte, replay bool, err error) {
	hash, err := HashPayload(payload)
	if err != nil {
		return nil, false, err
	}
	existing, ok := ledger.Get(scope)
	if !ok {
		return nil, false, nil
	}
	if existing.PayloadHash == hash {
		return existing.Response, true, nil
	}
	return nil, false, engineerr.New(engineerr.IdempotencyKeyReusePayloadMismatch, "idempotency key reused with a different payload").
		WithDetails(map[string]interface{}{
			"expected_payload_hash": existing.PayloadHash,
			"actual_payload_hash":   hash,
		})
}

// Record stores the response for a scope after a successful mutation.
func Record(ledger Ledger, scope string, payload interface{}, response []byte, now time.Time) error {
	hash, err := HashPayload(payload)
	if err != nil {
		return err
	}
	ledger.Put(&types.IdempotencyRecord{
		Scope:       scope,
		PayloadHash: hash,
		Response:    response,
		CreatedAt:   now,
	})
	return nil
}
