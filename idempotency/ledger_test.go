package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swapmesh/core/types"
	"swapmesh/engineerr"
)

func TestScopeFormat(t *testing.T) {
	scope := Scope("user", "u1", "marketplace.intents.create", "key-1")
	require.Equal(t, "user:u1|marketplace.intents.create|key-1", scope)
}

func newLedger() MapLedger {
	return MapLedger{Records: make(map[string]*types.IdempotencyRecord)}
}

// TestCheckFirstCallProceeds exercises spec.md §8 scenario 3: a fresh scope
// has no prior record, so the caller proceeds and records the response.
func TestCheckFirstCallProceeds(t *testing.T) {
	ledger := newLedger()
	scope := Scope("user", "u1", "marketplace.intents.create", "key-1")
	payload := map[string]string{"offer": "asset_1"}

	resp, replay, err := Check(ledger, scope, payload)
	require.NoError(t, err)
	require.False(t, replay)
	require.Nil(t, resp)

	require.NoError(t, Record(ledger, scope, payload, []byte(`{"id":"intent_abc"}`), time.Now()))
	_, ok := ledger.Get(scope)
	require.True(t, ok, "expected the record to be stored under scope")
}

func TestCheckReplayReturnsStoredResponse(t *testing.T) {
	ledger := newLedger()
	scope := Scope("user", "u1", "marketplace.intents.create", "key-1")
	payload := map[string]string{"offer": "asset_1"}
	stored := []byte(`{"id":"intent_abc"}`)

	require.NoError(t, Record(ledger, scope, payload, stored, time.Now()))

	resp, replay, err := Check(ledger, scope, payload)
	require.NoError(t, err)
	require.True(t, replay, "expected a byte-identical replay to be reported as a replay")
	require.Equal(t, string(stored), string(resp))
}

func TestCheckDifferentPayloadIsConflict(t *testing.T) {
	ledger := newLedger()
	scope := Scope("user", "u1", "marketplace.intents.create", "key-1")
	require.NoError(t, Record(ledger, scope, map[string]string{"offer": "asset_1"}, []byte(`{}`), time.Now()))

	_, _, err := Check(ledger, scope, map[string]string{"offer": "asset_2"})
	require.Error(t, err)
	engErr, ok := err.(*engineerr.Error)
	require.True(t, ok)
	require.Equal(t, engineerr.IdempotencyKeyReusePayloadMismatch, engErr.Code)
}

func TestHashPayloadIsOrderIndependent(t *testing.T) {
	h1, err := HashPayload(map[string]string{"a": "1", "b": "2"})
	require.NoError(t, err)
	h2, err := HashPayload(map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	require.Equal(t, h1, h2, "expected canonical-JSON hashing to be key-order independent")
}
