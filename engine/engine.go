// Package engine is the top-level facade dispatching every wire operation:
// it wraps each mutation in an idempotency check, an authorization/policy
// check, an OpenTelemetry span, and a single write to the state store,
// appending and signing whatever domain events the mutation produced.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"swapmesh/authz"
	"swapmesh/core/events"
	"swapmesh/core/state"
	"swapmesh/core/types"
	"swapmesh/crypto"
	"swapmesh/engineerr"
	"swapmesh/idempotency"
	"swapmesh/observability/metrics"
	"swapmesh/policy"
)

// KeyRings bundles every Ed25519 ring the engine signs and verifies with.
type KeyRings struct {
	Events      *crypto.Ring
	Receipts    *crypto.Ring
	Delegations *crypto.Ring
	Consent     *crypto.Ring
}

// Engine wires every domain package together behind one operation surface.
type Engine struct {
	Store    *state.Store
	Keys     KeyRings
	Manifest authz.Manifest
	Consent  policy.ConsentEnforcement
	Emitter  events.Emitter
	Metrics  *metrics.Metrics
	Tracer   trace.Tracer

	DepositWindow time.Duration

	now func() time.Time
}

// New constructs an Engine. now defaults to time.Now when nil.
func New(store *state.Store, keys KeyRings, manifest authz.Manifest, consent policy.ConsentEnforcement, emitter events.Emitter, m *metrics.Metrics, tracer trace.Tracer, now func() time.Time) *Engine {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		Store:         store,
		Keys:          keys,
		Manifest:      manifest,
		Consent:       consent,
		Emitter:       emitter,
		Metrics:       m,
		Tracer:        tracer,
		DepositWindow: 24 * time.Hour,
		now:           now,
	}
}

// Caller identifies the actor invoking an operation and the credentials
// presented alongside the request.
type Caller struct {
	Actor          types.Actor
	GrantedScopes  []string
	Delegation     *types.Delegation
	CorrelationID  string
	IdempotencyKey string
}

// pendingEventRecord is the common shape commit/settlement/vault mutators
// return: enough to build and sign one core/events.Event.
type pendingEventRecord struct {
	Type     string
	DedupKey string
	Payload  map[string]string
}

// operation runs fn under a trace span and idempotency guard, then signs and
// appends any domain events fn produced. The idempotency scope key is the
// caller's actor, the operation id and the idempotency key; the ledger also
// stores a hash of the full request payload, so a caller replaying the
// identical mutation gets back the identical recorded response with no
// side effects. Resp must be JSON-marshalable; it is what gets stored in
// the idempotency ledger and replayed verbatim on a repeat call.
func operation[Resp any](e *Engine, ctx context.Context, operationID string, caller Caller, requestPayload interface{}, fn func(snap *state.Snapshot, now time.Time) (Resp, []pendingEventRecord, error)) (Resp, error) {
	var zero Resp
	start := time.Now()
	if e.Tracer != nil {
		var span trace.Span
		ctx, span = e.Tracer.Start(ctx, operationID, trace.WithAttributes(
			attribute.String("swapmesh.actor_type", string(caller.Actor.Type)),
			attribute.String("swapmesh.actor_id", caller.Actor.ID),
		))
		defer span.End()
	}
	_ = ctx

	code := "OK"
	defer func() {
		if e.Metrics != nil {
			e.Metrics.OperationsTotal.WithLabelValues(operationID, code).Inc()
			e.Metrics.OperationDuration.WithLabelValues(operationID).Observe(time.Since(start).Seconds())
		}
	}()

	module := moduleFor(operationID)
	var response Resp
	err := e.Store.Update(func(snap *state.Snapshot) error {
		if snap.IsPaused(module) {
			return engineerr.ConstraintViolationf("module %s is paused", module).WithReason("module_paused")
		}

		scope := ""
		if caller.IdempotencyKey != "" {
			scope = idempotency.Scope(string(caller.Actor.Type), caller.Actor.ID, operationID, caller.IdempotencyKey)
			ledger := idempotency.MapLedger{Records: snap.Idempotency}
			prior, replay, err := idempotency.Check(ledger, scope, requestPayload)
			if err != nil {
				return err
			}
			if replay {
				if len(prior) == 0 {
					return nil
				}
				return json.Unmarshal(prior, &response)
			}
		}

		now := e.now()
		result, evs, err := fn(snap, now)
		if err != nil {
			return err
		}

		for _, pe := range evs {
			evt, err := events.Build(e.Keys.Events, pe.Type, caller.CorrelationID, caller.Actor, pe.DedupKey, pe.Payload, now)
			if err != nil {
				return err
			}
			snap.Events = append(snap.Events, evt)
			e.Emitter.Emit(evt)
		}

		response = result
		if scope != "" {
			encoded, err := json.Marshal(response)
			if err != nil {
				return err
			}
			if err := idempotency.Record(idempotency.MapLedger{Records: snap.Idempotency}, scope, requestPayload, encoded, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ee, ok := err.(*engineerr.Error); ok {
			code = string(ee.Code)
		} else {
			code = "INTERNAL"
		}
		return zero, err
	}
	return response, nil
}

// moduleOperationPrefixes maps the wire operation-id namespaces to the
// pausable module name a pause check gates (core/state/snapshot.go).
var moduleOperationPrefixes = []struct {
	prefix string
	module string
}{
	{"marketplace.matching.runs", "matching"},
	{"cycle_proposals", "commit"},
	{"settlement", "settlement"},
	{"receipts", "settlement"},
	{"vault", "vault"},
	{"delegations", "delegation"},
}

// moduleFor resolves an operation id to the pausable module name that
// gates it, defaulting to the operation's own first segment for
// operations (intents.*, webhooks.*, health.*) that no module pauses.
func moduleFor(operationID string) string {
	for _, m := range moduleOperationPrefixes {
		if len(operationID) >= len(m.prefix) && operationID[:len(m.prefix)] == m.prefix {
			return m.module
		}
	}
	for i := 0; i < len(operationID); i++ {
		if operationID[i] == '.' {
			return operationID[:i]
		}
	}
	return operationID
}
