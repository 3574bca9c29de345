package engine

import (
	"context"
	"time"

	"swapmesh/core/state"
	"swapmesh/delivery"
)

// WebhookIngestRequest is the webhooks.proposals.ingest payload: the raw
// partner-signed envelope.
type WebhookIngestRequest struct {
	Envelope delivery.InboundEnvelope `json:"envelope"`
}

// WebhookIngestResponse reports whether the envelope was newly accepted.
type WebhookIngestResponse struct {
	CorrelationID string `json:"correlation_id"`
	Accepted      bool   `json:"accepted"`
}

// Ingest implements webhooks.proposals.ingest. The idempotency scope is
// keyed by the envelope's own event_id rather than a caller-supplied
// idempotency_key: a partner retrying delivery of the same event must
// observe the same accepted/duplicate outcome.
func (e *Engine) Ingest(ctx context.Context, caller Caller, keys delivery.PartnerKeySet, limiter *delivery.Limiter, req WebhookIngestRequest) (WebhookIngestResponse, error) {
	if err := e.Manifest.Authorize("webhooks.proposals.ingest", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return WebhookIngestResponse{}, err
	}
	key := req.Envelope.EventID
	corr := correlationID("webhooks.proposals.ingest", key)
	scoped := caller
	scoped.IdempotencyKey = key
	return operation(e, ctx, "webhooks.proposals.ingest", scoped, req, func(snap *state.Snapshot, now time.Time) (WebhookIngestResponse, []pendingEventRecord, error) {
		if err := e.authorize("webhooks.proposals.ingest", caller, nil, nil); err != nil {
			return WebhookIngestResponse{}, nil, err
		}
		accepted, err := delivery.Ingest(snap, keys, limiter, req.Envelope, now)
		if err != nil {
			return WebhookIngestResponse{}, nil, err
		}
		return WebhookIngestResponse{CorrelationID: corr, Accepted: accepted}, nil, nil
	})
}
