// Package gateway adapts the engine's operation set onto net/http via chi,
// a transport the core engine deliberately treats as an external
// collaborator (spec.md §1). Every handler here does the same three
// things: decode a wire envelope into an engine.Caller, decode the
// operation payload, and call straight into the corresponding
// engine.Engine method.
package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"swapmesh/core/types"
	"swapmesh/delivery"
	"swapmesh/engine"
)

// Server holds everything a gateway handler needs to reach the engine.
type Server struct {
	Engine      *engine.Engine
	PartnerKeys delivery.PartnerKeySet
	Limiter     *delivery.Limiter
}

// wireEnvelope is the actor/auth portion of every mutating request body.
// Embedding it alongside an engine request type flattens both sets of
// JSON tags into one object, so a caller posts a single flat JSON
// document per spec.md §6's request envelope.
type wireEnvelope struct {
	Actor          types.Actor `json:"actor"`
	Delegation     string      `json:"delegation,omitempty"`
	Scopes         []string    `json:"scopes,omitempty"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}

func (w wireEnvelope) caller(e *engine.Engine) (engine.Caller, error) {
	return e.BuildCaller(engine.RequestEnvelope{
		Actor:          w.Actor,
		Delegation:     w.Delegation,
		Scopes:         w.Scopes,
		IdempotencyKey: w.IdempotencyKey,
	})
}

// callerFromQuery builds a Caller for GET requests, which carry no body.
func callerFromQuery(r *http.Request, e *engine.Engine) (engine.Caller, error) {
	q := r.URL.Query()
	env := engine.RequestEnvelope{
		Actor: types.Actor{
			Type: types.ActorType(q.Get("actor_type")),
			ID:   q.Get("actor_id"),
		},
		Delegation: q.Get("delegation"),
	}
	if raw := q.Get("scopes"); raw != "" {
		env.Scopes = strings.Split(raw, ",")
	}
	return e.BuildCaller(env)
}

// --- intents ---

type createIntentWire struct {
	wireEnvelope
	engine.CreateIntentRequest
}

func (s *Server) createIntent(w http.ResponseWriter, r *http.Request) {
	var wire createIntentWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.CreateIntent(r.Context(), caller, wire.CreateIntentRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type updateIntentWire struct {
	wireEnvelope
	engine.UpdateIntentRequest
}

func (s *Server) updateIntent(w http.ResponseWriter, r *http.Request) {
	var wire updateIntentWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	wire.IntentID = chi.URLParam(r, "intentID")
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.UpdateIntent(r.Context(), caller, wire.UpdateIntentRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cancelIntent(w http.ResponseWriter, r *http.Request) {
	var wire wireEnvelope
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.CancelIntent(r.Context(), caller, engine.CancelIntentRequest{IntentID: chi.URLParam(r, "intentID")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getIntent(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	intent, err := s.Engine.GetIntent(caller, chi.URLParam(r, "intentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *Server) listIntents(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	intents, err := s.Engine.ListIntents(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intents)
}

// --- matching runs ---

type createMatchingRunWire struct {
	wireEnvelope
	engine.CreateMatchingRunRequest
}

func (s *Server) createMatchingRun(w http.ResponseWriter, r *http.Request) {
	var wire createMatchingRunWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.CreateMatchingRun(r.Context(), caller, wire.CreateMatchingRunRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getMatchingRun(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	run, err := s.Engine.GetMatchingRun(caller, chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// --- cycle proposals ---

func (s *Server) getProposal(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.GetProposal(caller, chi.URLParam(r, "proposalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listProposals(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	proposals, err := s.Engine.ListProposals(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

type acceptDeclineWire struct {
	wireEnvelope
	engine.AcceptDeclineRequest
}

func (s *Server) acceptProposal(w http.ResponseWriter, r *http.Request) {
	s.acceptOrDecline(w, r, s.Engine.AcceptProposal)
}

func (s *Server) declineProposal(w http.ResponseWriter, r *http.Request) {
	s.acceptOrDecline(w, r, s.Engine.DeclineProposal)
}

func (s *Server) acceptOrDecline(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, caller engine.Caller, req engine.AcceptDeclineRequest) (engine.ProposalResponse, error)) {
	var wire acceptDeclineWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	wire.ProposalID = chi.URLParam(r, "proposalID")
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := fn(r.Context(), caller, wire.AcceptDeclineRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- settlement ---

type startSettlementWire struct {
	wireEnvelope
	engine.StartSettlementRequest
}

func (s *Server) startSettlement(w http.ResponseWriter, r *http.Request) {
	var wire startSettlementWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.StartSettlement(r.Context(), caller, wire.StartSettlementRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type confirmDepositWire struct {
	wireEnvelope
	engine.ConfirmDepositRequest
}

func (s *Server) confirmDeposit(w http.ResponseWriter, r *http.Request) {
	var wire confirmDepositWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.ConfirmDeposit(r.Context(), caller, wire.ConfirmDepositRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type beginExecutionWire struct {
	wireEnvelope
	engine.BeginExecutionRequest
}

func (s *Server) beginExecution(w http.ResponseWriter, r *http.Request) {
	var wire beginExecutionWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.BeginExecution(r.Context(), caller, wire.BeginExecutionRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type completeSettlementWire struct {
	wireEnvelope
	engine.CompleteSettlementRequest
}

func (s *Server) completeSettlement(w http.ResponseWriter, r *http.Request) {
	var wire completeSettlementWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.CompleteSettlement(r.Context(), caller, wire.CompleteSettlementRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type expireDepositWindowWire struct {
	wireEnvelope
	engine.ExpireDepositWindowRequest
}

// expireDepositWindow is the operator sweep endpoint; it is not meant to
// be reachable by ordinary actors, only by whatever internal scheduler
// calls the gateway on the deposit-window cron (the manifest still gates
// it by actor type regardless of what mounts this route).
func (s *Server) expireDepositWindow(w http.ResponseWriter, r *http.Request) {
	var wire expireDepositWindowWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.ExpireDepositWindow(r.Context(), caller, wire.ExpireDepositWindowRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) settlementStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	timeline, err := s.Engine.SettlementStatus(caller, chi.URLParam(r, "cycleID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeline)
}

func (s *Server) getReceipt(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := s.Engine.GetReceipt(caller, chi.URLParam(r, "receiptID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// --- vault ---

type depositVaultWire struct {
	wireEnvelope
	engine.DepositVaultRequest
}

func (s *Server) depositVault(w http.ResponseWriter, r *http.Request) {
	var wire depositVaultWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.DepositVault(r.Context(), caller, wire.DepositVaultRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type reserveVaultWire struct {
	wireEnvelope
	engine.ReserveVaultRequest
}

func (s *Server) reserveVault(w http.ResponseWriter, r *http.Request) {
	var wire reserveVaultWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	wire.HoldingID = chi.URLParam(r, "holdingID")
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.ReserveVault(r.Context(), caller, wire.ReserveVaultRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) releaseVault(w http.ResponseWriter, r *http.Request) {
	var wire wireEnvelope
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.ReleaseVault(r.Context(), caller, engine.ReleaseVaultRequest{HoldingID: chi.URLParam(r, "holdingID")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) withdrawVault(w http.ResponseWriter, r *http.Request) {
	var wire wireEnvelope
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.WithdrawVault(r.Context(), caller, engine.WithdrawVaultRequest{HoldingID: chi.URLParam(r, "holdingID")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getVaultHolding(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	holding, err := s.Engine.GetVaultHolding(caller, chi.URLParam(r, "holdingID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holding)
}

func (s *Server) listVaultHoldings(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	holdings, err := s.Engine.ListVaultHoldings(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

// --- delegations ---

type mintDelegationWire struct {
	wireEnvelope
	engine.MintDelegationRequest
}

func (s *Server) mintDelegation(w http.ResponseWriter, r *http.Request) {
	var wire mintDelegationWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.MintDelegation(r.Context(), caller, wire.MintDelegationRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) revokeDelegation(w http.ResponseWriter, r *http.Request) {
	var wire wireEnvelope
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.RevokeDelegation(r.Context(), caller, engine.RevokeDelegationRequest{DelegationID: chi.URLParam(r, "delegationID")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listDelegations(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	delegations, err := s.Engine.ListDelegations(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delegations)
}

// --- webhooks ---

type webhookWire struct {
	wireEnvelope
	Envelope delivery.InboundEnvelope `json:"envelope"`
}

func (s *Server) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	var wire webhookWire
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	caller, err := wire.caller(s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.Engine.Ingest(r.Context(), caller, s.PartnerKeys, s.Limiter, engine.WebhookIngestRequest{Envelope: wire.Envelope})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromQuery(r, s.Engine)
	if err != nil {
		writeError(w, err)
		return
	}
	status, err := s.Engine.HealthRead(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
