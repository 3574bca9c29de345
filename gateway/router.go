package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"swapmesh/gateway/middleware"
	"swapmesh/gateway/session"
)

// RouterConfig wires a Server into a chi.Router. Session is optional: a
// nil Authenticator leaves every route open, which is only appropriate
// for local development against an in-memory store.
type RouterConfig struct {
	Server        *Server
	Session       *session.Authenticator
	Observability *middleware.Observability
}

// NewRouter builds the gateway's HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", cfg.Server.health)

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.Session != nil {
			v1.Use(middleware.RequireSession(cfg.Session))
		}
		if cfg.Observability != nil {
			v1.Use(cfg.Observability.Middleware("v1"))
		}

		v1.Route("/intents", func(sr chi.Router) {
			sr.Post("/", cfg.Server.createIntent)
			sr.Get("/", cfg.Server.listIntents)
			sr.Get("/{intentID}", cfg.Server.getIntent)
			sr.Patch("/{intentID}", cfg.Server.updateIntent)
			sr.Post("/{intentID}/cancel", cfg.Server.cancelIntent)
		})

		v1.Route("/matching-runs", func(sr chi.Router) {
			sr.Post("/", cfg.Server.createMatchingRun)
			sr.Get("/{runID}", cfg.Server.getMatchingRun)
		})

		v1.Route("/proposals", func(sr chi.Router) {
			sr.Get("/", cfg.Server.listProposals)
			sr.Get("/{proposalID}", cfg.Server.getProposal)
			sr.Post("/{proposalID}/accept", cfg.Server.acceptProposal)
			sr.Post("/{proposalID}/decline", cfg.Server.declineProposal)
		})

		v1.Route("/settlement", func(sr chi.Router) {
			sr.Post("/start", cfg.Server.startSettlement)
			sr.Post("/deposit-confirmed", cfg.Server.confirmDeposit)
			sr.Post("/begin-execution", cfg.Server.beginExecution)
			sr.Post("/complete", cfg.Server.completeSettlement)
			sr.Post("/expire-deposit-window", cfg.Server.expireDepositWindow)
			sr.Get("/{cycleID}", cfg.Server.settlementStatus)
		})

		v1.Get("/receipts/{receiptID}", cfg.Server.getReceipt)

		v1.Route("/vault", func(sr chi.Router) {
			sr.Post("/", cfg.Server.depositVault)
			sr.Get("/", cfg.Server.listVaultHoldings)
			sr.Get("/{holdingID}", cfg.Server.getVaultHolding)
			sr.Post("/{holdingID}/reserve", cfg.Server.reserveVault)
			sr.Post("/{holdingID}/release", cfg.Server.releaseVault)
			sr.Post("/{holdingID}/withdraw", cfg.Server.withdrawVault)
		})

		v1.Route("/delegations", func(sr chi.Router) {
			sr.Post("/", cfg.Server.mintDelegation)
			sr.Get("/", cfg.Server.listDelegations)
			sr.Post("/{delegationID}/revoke", cfg.Server.revokeDelegation)
		})
	})

	r.Route("/webhooks", func(wr chi.Router) {
		if cfg.Observability != nil {
			wr.Use(cfg.Observability.Middleware("webhooks"))
		}
		wr.Post("/proposals", cfg.Server.ingestWebhook)
	})

	return r
}
