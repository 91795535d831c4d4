package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

type RouterOptions struct {
	AllowedOrigins []string
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(handler.logger))
	r.Use(loggingMiddleware(handler.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/v1", func(r chi.Router) {
		r.Post("/payments/verifications", handler.recordPaymentVerification)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/collaborations", handler.initCollaboration)
			r.Get("/collaborations/{collaboration_id}", handler.getCollaboration)
			r.Post("/collaborations/{collaboration_id}/actions", handler.performAction)
			r.Get("/collaborations/{collaboration_id}/transitions", handler.listTransitions)
			r.Get("/collaborations/{collaboration_id}/breakdown", handler.getBreakdown)
			r.Get("/settlements/{settlement_id}", handler.getSettlement)
			r.Get("/settlements/{settlement_id}/escrow", handler.getEscrowHold)
			r.Get("/wallets/{account_id}", handler.getWallet)
			r.Get("/wallets/{account_id}/entries", handler.listLedgerEntries)

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/settlements/{settlement_id}/advance-confirmations", handler.confirmAdvance)
				r.Post("/settlements/{settlement_id}/final-confirmations", handler.confirmFinal)
				r.Post("/settlements/{settlement_id}/refunds", handler.refundSettlement)
				r.Post("/wallets/credits", handler.creditWallet)
				r.Get("/wallets/{account_id}/reconciliation", handler.reconcileWallet)
				r.Get("/commission-rate", handler.getCommissionRate)
				r.Put("/commission-rate", handler.setCommissionRate)
			})
		})
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
	}).Handler(r)
}
