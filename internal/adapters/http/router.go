package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler, gatewaySecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })
	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(gatewaySecret))

			r.Post("/deals", handler.createDeal)
			r.Get("/deals/{dealID}", handler.getDeal)
			r.Post("/deals/{dealID}/delivery", handler.markDelivered)
			r.Post("/deals/{dealID}/approval", handler.approveAndSettle)
			r.Post("/deals/{dealID}/force-settlement", handler.forceSettle)
			r.Post("/deals/{dealID}/dispute", handler.raiseDispute)
			r.Post("/deals/{dealID}/resolution", handler.resolveDispute)

			r.Post("/grants", handler.createGrant)
			r.Get("/grants/{grantID}", handler.getGrant)
			r.Post("/grants/{grantID}/attestation", handler.attestGrant)
			r.Post("/grants/{grantID}/withdrawal", handler.withdrawGrant)
			r.Post("/grants/{grantID}/refund", handler.refundGrant)

			r.Post("/splits", handler.defineSplit)
			r.Post("/splits/signed", handler.defineSplitSigned)
			r.Get("/splits/{splitID}", handler.getSplit)

			r.Post("/payouts", handler.executePayout)
			r.Post("/payouts/signed", handler.executePayoutSigned)

			r.Put("/admin/fee-policy", handler.updateFeePolicy)
			r.Get("/accounting/{asset}", handler.accountingTotal)
			r.Get("/parties/{party}/stats", handler.partyStats)
			r.Get("/signers/{signer}/nonce", handler.signerNonce)
		})
	})
	return r
}
