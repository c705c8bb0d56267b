package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/createnexxusvision/NILPOC/internal/application"
	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/domain"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func (h *Handler) createDeal(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	input, err := decodeCreateDeal(req)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	deal, err := h.service.CreateDeal(r.Context(), actor, input)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "deal created", toDealResponse(deal))
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathID(r, "dealID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	deal, err := h.service.GetDeal(r.Context(), dealID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "deal", toDealResponse(deal))
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathID(r, "dealID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	var req contracts.MarkDeliveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	deal, err := h.service.MarkDelivered(r.Context(), actor, dealID, req.EvidenceDigest)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "delivery recorded", toDealResponse(deal))
}

func (h *Handler) approveAndSettle(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, func(actor application.Actor, dealID uint64) (application.SettlementResult, error) {
		return h.service.ApproveAndSettle(r.Context(), actor, dealID)
	}, "deal settled")
}

func (h *Handler) forceSettle(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, func(actor application.Actor, dealID uint64) (application.SettlementResult, error) {
		return h.service.ForceSettle(r.Context(), actor, dealID)
	}, "deal force settled")
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, run func(application.Actor, uint64) (application.SettlementResult, error), message string) {
	dealID, err := pathID(r, "dealID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	result, err := run(actor, dealID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, message, toSettlementResponse(result))
}

func (h *Handler) raiseDispute(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathID(r, "dealID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	var req contracts.RaiseDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	deal, err := h.service.RaiseDispute(r.Context(), actor, dealID, req.ReasonCode, req.EvidenceDigest)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "dispute raised", toDealResponse(deal))
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	dealID, err := pathID(r, "dealID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	var req contracts.ResolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	result, err := h.service.ResolveDispute(r.Context(), actor, dealID, req.Refund)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "dispute resolved", toSettlementResponse(result))
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	input, err := decodeCreateGrant(req)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	grant, err := h.service.CreateGrant(r.Context(), actor, input)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "grant created", toGrantResponse(grant))
}

func (h *Handler) getGrant(w http.ResponseWriter, r *http.Request) {
	grantID, err := pathID(r, "grantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	grant, err := h.service.GetGrant(r.Context(), grantID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "grant", toGrantResponse(grant))
}

func (h *Handler) attestGrant(w http.ResponseWriter, r *http.Request) {
	grantID, err := pathID(r, "grantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	var req contracts.AttestGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	grant, err := h.service.AttestGrant(r.Context(), actor, grantID, req.AttestationDigest)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "grant attested", toGrantResponse(grant))
}

func (h *Handler) withdrawGrant(w http.ResponseWriter, r *http.Request) {
	h.closeGrant(w, r, h.service.WithdrawGrant, "grant withdrawn")
}

func (h *Handler) refundGrant(w http.ResponseWriter, r *http.Request) {
	h.closeGrant(w, r, h.service.RefundGrant, "grant refunded")
}

func (h *Handler) closeGrant(w http.ResponseWriter, r *http.Request, run func(context.Context, application.Actor, uint64) (domain.Grant, error), message string) {
	grantID, err := pathID(r, "grantID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	grant, err := run(r.Context(), actor, grantID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, message, toGrantResponse(grant))
}

func (h *Handler) defineSplit(w http.ResponseWriter, r *http.Request) {
	var req contracts.DefineSplitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	split, err := h.service.DefineSplit(r.Context(), actor, toRecipients(req.Recipients))
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "split defined", toSplitResponse(split))
}

func (h *Handler) defineSplitSigned(w http.ResponseWriter, r *http.Request) {
	var req contracts.DefineSplitSignedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	auth, err := decodeAuthorization(req.Signer, req.Nonce, req.Deadline, req.Signature)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	split, err := h.service.DefineSplitWithSignature(r.Context(), actor, toRecipients(req.Recipients), auth)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "split defined", toSplitResponse(split))
}

func (h *Handler) getSplit(w http.ResponseWriter, r *http.Request) {
	splitID, err := pathID(r, "splitID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	split, err := h.service.GetSplit(r.Context(), splitID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "split", toSplitResponse(split))
}

func (h *Handler) executePayout(w http.ResponseWriter, r *http.Request) {
	var req contracts.PayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	input, err := decodePayout(req.Ref, req.Asset, req.Amount, req.AttachedAmount, req.SplitID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	payout, err := h.service.ExecutePayout(r.Context(), actor, input)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "payout executed", toPayoutResponse(payout))
}

func (h *Handler) executePayoutSigned(w http.ResponseWriter, r *http.Request) {
	var req contracts.PayoutSignedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	input, err := decodePayout(req.Ref, req.Asset, req.Amount, req.AttachedAmount, req.SplitID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	auth, err := decodeAuthorization(req.Signer, req.Nonce, req.Deadline, req.Signature)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	payout, err := h.service.ExecutePayoutWithSignature(r.Context(), actor, input, auth)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "payout executed", toPayoutResponse(payout))
}

func (h *Handler) updateFeePolicy(w http.ResponseWriter, r *http.Request) {
	var req contracts.UpdateFeePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	policy := domain.FeePolicy{FeeBps: req.FeeBps, FeeRecipient: req.FeeRecipient}
	if err := h.service.UpdateFeePolicy(r.Context(), actor, policy); err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "fee policy updated", contracts.UpdateFeePolicyRequest{FeeBps: policy.FeeBps, FeeRecipient: policy.FeeRecipient})
}

func (h *Handler) accountingTotal(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	total, err := h.service.AccountingTotal(r.Context(), asset)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "custody total", contracts.AccountingResponse{Asset: asset, Total: domain.AmountString(total)})
}

func (h *Handler) partyStats(w http.ResponseWriter, r *http.Request) {
	party := chi.URLParam(r, "party")
	stats, err := h.service.PartyStats(r.Context(), party)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "party stats", contracts.PartyStatsResponse{
		Party:          stats.Party,
		CompletedDeals: stats.CompletedDeals,
		DisputedDeals:  stats.DisputedDeals,
	})
}

func (h *Handler) signerNonce(w http.ResponseWriter, r *http.Request) {
	signer := chi.URLParam(r, "signer")
	nonce, err := h.service.SignerNonce(r.Context(), signer)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "signer nonce", map[string]any{"signer": signer, "nonce": nonce})
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a valid id", domain.ErrInvalidInput, name, raw)
	}
	return id, nil
}

func parseOptionalAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, nil
	}
	return domain.ParseAmount(raw)
}

func parseTimestamp(raw, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", domain.ErrInvalidInput, field)
	}
	return t, nil
}

func decodeCreateDeal(req contracts.CreateDealRequest) (application.CreateDealInput, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return application.CreateDealInput{}, err
	}
	attached, err := parseOptionalAmount(req.AttachedAmount)
	if err != nil {
		return application.CreateDealInput{}, err
	}
	deadline, err := parseTimestamp(req.Deadline, "deadline")
	if err != nil {
		return application.CreateDealInput{}, err
	}
	return application.CreateDealInput{
		Beneficiary:    req.Beneficiary,
		Asset:          req.Asset,
		Amount:         amount,
		AttachedAmount: attached,
		Deadline:       deadline,
		TermsDigest:    req.TermsDigest,
	}, nil
}

func decodeCreateGrant(req contracts.CreateGrantRequest) (application.CreateGrantInput, error) {
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return application.CreateGrantInput{}, err
	}
	attached, err := parseOptionalAmount(req.AttachedAmount)
	if err != nil {
		return application.CreateGrantInput{}, err
	}
	unlockTime, err := parseTimestamp(req.UnlockTime, "unlock_time")
	if err != nil {
		return application.CreateGrantInput{}, err
	}
	return application.CreateGrantInput{
		Beneficiary:    req.Beneficiary,
		Asset:          req.Asset,
		Amount:         amount,
		AttachedAmount: attached,
		UnlockTime:     unlockTime,
		TermsDigest:    req.TermsDigest,
	}, nil
}

func decodePayout(ref, asset, amount, attached string, splitID uint64) (application.PayoutInput, error) {
	parsedAmount, err := domain.ParseAmount(amount)
	if err != nil {
		return application.PayoutInput{}, err
	}
	parsedAttached, err := parseOptionalAmount(attached)
	if err != nil {
		return application.PayoutInput{}, err
	}
	return application.PayoutInput{
		Ref:            ref,
		Asset:          asset,
		Amount:         parsedAmount,
		AttachedAmount: parsedAttached,
		SplitID:        splitID,
	}, nil
}

func decodeAuthorization(signer string, nonce uint64, deadline, signature string) (application.SignedAuthorization, error) {
	parsedDeadline, err := parseTimestamp(deadline, "deadline")
	if err != nil {
		return application.SignedAuthorization{}, err
	}
	rawSignature, err := hex.DecodeString(signature)
	if err != nil {
		return application.SignedAuthorization{}, fmt.Errorf("%w: signature must be hex encoded", domain.ErrInvalidInput)
	}
	return application.SignedAuthorization{
		Signer:    signer,
		Nonce:     nonce,
		Deadline:  parsedDeadline,
		Signature: rawSignature,
	}, nil
}

func toRecipients(dtos []contracts.SplitRecipientDTO) []domain.SplitRecipient {
	recipients := make([]domain.SplitRecipient, 0, len(dtos))
	for _, dto := range dtos {
		recipients = append(recipients, domain.SplitRecipient{Recipient: dto.Recipient, ShareBps: dto.ShareBps})
	}
	return recipients
}

func toDealResponse(deal domain.Deal) contracts.DealResponse {
	deliveredAt := ""
	if deal.DeliveredAt != nil {
		deliveredAt = deal.DeliveredAt.UTC().Format(time.RFC3339)
	}
	return contracts.DealResponse{
		DealID:         deal.DealID,
		Sponsor:        deal.Sponsor,
		Beneficiary:    deal.Beneficiary,
		Asset:          deal.Asset,
		Amount:         domain.AmountString(deal.Amount),
		Deadline:       deal.Deadline.UTC().Format(time.RFC3339),
		TermsDigest:    deal.TermsDigest,
		EvidenceDigest: deal.EvidenceDigest,
		DeliveredAt:    deliveredAt,
		Status:         string(deal.Status),
	}
}

func toSettlementResponse(result application.SettlementResult) map[string]any {
	return map[string]any{
		"deal":  toDealResponse(result.Deal),
		"gross": domain.AmountString(result.Gross),
		"fee":   domain.AmountString(result.Fee),
		"net":   domain.AmountString(result.Net),
	}
}

func toGrantResponse(grant domain.Grant) contracts.GrantResponse {
	return contracts.GrantResponse{
		GrantID:           grant.GrantID,
		Sponsor:           grant.Sponsor,
		Beneficiary:       grant.Beneficiary,
		Asset:             grant.Asset,
		Amount:            domain.AmountString(grant.Amount),
		UnlockTime:        grant.UnlockTime.UTC().Format(time.RFC3339),
		TermsDigest:       grant.TermsDigest,
		AttestationDigest: grant.AttestationDigest,
		Attested:          grant.Attested,
		Withdrawn:         grant.Withdrawn,
		Refunded:          grant.Refunded,
	}
}

func toSplitResponse(split domain.Split) contracts.SplitResponse {
	recipients := make([]contracts.SplitRecipientDTO, 0, len(split.Recipients))
	for _, recipient := range split.Recipients {
		recipients = append(recipients, contracts.SplitRecipientDTO{Recipient: recipient.Recipient, ShareBps: recipient.ShareBps})
	}
	return contracts.SplitResponse{SplitID: split.SplitID, Recipients: recipients, ContentHash: split.ContentHash}
}

func toPayoutResponse(payout domain.Payout) contracts.PayoutResponse {
	return contracts.PayoutResponse{
		PayoutID:   payout.PayoutID,
		Ref:        payout.Ref,
		Asset:      payout.Asset,
		Amount:     domain.AmountString(payout.Amount),
		SplitID:    payout.SplitID,
		Payer:      payout.Payer,
		Authorizer: payout.Authorizer,
		ExecutedAt: payout.ExecutedAt.UTC().Format(time.RFC3339),
	}
}
