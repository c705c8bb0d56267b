package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/domain"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

const (
	entityKindDeal  = "deal"
	entityKindGrant = "grant"
)

// CreateDeal funds a new bilateral escrow. Funds enter custody before the
// deal record exists; if the record cannot be written the pulled funds are
// returned to the sponsor.
func (s *Service) CreateDeal(ctx context.Context, actor Actor, input CreateDealInput) (domain.Deal, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Deal{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Deal{}, err
	}
	now := s.nowFn()
	if err := domain.ValidateCreateDealInput(actor.Identity, input.Beneficiary, input.Asset, input.Amount, input.Deadline, now); err != nil {
		return domain.Deal{}, err
	}
	if strings.TrimSpace(input.TermsDigest) == "" {
		return domain.Deal{}, fmt.Errorf("%w: terms digest is required", domain.ErrInvalidInput)
	}

	if err := s.collectFunds(ctx, input.Asset, actor.Identity, input.Amount, input.AttachedAmount); err != nil {
		return domain.Deal{}, err
	}

	deal := domain.Deal{
		Sponsor:     actor.Identity,
		Beneficiary: input.Beneficiary,
		Asset:       input.Asset,
		Amount:      domain.CloneAmount(input.Amount),
		Deadline:    input.Deadline.UTC(),
		TermsDigest: input.TermsDigest,
		Status:      domain.DealStatusFunded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.deals.Create(ctx, deal)
	if err != nil {
		s.returnFunds(ctx, input.Asset, actor.Identity, input.Amount, "deal create")
		return domain.Deal{}, fmt.Errorf("create deal: %w", err)
	}
	if err := s.accounting.Increase(ctx, created.Asset, created.Amount); err != nil {
		s.returnFunds(ctx, input.Asset, actor.Identity, input.Amount, "deal create")
		return domain.Deal{}, fmt.Errorf("record custody increase: %w", err)
	}
	if err := s.enqueueDealCreated(ctx, actor, created); err != nil {
		return domain.Deal{}, err
	}
	s.logger.InfoContext(ctx, "deal created",
		slog.String("operation", "create_deal"),
		slog.String("outcome", "success"),
		slog.Uint64("deal_id", created.DealID),
		slog.String("asset", created.Asset),
		slog.String("amount", domain.AmountString(created.Amount)),
		slog.String("request_id", actor.RequestID))
	return created, nil
}

// MarkDelivered records the beneficiary's delivery claim with its evidence.
func (s *Service) MarkDelivered(ctx context.Context, actor Actor, dealID uint64, evidenceDigest string) (domain.Deal, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Deal{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Deal{}, err
	}
	if strings.TrimSpace(evidenceDigest) == "" {
		return domain.Deal{}, fmt.Errorf("%w: evidence digest is required", domain.ErrInvalidInput)
	}
	release, err := s.lockEntity(entityKindDeal, dealID)
	if err != nil {
		return domain.Deal{}, err
	}
	defer release()

	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return domain.Deal{}, err
	}
	if actor.Identity != deal.Beneficiary {
		return domain.Deal{}, fmt.Errorf("%w: only the beneficiary may mark delivery", domain.ErrForbidden)
	}
	if err := domain.ValidateDealTransition(deal.Status, domain.DealStatusDelivered); err != nil {
		return domain.Deal{}, err
	}
	now := s.nowFn()
	deal.Status = domain.DealStatusDelivered
	deal.EvidenceDigest = evidenceDigest
	deal.DeliveredAt = &now
	deal.UpdatedAt = now
	if err := s.deals.Update(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("update deal: %w", err)
	}
	if err := s.enqueueDealDelivered(ctx, actor, deal); err != nil {
		return domain.Deal{}, err
	}
	return deal, nil
}

// ApproveAndSettle is the sponsor's acceptance of a delivered deal.
func (s *Service) ApproveAndSettle(ctx context.Context, actor Actor, dealID uint64) (SettlementResult, error) {
	if err := s.requireActor(actor); err != nil {
		return SettlementResult{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return SettlementResult{}, err
	}
	release, err := s.lockEntity(entityKindDeal, dealID)
	if err != nil {
		return SettlementResult{}, err
	}
	defer release()

	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return SettlementResult{}, err
	}
	if actor.Identity != deal.Sponsor {
		return SettlementResult{}, fmt.Errorf("%w: only the sponsor may approve settlement", domain.ErrForbidden)
	}
	if deal.Status != domain.DealStatusDelivered {
		return SettlementResult{}, fmt.Errorf("%w: deal %d is %s, approval requires delivered", domain.ErrInvalidStateTransition, dealID, deal.Status)
	}
	return s.settleDeal(ctx, actor, deal)
}

// ForceSettle lets the beneficiary claim a delivered deal the sponsor never
// approved, once the deadline has passed.
func (s *Service) ForceSettle(ctx context.Context, actor Actor, dealID uint64) (SettlementResult, error) {
	if err := s.requireActor(actor); err != nil {
		return SettlementResult{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return SettlementResult{}, err
	}
	release, err := s.lockEntity(entityKindDeal, dealID)
	if err != nil {
		return SettlementResult{}, err
	}
	defer release()

	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return SettlementResult{}, err
	}
	if actor.Identity != deal.Beneficiary {
		return SettlementResult{}, fmt.Errorf("%w: only the beneficiary may force settlement", domain.ErrForbidden)
	}
	if deal.Status != domain.DealStatusDelivered {
		return SettlementResult{}, fmt.Errorf("%w: deal %d is %s, force settlement requires delivered", domain.ErrInvalidStateTransition, dealID, deal.Status)
	}
	if s.nowFn().Before(deal.Deadline) {
		return SettlementResult{}, fmt.Errorf("%w: deal %d deadline %s has not passed", domain.ErrDeadlineNotReached, dealID, deal.Deadline.Format("2006-01-02T15:04:05Z07:00"))
	}
	return s.settleDeal(ctx, actor, deal)
}

// RaiseDispute freezes a funded or delivered deal and bumps both parties'
// dispute counters.
func (s *Service) RaiseDispute(ctx context.Context, actor Actor, dealID uint64, reasonCode, evidenceDigest string) (domain.Deal, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Deal{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Deal{}, err
	}
	if strings.TrimSpace(reasonCode) == "" {
		return domain.Deal{}, fmt.Errorf("%w: reason code is required", domain.ErrInvalidInput)
	}
	release, err := s.lockEntity(entityKindDeal, dealID)
	if err != nil {
		return domain.Deal{}, err
	}
	defer release()

	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return domain.Deal{}, err
	}
	if actor.Identity != deal.Sponsor && actor.Identity != deal.Beneficiary {
		return domain.Deal{}, fmt.Errorf("%w: only a deal party may raise a dispute", domain.ErrForbidden)
	}
	if err := domain.ValidateDealTransition(deal.Status, domain.DealStatusDisputed); err != nil {
		return domain.Deal{}, err
	}
	deal.Status = domain.DealStatusDisputed
	deal.UpdatedAt = s.nowFn()
	if err := s.deals.Update(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("update deal: %w", err)
	}
	if err := s.partyStats.IncrementDisputed(ctx, deal.Sponsor); err != nil {
		return domain.Deal{}, fmt.Errorf("record sponsor dispute: %w", err)
	}
	if err := s.partyStats.IncrementDisputed(ctx, deal.Beneficiary); err != nil {
		return domain.Deal{}, fmt.Errorf("record beneficiary dispute: %w", err)
	}
	if err := s.enqueueDealDisputed(ctx, actor, deal, reasonCode, evidenceDigest); err != nil {
		return domain.Deal{}, err
	}
	return deal, nil
}

// ResolveDispute is the arbitrator verdict: refund returns the full gross
// amount to the sponsor with no fee, otherwise the deal settles normally.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, dealID uint64, refund bool) (SettlementResult, error) {
	if err := s.requireActor(actor); err != nil {
		return SettlementResult{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return SettlementResult{}, err
	}
	if err := s.requireAnyCapability(ctx, actor.Identity, domain.CapabilityArbitrator, domain.CapabilityAdministrator); err != nil {
		return SettlementResult{}, err
	}
	release, err := s.lockEntity(entityKindDeal, dealID)
	if err != nil {
		return SettlementResult{}, err
	}
	defer release()

	deal, err := s.deals.GetByID(ctx, dealID)
	if err != nil {
		return SettlementResult{}, err
	}
	if deal.Status != domain.DealStatusDisputed {
		return SettlementResult{}, fmt.Errorf("%w: deal %d is %s, resolution requires disputed", domain.ErrInvalidStateTransition, dealID, deal.Status)
	}
	if refund {
		return s.refundDeal(ctx, actor, deal)
	}
	return s.settleDeal(ctx, actor, deal)
}

func (s *Service) GetDeal(ctx context.Context, dealID uint64) (domain.Deal, error) {
	return s.deals.GetByID(ctx, dealID)
}

// settleDeal finalizes the deal record and the custody total before any
// value leaves custody. Callers hold the entity lock and have already
// checked authorization and status; the zero-amount guard here is the last
// line against double release.
func (s *Service) settleDeal(ctx context.Context, actor Actor, deal domain.Deal) (SettlementResult, error) {
	if deal.Amount == nil || deal.Amount.Sign() == 0 {
		return SettlementResult{}, fmt.Errorf("%w: deal %d holds no funds", domain.ErrAlreadySettled, deal.DealID)
	}
	gross := domain.CloneAmount(deal.Amount)
	policy := s.FeePolicy()
	feeBps := policy.FeeBps
	if !policy.Enabled() {
		feeBps = 0
	}
	fee, net := domain.SplitFee(gross, feeBps)

	prior := deal
	now := s.nowFn()
	deal.Amount = big.NewInt(0)
	deal.Status = domain.DealStatusSettled
	deal.UpdatedAt = now
	if err := s.deals.Update(ctx, deal); err != nil {
		return SettlementResult{}, fmt.Errorf("update deal: %w", err)
	}
	if err := s.accounting.Decrease(ctx, deal.Asset, gross); err != nil {
		s.restoreDeal(ctx, prior)
		return SettlementResult{}, fmt.Errorf("record custody decrease: %w", err)
	}

	if fee.Sign() > 0 {
		if err := s.treasury.Push(ctx, deal.Asset, policy.FeeRecipient, fee); err != nil {
			s.compensateSettlement(ctx, prior, gross, nil, "")
			return SettlementResult{}, fmt.Errorf("%w: fee transfer: %v", domain.ErrTransferFailed, err)
		}
	}
	if err := s.treasury.Push(ctx, deal.Asset, deal.Beneficiary, net); err != nil {
		if fee.Sign() > 0 {
			s.compensateSettlement(ctx, prior, gross, fee, policy.FeeRecipient)
		} else {
			s.compensateSettlement(ctx, prior, gross, nil, "")
		}
		return SettlementResult{}, fmt.Errorf("%w: beneficiary transfer: %v", domain.ErrTransferFailed, err)
	}

	if err := s.partyStats.IncrementCompleted(ctx, deal.Sponsor); err != nil {
		return SettlementResult{}, fmt.Errorf("record sponsor completion: %w", err)
	}
	if err := s.partyStats.IncrementCompleted(ctx, deal.Beneficiary); err != nil {
		return SettlementResult{}, fmt.Errorf("record beneficiary completion: %w", err)
	}

	s.mintSettlementReceipt(ctx, deal, gross, fee, now)

	if err := s.enqueueDealSettled(ctx, actor, deal, gross, fee, net, now); err != nil {
		return SettlementResult{}, err
	}
	s.logger.InfoContext(ctx, "deal settled",
		slog.String("operation", "settle_deal"),
		slog.String("outcome", "success"),
		slog.Uint64("deal_id", deal.DealID),
		slog.String("gross", gross.String()),
		slog.String("fee", fee.String()),
		slog.String("net", net.String()),
		slog.String("request_id", actor.RequestID))
	return SettlementResult{Deal: deal, Gross: gross, Fee: fee, Net: net}, nil
}

// refundDeal returns the full escrowed amount to the sponsor. No fee is
// extracted on refunds.
func (s *Service) refundDeal(ctx context.Context, actor Actor, deal domain.Deal) (SettlementResult, error) {
	if deal.Amount == nil || deal.Amount.Sign() == 0 {
		return SettlementResult{}, fmt.Errorf("%w: deal %d holds no funds", domain.ErrAlreadySettled, deal.DealID)
	}
	gross := domain.CloneAmount(deal.Amount)
	prior := deal
	now := s.nowFn()
	deal.Amount = big.NewInt(0)
	deal.Status = domain.DealStatusRefunded
	deal.UpdatedAt = now
	if err := s.deals.Update(ctx, deal); err != nil {
		return SettlementResult{}, fmt.Errorf("update deal: %w", err)
	}
	if err := s.accounting.Decrease(ctx, deal.Asset, gross); err != nil {
		s.restoreDeal(ctx, prior)
		return SettlementResult{}, fmt.Errorf("record custody decrease: %w", err)
	}
	if err := s.treasury.Push(ctx, deal.Asset, deal.Sponsor, gross); err != nil {
		s.compensateSettlement(ctx, prior, gross, nil, "")
		return SettlementResult{}, fmt.Errorf("%w: sponsor refund: %v", domain.ErrTransferFailed, err)
	}
	if err := s.enqueueDealRefunded(ctx, actor, deal, gross, now); err != nil {
		return SettlementResult{}, err
	}
	return SettlementResult{Deal: deal, Gross: gross, Fee: big.NewInt(0), Net: gross}, nil
}

// restoreDeal undoes a finalized deal record after a downstream failure.
// The entity lock is still held, so no other operation can observe the
// intermediate state.
func (s *Service) restoreDeal(ctx context.Context, prior domain.Deal) {
	if err := s.deals.Update(ctx, prior); err != nil {
		s.logger.ErrorContext(ctx, "deal state compensation failed, manual reconciliation required",
			slog.Uint64("deal_id", prior.DealID), slog.String("error", err.Error()))
	}
}

// compensateSettlement rolls back the record and custody total after a
// transfer failure, clawing back an already-pushed fee leg when there was
// one. Each step is best effort and loudly logged on failure.
func (s *Service) compensateSettlement(ctx context.Context, prior domain.Deal, gross *big.Int, pushedFee *big.Int, feeRecipient string) {
	if pushedFee != nil && pushedFee.Sign() > 0 {
		if err := s.treasury.Pull(ctx, prior.Asset, feeRecipient, pushedFee); err != nil {
			s.logger.ErrorContext(ctx, "fee claw-back failed, manual reconciliation required",
				slog.Uint64("deal_id", prior.DealID),
				slog.String("fee", pushedFee.String()),
				slog.String("error", err.Error()))
		}
	}
	if err := s.accounting.Increase(ctx, prior.Asset, gross); err != nil {
		s.logger.ErrorContext(ctx, "custody compensation failed, manual reconciliation required",
			slog.Uint64("deal_id", prior.DealID), slog.String("error", err.Error()))
	}
	s.restoreDeal(ctx, prior)
}

// mintSettlementReceipt is strictly best effort: a minting failure never
// fails an otherwise completed settlement.
func (s *Service) mintSettlementReceipt(ctx context.Context, deal domain.Deal, gross, fee *big.Int, settledAt time.Time) {
	if s.minter == nil {
		return
	}
	receipt := ports.ReceiptRequest{
		DealID:      deal.DealID,
		Sponsor:     deal.Sponsor,
		Beneficiary: deal.Beneficiary,
		Asset:       deal.Asset,
		Gross:       gross,
		Fee:         fee,
		SettledAt:   settledAt,
	}
	if err := s.minter.MintReceipt(ctx, receipt); err != nil {
		s.logger.WarnContext(ctx, "settlement receipt mint failed",
			slog.Uint64("deal_id", deal.DealID), slog.String("error", err.Error()))
	}
}

// returnFunds pushes pulled funds back to the payer after a create-path
// failure; best effort, loudly logged.
func (s *Service) returnFunds(ctx context.Context, asset, to string, amount *big.Int, stage string) {
	if err := s.treasury.Push(ctx, asset, to, amount); err != nil {
		s.logger.ErrorContext(ctx, "fund return failed, manual reconciliation required",
			slog.String("stage", stage),
			slog.String("asset", asset),
			slog.String("amount", domain.AmountString(amount)),
			slog.String("error", err.Error()))
	}
}
