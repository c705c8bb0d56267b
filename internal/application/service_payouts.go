package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// ExecutePayout pulls the amount from the caller and distributes it across
// the referenced split in one pass. Payouts are pass-through: funds are in
// custody only for the duration of the call and never enter the custody
// total.
func (s *Service) ExecutePayout(ctx context.Context, actor Actor, input PayoutInput) (domain.Payout, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Payout{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Payout{}, err
	}
	return s.executePayout(ctx, actor, input, actor.Identity)
}

// ExecutePayoutWithSignature runs a payout authorized off-band by a
// capability holder. The relayer supplies the funds; the signer vouches for
// the exact parameter set.
func (s *Service) ExecutePayoutWithSignature(ctx context.Context, relayer Actor, input PayoutInput, auth SignedAuthorization) (domain.Payout, error) {
	if err := s.requireActor(relayer); err != nil {
		return domain.Payout{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Payout{}, err
	}
	if err := validatePayoutInput(input); err != nil {
		return domain.Payout{}, err
	}
	digest := PayoutDigest(input.Ref, input.Asset, input.Amount, input.SplitID, auth.Nonce, auth.Deadline)
	if err := s.verifySignedAuthorization(ctx, auth, digest, domain.CapabilityOperator, domain.CapabilityAdministrator); err != nil {
		return domain.Payout{}, err
	}
	return s.executePayout(ctx, relayer, input, auth.Signer)
}

func validatePayoutInput(input PayoutInput) error {
	if strings.TrimSpace(input.Ref) == "" {
		return fmt.Errorf("%w: payout ref is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Asset) == "" {
		return fmt.Errorf("%w: asset is required", domain.ErrInvalidInput)
	}
	if input.Amount == nil || input.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func (s *Service) executePayout(ctx context.Context, actor Actor, input PayoutInput, authorizer string) (domain.Payout, error) {
	if err := validatePayoutInput(input); err != nil {
		return domain.Payout{}, err
	}
	split, err := s.splits.GetByID(ctx, input.SplitID)
	if err != nil {
		return domain.Payout{}, err
	}

	if err := s.collectFunds(ctx, input.Asset, actor.Identity, input.Amount, input.AttachedAmount); err != nil {
		return domain.Payout{}, err
	}

	parts := domain.ComputeDistribution(input.Amount, split.Recipients)
	pushed := make([]*big.Int, 0, len(parts))
	for i, part := range parts {
		if part.Sign() == 0 {
			pushed = append(pushed, part)
			continue
		}
		if err := s.treasury.Push(ctx, input.Asset, split.Recipients[i].Recipient, part); err != nil {
			s.unwindPayout(ctx, actor, input, split, pushed)
			return domain.Payout{}, fmt.Errorf("%w: distribution to %s: %v", domain.ErrTransferFailed, split.Recipients[i].Recipient, err)
		}
		pushed = append(pushed, part)
	}

	now := s.nowFn()
	record := domain.Payout{
		Ref:        input.Ref,
		Asset:      input.Asset,
		Amount:     domain.CloneAmount(input.Amount),
		SplitID:    split.SplitID,
		Payer:      actor.Identity,
		Authorizer: authorizer,
		ExecutedAt: now,
	}
	appended, err := s.payouts.Append(ctx, record)
	if err != nil {
		// The distribution already reached every recipient as requested, so
		// nothing is clawed back; only the audit record is missing.
		s.logger.ErrorContext(ctx, "payout distributed but record append failed, manual reconciliation required",
			slog.String("ref", record.Ref),
			slog.String("asset", record.Asset),
			slog.String("amount", record.Amount.String()),
			slog.Uint64("split_id", record.SplitID),
			slog.String("payer", record.Payer),
			slog.String("authorizer", record.Authorizer),
			slog.String("error", err.Error()))
		return domain.Payout{}, fmt.Errorf("append payout record: %w", err)
	}
	if err := s.enqueuePayoutExecuted(ctx, actor, appended); err != nil {
		return domain.Payout{}, err
	}
	s.logger.InfoContext(ctx, "payout executed",
		slog.String("operation", "payout"),
		slog.String("outcome", "success"),
		slog.Uint64("payout_id", appended.PayoutID),
		slog.String("ref", appended.Ref),
		slog.String("asset", appended.Asset),
		slog.String("amount", appended.Amount.String()),
		slog.Uint64("split_id", appended.SplitID),
		slog.String("request_id", actor.RequestID))
	return appended, nil
}

// unwindPayout claws back completed distribution legs and returns the pulled
// amount to the payer after a mid-distribution failure. Best effort and
// loudly logged; any leg that cannot be recovered needs manual
// reconciliation.
func (s *Service) unwindPayout(ctx context.Context, actor Actor, input PayoutInput, split domain.Split, pushed []*big.Int) {
	recovered := big.NewInt(0)
	for i, part := range pushed {
		if part.Sign() == 0 {
			continue
		}
		if err := s.treasury.Pull(ctx, input.Asset, split.Recipients[i].Recipient, part); err != nil {
			s.logger.ErrorContext(ctx, "payout leg claw-back failed, manual reconciliation required",
				slog.String("ref", input.Ref),
				slog.String("recipient", split.Recipients[i].Recipient),
				slog.String("amount", part.String()),
				slog.String("error", err.Error()))
			continue
		}
		recovered.Add(recovered, part)
	}
	unpushed := domain.CloneAmount(input.Amount)
	for _, part := range pushed {
		unpushed.Sub(unpushed, part)
	}
	refund := new(big.Int).Add(unpushed, recovered)
	if refund.Sign() > 0 {
		s.returnFunds(ctx, input.Asset, actor.Identity, refund, "payout unwind")
	}
}
