package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// CreateGrant funds a new timelocked escrow for a single beneficiary.
func (s *Service) CreateGrant(ctx context.Context, actor Actor, input CreateGrantInput) (domain.Grant, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Grant{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Grant{}, err
	}
	now := s.nowFn()
	if err := domain.ValidateCreateGrantInput(actor.Identity, input.Beneficiary, input.Asset, input.Amount, input.UnlockTime, now); err != nil {
		return domain.Grant{}, err
	}
	if strings.TrimSpace(input.TermsDigest) == "" {
		return domain.Grant{}, fmt.Errorf("%w: terms digest is required", domain.ErrInvalidInput)
	}

	if err := s.collectFunds(ctx, input.Asset, actor.Identity, input.Amount, input.AttachedAmount); err != nil {
		return domain.Grant{}, err
	}

	grant := domain.Grant{
		Sponsor:     actor.Identity,
		Beneficiary: input.Beneficiary,
		Asset:       input.Asset,
		Amount:      domain.CloneAmount(input.Amount),
		UnlockTime:  input.UnlockTime.UTC(),
		TermsDigest: input.TermsDigest,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.grants.Create(ctx, grant)
	if err != nil {
		s.returnFunds(ctx, input.Asset, actor.Identity, input.Amount, "grant create")
		return domain.Grant{}, fmt.Errorf("create grant: %w", err)
	}
	if err := s.accounting.Increase(ctx, created.Asset, created.Amount); err != nil {
		s.returnFunds(ctx, input.Asset, actor.Identity, input.Amount, "grant create")
		return domain.Grant{}, fmt.Errorf("record custody increase: %w", err)
	}
	if err := s.enqueueGrantCreated(ctx, actor, created); err != nil {
		return domain.Grant{}, err
	}
	s.logger.InfoContext(ctx, "grant created",
		slog.String("operation", "create_grant"),
		slog.String("outcome", "success"),
		slog.Uint64("grant_id", created.GrantID),
		slog.String("asset", created.Asset),
		slog.String("amount", domain.AmountString(created.Amount)),
		slog.String("request_id", actor.RequestID))
	return created, nil
}

// AttestGrant records the one-time attestation that the grant's conditions
// were met. Only attester or administrator capability holders may attest.
func (s *Service) AttestGrant(ctx context.Context, actor Actor, grantID uint64, attestationDigest string) (domain.Grant, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Grant{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Grant{}, err
	}
	if strings.TrimSpace(attestationDigest) == "" {
		return domain.Grant{}, fmt.Errorf("%w: attestation digest is required", domain.ErrInvalidInput)
	}
	if err := s.requireAnyCapability(ctx, actor.Identity, domain.CapabilityAttester, domain.CapabilityAdministrator); err != nil {
		return domain.Grant{}, err
	}
	release, err := s.lockEntity(entityKindGrant, grantID)
	if err != nil {
		return domain.Grant{}, err
	}
	defer release()

	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return domain.Grant{}, err
	}
	if grant.Closed() {
		return domain.Grant{}, fmt.Errorf("%w: grant %d is closed", domain.ErrInvalidStateTransition, grantID)
	}
	if grant.Attested {
		return domain.Grant{}, fmt.Errorf("%w: grant %d", domain.ErrAlreadyAttested, grantID)
	}
	grant.Attested = true
	grant.AttestationDigest = attestationDigest
	grant.UpdatedAt = s.nowFn()
	if err := s.grants.Update(ctx, grant); err != nil {
		return domain.Grant{}, fmt.Errorf("update grant: %w", err)
	}
	if err := s.enqueueGrantAttested(ctx, actor, grant); err != nil {
		return domain.Grant{}, err
	}
	return grant, nil
}

// WithdrawGrant releases the full amount to the beneficiary once the
// timelock has elapsed and, when the policy demands it, an attestation is
// on record.
func (s *Service) WithdrawGrant(ctx context.Context, actor Actor, grantID uint64) (domain.Grant, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Grant{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Grant{}, err
	}
	release, err := s.lockEntity(entityKindGrant, grantID)
	if err != nil {
		return domain.Grant{}, err
	}
	defer release()

	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return domain.Grant{}, err
	}
	if actor.Identity != grant.Beneficiary {
		return domain.Grant{}, fmt.Errorf("%w: only the beneficiary may withdraw", domain.ErrForbidden)
	}
	if grant.Closed() || grant.Amount == nil || grant.Amount.Sign() == 0 {
		return domain.Grant{}, fmt.Errorf("%w: grant %d holds no funds", domain.ErrAlreadySettled, grantID)
	}
	now := s.nowFn()
	if now.Before(grant.UnlockTime) {
		return domain.Grant{}, fmt.Errorf("%w: grant %d unlocks at %s", domain.ErrTimelocked, grantID, grant.UnlockTime.Format("2006-01-02T15:04:05Z07:00"))
	}
	if s.cfg.GrantsRequireAttestation && !grant.Attested {
		return domain.Grant{}, fmt.Errorf("%w: grant %d", domain.ErrNotAttested, grantID)
	}
	return s.closeGrant(ctx, actor, grant, grant.Beneficiary, domain.EventGrantWithdrawn)
}

// RefundGrant returns the funds to the sponsor. It is only available before
// the timelock elapses, so a sponsor cannot snatch funds back from a
// beneficiary whose claim has already matured.
func (s *Service) RefundGrant(ctx context.Context, actor Actor, grantID uint64) (domain.Grant, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Grant{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Grant{}, err
	}
	release, err := s.lockEntity(entityKindGrant, grantID)
	if err != nil {
		return domain.Grant{}, err
	}
	defer release()

	grant, err := s.grants.GetByID(ctx, grantID)
	if err != nil {
		return domain.Grant{}, err
	}
	if actor.Identity != grant.Sponsor {
		if err := s.requireAnyCapability(ctx, actor.Identity, domain.CapabilityAdministrator); err != nil {
			return domain.Grant{}, err
		}
	}
	if grant.Closed() || grant.Amount == nil || grant.Amount.Sign() == 0 {
		return domain.Grant{}, fmt.Errorf("%w: grant %d holds no funds", domain.ErrAlreadySettled, grantID)
	}
	if !s.nowFn().Before(grant.UnlockTime) {
		return domain.Grant{}, fmt.Errorf("%w: grant %d refund window closed at unlock", domain.ErrInvalidStateTransition, grantID)
	}
	return s.closeGrant(ctx, actor, grant, grant.Sponsor, domain.EventGrantRefunded)
}

func (s *Service) GetGrant(ctx context.Context, grantID uint64) (domain.Grant, error) {
	return s.grants.GetByID(ctx, grantID)
}

// closeGrant zeroes the grant and the custody total, then pushes the funds
// out. Callers hold the entity lock.
func (s *Service) closeGrant(ctx context.Context, actor Actor, grant domain.Grant, recipient, eventType string) (domain.Grant, error) {
	amount := domain.CloneAmount(grant.Amount)
	prior := grant
	now := s.nowFn()
	grant.Amount = big.NewInt(0)
	if eventType == domain.EventGrantWithdrawn {
		grant.Withdrawn = true
	} else {
		grant.Refunded = true
	}
	grant.UpdatedAt = now
	if err := s.grants.Update(ctx, grant); err != nil {
		return domain.Grant{}, fmt.Errorf("update grant: %w", err)
	}
	if err := s.accounting.Decrease(ctx, grant.Asset, amount); err != nil {
		s.restoreGrant(ctx, prior)
		return domain.Grant{}, fmt.Errorf("record custody decrease: %w", err)
	}
	if err := s.treasury.Push(ctx, grant.Asset, recipient, amount); err != nil {
		if incErr := s.accounting.Increase(ctx, grant.Asset, amount); incErr != nil {
			s.logger.ErrorContext(ctx, "custody compensation failed, manual reconciliation required",
				slog.Uint64("grant_id", prior.GrantID), slog.String("error", incErr.Error()))
		}
		s.restoreGrant(ctx, prior)
		return domain.Grant{}, fmt.Errorf("%w: grant release to %s: %v", domain.ErrTransferFailed, recipient, err)
	}
	if err := s.enqueueGrantClosed(ctx, actor, grant, eventType, amount, now); err != nil {
		return domain.Grant{}, err
	}
	s.logger.InfoContext(ctx, "grant closed",
		slog.String("operation", "close_grant"),
		slog.String("outcome", "success"),
		slog.Uint64("grant_id", grant.GrantID),
		slog.String("event_type", eventType),
		slog.String("amount", amount.String()),
		slog.String("request_id", actor.RequestID))
	return grant, nil
}

func (s *Service) restoreGrant(ctx context.Context, prior domain.Grant) {
	if err := s.grants.Update(ctx, prior); err != nil {
		s.logger.ErrorContext(ctx, "grant state compensation failed, manual reconciliation required",
			slog.Uint64("grant_id", prior.GrantID), slog.String("error", err.Error()))
	}
}
