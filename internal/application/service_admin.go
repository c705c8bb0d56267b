package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// UpdateFeePolicy swaps the settlement fee configuration. Administrator
// only; takes effect for settlements that begin after the swap.
func (s *Service) UpdateFeePolicy(ctx context.Context, actor Actor, policy domain.FeePolicy) error {
	if err := s.requireActor(actor); err != nil {
		return err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return err
	}
	if err := s.requireAnyCapability(ctx, actor.Identity, domain.CapabilityAdministrator); err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if policy.FeeBps > 0 && policy.FeeRecipient == "" {
		return fmt.Errorf("%w: fee recipient is required when fee bps is set", domain.ErrInvalidInput)
	}
	s.feeMu.Lock()
	s.fee = policy
	s.feeMu.Unlock()
	if err := s.enqueueFeePolicyUpdated(ctx, actor, policy); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "fee policy updated",
		slog.String("operation", "update_fee_policy"),
		slog.String("outcome", "success"),
		slog.Uint64("fee_bps", uint64(policy.FeeBps)),
		slog.String("fee_recipient", policy.FeeRecipient),
		slog.String("request_id", actor.RequestID))
	return nil
}

// AccountingTotal reports the custodied total for one asset. Reads stay
// available while the engine is paused.
func (s *Service) AccountingTotal(ctx context.Context, asset string) (*big.Int, error) {
	if asset == "" {
		return nil, fmt.Errorf("%w: asset is required", domain.ErrInvalidInput)
	}
	return s.accounting.Total(ctx, asset)
}

// PartyStats reports the reputation counters for one identity.
func (s *Service) PartyStats(ctx context.Context, party string) (domain.PartyStats, error) {
	if party == "" {
		return domain.PartyStats{}, fmt.Errorf("%w: party is required", domain.ErrInvalidInput)
	}
	return s.partyStats.Get(ctx, party)
}
