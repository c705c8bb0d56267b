package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// DefineSplit registers an immutable distribution template. Requires
// operator or administrator capability on the caller.
func (s *Service) DefineSplit(ctx context.Context, actor Actor, recipients []domain.SplitRecipient) (domain.Split, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Split{}, err
	}
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Split{}, err
	}
	if err := s.requireAnyCapability(ctx, actor.Identity, domain.CapabilityOperator, domain.CapabilityAdministrator); err != nil {
		return domain.Split{}, err
	}
	return s.registerSplit(ctx, actor, recipients, actor.Identity)
}

// DefineSplitWithSignature registers a split on behalf of a capability
// holder who signed the recipients' content hash off-band. The relayer
// identity never enters the authorization decision.
func (s *Service) DefineSplitWithSignature(ctx context.Context, relayer Actor, recipients []domain.SplitRecipient, auth SignedAuthorization) (domain.Split, error) {
	if err := s.ensureNotPaused(ctx); err != nil {
		return domain.Split{}, err
	}
	if err := domain.ValidateSplitRecipients(recipients, s.cfg.MaxSplitRecipients); err != nil {
		return domain.Split{}, err
	}
	contentHash := domain.HashSplitRecipients(recipients)
	digest := DefineSplitDigest(contentHash, auth.Nonce, auth.Deadline)
	if err := s.verifySignedAuthorization(ctx, auth, digest, domain.CapabilityOperator, domain.CapabilityAdministrator); err != nil {
		return domain.Split{}, err
	}
	return s.registerSplit(ctx, relayer, recipients, auth.Signer)
}

func (s *Service) registerSplit(ctx context.Context, actor Actor, recipients []domain.SplitRecipient, definedBy string) (domain.Split, error) {
	if err := domain.ValidateSplitRecipients(recipients, s.cfg.MaxSplitRecipients); err != nil {
		return domain.Split{}, err
	}
	split := domain.Split{
		Recipients:  append([]domain.SplitRecipient(nil), recipients...),
		ContentHash: domain.HashSplitRecipients(recipients),
		CreatedAt:   s.nowFn(),
	}
	created, err := s.splits.Create(ctx, split)
	if err != nil {
		return domain.Split{}, fmt.Errorf("create split: %w", err)
	}
	if err := s.enqueueSplitDefined(ctx, actor, created, definedBy); err != nil {
		return domain.Split{}, err
	}
	s.logger.InfoContext(ctx, "split defined",
		slog.String("operation", "define_split"),
		slog.String("outcome", "success"),
		slog.Uint64("split_id", created.SplitID),
		slog.Int("recipients", len(created.Recipients)),
		slog.String("defined_by", definedBy),
		slog.String("request_id", actor.RequestID))
	return created, nil
}

func (s *Service) GetSplit(ctx context.Context, splitID uint64) (domain.Split, error) {
	return s.splits.GetByID(ctx, splitID)
}

// SplitCount reports how many templates have been registered.
func (s *Service) SplitCount(ctx context.Context) (uint64, error) {
	return s.splits.Count(ctx)
}
