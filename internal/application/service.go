package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/domain"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

// Service implements the settlement engine use cases over injected ports.
type Service struct {
	cfg          Config
	deals        ports.DealRepository
	grants       ports.GrantRepository
	splits       ports.SplitRepository
	payouts      ports.PayoutRepository
	accounting   ports.AccountingRepository
	partyStats   ports.PartyStatsRepository
	nonces       ports.NonceRepository
	outbox       ports.OutboxRepository
	treasury     ports.AssetTransfer
	capabilities ports.CapabilityDirectory
	breaker      ports.CircuitBreaker
	minter       ports.ReceiptMinter
	signerKeys   ports.SignerKeyDirectory
	logger       *slog.Logger
	nowFn        func() time.Time

	// inflight holds a busy marker per entity so a second call targeting the
	// same deal or grant fails fast instead of interleaving with a transfer.
	inflight sync.Map

	feeMu sync.RWMutex
	fee   domain.FeePolicy
}

// Dependencies enumerates everything a Service needs; all fields except
// Minter and Logger are required.
type Dependencies struct {
	Config       Config
	Deals        ports.DealRepository
	Grants       ports.GrantRepository
	Splits       ports.SplitRepository
	Payouts      ports.PayoutRepository
	Accounting   ports.AccountingRepository
	PartyStats   ports.PartyStatsRepository
	Nonces       ports.NonceRepository
	Outbox       ports.OutboxRepository
	Treasury     ports.AssetTransfer
	Capabilities ports.CapabilityDirectory
	Breaker      ports.CircuitBreaker
	Minter       ports.ReceiptMinter
	SignerKeys   ports.SignerKeyDirectory
	Logger       *slog.Logger
}

func NewService(deps Dependencies) (*Service, error) {
	if deps.Deals == nil || deps.Grants == nil || deps.Splits == nil || deps.Payouts == nil {
		return nil, fmt.Errorf("application: entity repositories are required")
	}
	if deps.Accounting == nil || deps.PartyStats == nil || deps.Nonces == nil || deps.Outbox == nil {
		return nil, fmt.Errorf("application: accounting, party stats, nonce and outbox repositories are required")
	}
	if deps.Treasury == nil || deps.Capabilities == nil || deps.Breaker == nil || deps.SignerKeys == nil {
		return nil, fmt.Errorf("application: treasury, capability, breaker and signer key clients are required")
	}
	fee := domain.FeePolicy{FeeBps: deps.Config.FeeBps, FeeRecipient: deps.Config.FeeRecipient}
	if err := fee.Validate(); err != nil {
		return nil, fmt.Errorf("application: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:          deps.Config,
		deals:        deps.Deals,
		grants:       deps.Grants,
		splits:       deps.Splits,
		payouts:      deps.Payouts,
		accounting:   deps.Accounting,
		partyStats:   deps.PartyStats,
		nonces:       deps.Nonces,
		outbox:       deps.Outbox,
		treasury:     deps.Treasury,
		capabilities: deps.Capabilities,
		breaker:      deps.Breaker,
		minter:       deps.Minter,
		signerKeys:   deps.SignerKeys,
		logger:       logger,
		nowFn:        func() time.Time { return time.Now().UTC() },
		fee:          fee,
	}, nil
}

// FeePolicy returns the active fee policy snapshot.
func (s *Service) FeePolicy() domain.FeePolicy {
	s.feeMu.RLock()
	defer s.feeMu.RUnlock()
	return s.fee
}

// ensureNotPaused fails closed: an unreachable breaker blocks the operation.
func (s *Service) ensureNotPaused(ctx context.Context) error {
	paused, err := s.breaker.IsPaused(ctx)
	if err != nil {
		return fmt.Errorf("check circuit breaker: %w", err)
	}
	if paused {
		return fmt.Errorf("%w: operations are suspended", domain.ErrPaused)
	}
	return nil
}

func (s *Service) requireActor(actor Actor) error {
	if strings.TrimSpace(actor.Identity) == "" {
		return fmt.Errorf("%w: caller identity is required", domain.ErrUnauthorized)
	}
	return nil
}

// requireAnyCapability passes when the identity holds at least one of the
// listed capabilities. Directory errors fail closed.
func (s *Service) requireAnyCapability(ctx context.Context, identity string, capabilities ...domain.Capability) error {
	for _, capability := range capabilities {
		ok, err := s.capabilities.HasCapability(ctx, identity, capability)
		if err != nil {
			return fmt.Errorf("check capability %s: %w", capability, err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s lacks required capability", domain.ErrForbidden, identity)
}

// lockEntity marks a deal or grant busy for the duration of an operation.
// The returned release function must be deferred by the caller.
func (s *Service) lockEntity(kind string, id uint64) (func(), error) {
	key := fmt.Sprintf("%s:%d", kind, id)
	if _, busy := s.inflight.LoadOrStore(key, struct{}{}); busy {
		return nil, fmt.Errorf("%w: %s has an operation in flight", domain.ErrConflict, key)
	}
	return func() { s.inflight.Delete(key) }, nil
}

// collectFunds brings amount into engine custody. Native funding requires
// the attached value to equal amount exactly; token funding forbids any
// attachment and pulls against the payer's allowance.
func (s *Service) collectFunds(ctx context.Context, asset, from string, amount, attached *big.Int) error {
	if domain.IsNativeAsset(asset) {
		if attached == nil || attached.Cmp(amount) != 0 {
			return fmt.Errorf("%w: attached value %s must equal amount %s",
				domain.ErrInvalidInput, domain.AmountString(attached), domain.AmountString(amount))
		}
	} else if attached != nil && attached.Sign() != 0 {
		return fmt.Errorf("%w: attached value is only accepted for the native asset", domain.ErrInvalidInput)
	}
	if err := s.treasury.Pull(ctx, asset, from, amount); err != nil {
		return fmt.Errorf("%w: pull %s %s from %s: %v", domain.ErrTransferFailed, domain.AmountString(amount), asset, from, err)
	}
	return nil
}
