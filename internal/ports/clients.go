package ports

import (
	"context"
	"crypto/ed25519"
	"math/big"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// AssetTransfer moves value between the engine's custody account and
// external holders. Implementations may run arbitrary third-party code;
// callers must finalize all internal state before invoking either method.
type AssetTransfer interface {
	// Pull moves amount of asset from the holder into engine custody. For
	// fungible tokens this requires a pre-authorized allowance.
	Pull(ctx context.Context, asset, from string, amount *big.Int) error
	// Push releases amount of asset from engine custody to the recipient.
	Push(ctx context.Context, asset, to string, amount *big.Int) error
}

// CapabilityDirectory is the boolean capability surface of the external
// identity/role collaborator.
type CapabilityDirectory interface {
	HasCapability(ctx context.Context, identity string, capability domain.Capability) (bool, error)
}

// CircuitBreaker exposes the external pause toggle consulted before every
// mutating operation.
type CircuitBreaker interface {
	IsPaused(ctx context.Context) (bool, error)
}

// ReceiptRequest describes the settlement receipt handed to the external
// minting collaborator after a deal settles.
type ReceiptRequest struct {
	DealID      uint64
	Sponsor     string
	Beneficiary string
	Asset       string
	Gross       *big.Int
	Fee         *big.Int
	SettledAt   time.Time
}

// ReceiptMinter mints a non-fungible settlement receipt. It is invoked after
// funds have moved; failures are logged, never propagated.
type ReceiptMinter interface {
	MintReceipt(ctx context.Context, receipt ReceiptRequest) error
}

// SignerKeyDirectory resolves the registered Ed25519 public key for a signer
// identity used in detached-signature authorization.
type SignerKeyDirectory interface {
	PublicKey(ctx context.Context, signer string) (ed25519.PublicKey, error)
}

// EventPublisher delivers audit event envelopes to the external indexing
// collaborator.
type EventPublisher interface {
	Publish(ctx context.Context, envelope contracts.EventEnvelope) error
}
