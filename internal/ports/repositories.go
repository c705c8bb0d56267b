package ports

import (
	"context"
	"math/big"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// DealRepository owns the deal arena. Create assigns the next monotonic deal
// id; ids are never reused and deals are never physically deleted.
type DealRepository interface {
	Create(ctx context.Context, deal domain.Deal) (domain.Deal, error)
	GetByID(ctx context.Context, dealID uint64) (domain.Deal, error)
	Update(ctx context.Context, deal domain.Deal) error
}

// GrantRepository owns the grant arena, same id discipline as deals.
type GrantRepository interface {
	Create(ctx context.Context, grant domain.Grant) (domain.Grant, error)
	GetByID(ctx context.Context, grantID uint64) (domain.Grant, error)
	Update(ctx context.Context, grant domain.Grant) error
}

// SplitRepository stores immutable distribution templates. There is no
// update method on purpose.
type SplitRepository interface {
	Create(ctx context.Context, split domain.Split) (domain.Split, error)
	GetByID(ctx context.Context, splitID uint64) (domain.Split, error)
	Count(ctx context.Context) (uint64, error)
}

// PayoutRepository is append-only; records are audit data never read back by
// the engine itself.
type PayoutRepository interface {
	Append(ctx context.Context, payout domain.Payout) (domain.Payout, error)
}

// AccountingRepository tracks the per-asset custodied total. Decrease must
// fail rather than let a total go negative; a negative total means the
// conservation invariant was already broken elsewhere.
type AccountingRepository interface {
	Increase(ctx context.Context, asset string, delta *big.Int) error
	Decrease(ctx context.Context, asset string, delta *big.Int) error
	Total(ctx context.Context, asset string) (*big.Int, error)
}

// PartyStatsRepository maintains reputation counters per identity.
type PartyStatsRepository interface {
	IncrementCompleted(ctx context.Context, party string) error
	IncrementDisputed(ctx context.Context, party string) error
	Get(ctx context.Context, party string) (domain.PartyStats, error)
}

// NonceRepository guards signed-authorization replay. Consume atomically
// compares the presented nonce against the signer's expected nonce and
// increments it; a mismatch returns domain.ErrNonceMismatch and changes
// nothing.
type NonceRepository interface {
	Consume(ctx context.Context, signer string, nonce uint64) error
	Current(ctx context.Context, signer string) (uint64, error)
}

// OutboxRecord is a durable audit event awaiting publication.
type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

// OutboxRepository controls the publish workflow for audit events so entity
// writes and event delivery cannot diverge.
type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
