package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/domain"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

// DealRepository is the in-memory deal store used by tests and the
// no-database development mode.
type DealRepository struct {
	mu     sync.RWMutex
	nextID uint64
	deals  map[uint64]domain.Deal
}

func NewDealRepository() *DealRepository {
	return &DealRepository{nextID: 1, deals: make(map[uint64]domain.Deal)}
}

func (r *DealRepository) Create(_ context.Context, deal domain.Deal) (domain.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deal.DealID = r.nextID
	r.nextID++
	deal.Amount = domain.CloneAmount(deal.Amount)
	r.deals[deal.DealID] = deal
	return deal, nil
}

func (r *DealRepository) GetByID(_ context.Context, dealID uint64) (domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deal, ok := r.deals[dealID]
	if !ok {
		return domain.Deal{}, fmt.Errorf("%w: deal %d", domain.ErrNotFound, dealID)
	}
	deal.Amount = domain.CloneAmount(deal.Amount)
	return deal, nil
}

func (r *DealRepository) Update(_ context.Context, deal domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deals[deal.DealID]; !ok {
		return fmt.Errorf("%w: deal %d", domain.ErrNotFound, deal.DealID)
	}
	deal.Amount = domain.CloneAmount(deal.Amount)
	r.deals[deal.DealID] = deal
	return nil
}

// GrantRepository mirrors DealRepository for the grant arena.
type GrantRepository struct {
	mu     sync.RWMutex
	nextID uint64
	grants map[uint64]domain.Grant
}

func NewGrantRepository() *GrantRepository {
	return &GrantRepository{nextID: 1, grants: make(map[uint64]domain.Grant)}
}

func (r *GrantRepository) Create(_ context.Context, grant domain.Grant) (domain.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	grant.GrantID = r.nextID
	r.nextID++
	grant.Amount = domain.CloneAmount(grant.Amount)
	r.grants[grant.GrantID] = grant
	return grant, nil
}

func (r *GrantRepository) GetByID(_ context.Context, grantID uint64) (domain.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	grant, ok := r.grants[grantID]
	if !ok {
		return domain.Grant{}, fmt.Errorf("%w: grant %d", domain.ErrNotFound, grantID)
	}
	grant.Amount = domain.CloneAmount(grant.Amount)
	return grant, nil
}

func (r *GrantRepository) Update(_ context.Context, grant domain.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grants[grant.GrantID]; !ok {
		return fmt.Errorf("%w: grant %d", domain.ErrNotFound, grant.GrantID)
	}
	grant.Amount = domain.CloneAmount(grant.Amount)
	r.grants[grant.GrantID] = grant
	return nil
}

// SplitRepository stores immutable split templates.
type SplitRepository struct {
	mu     sync.RWMutex
	nextID uint64
	splits map[uint64]domain.Split
}

func NewSplitRepository() *SplitRepository {
	return &SplitRepository{nextID: 1, splits: make(map[uint64]domain.Split)}
}

func (r *SplitRepository) Create(_ context.Context, split domain.Split) (domain.Split, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	split.SplitID = r.nextID
	r.nextID++
	split.Recipients = append([]domain.SplitRecipient(nil), split.Recipients...)
	r.splits[split.SplitID] = split
	return split, nil
}

func (r *SplitRepository) GetByID(_ context.Context, splitID uint64) (domain.Split, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	split, ok := r.splits[splitID]
	if !ok {
		return domain.Split{}, fmt.Errorf("%w: split %d", domain.ErrNotFound, splitID)
	}
	split.Recipients = append([]domain.SplitRecipient(nil), split.Recipients...)
	return split, nil
}

func (r *SplitRepository) Count(_ context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.splits)), nil
}

// PayoutRepository is append-only.
type PayoutRepository struct {
	mu      sync.RWMutex
	nextID  uint64
	payouts []domain.Payout
}

func NewPayoutRepository() *PayoutRepository {
	return &PayoutRepository{nextID: 1}
}

func (r *PayoutRepository) Append(_ context.Context, payout domain.Payout) (domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payout.PayoutID = r.nextID
	r.nextID++
	payout.Amount = domain.CloneAmount(payout.Amount)
	r.payouts = append(r.payouts, payout)
	return payout, nil
}

// All returns a snapshot of appended records, oldest first. Test helper.
func (r *PayoutRepository) All() []domain.Payout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Payout(nil), r.payouts...)
}

// AccountingRepository keeps the per-asset custody totals.
type AccountingRepository struct {
	mu     sync.Mutex
	totals map[string]*big.Int
}

func NewAccountingRepository() *AccountingRepository {
	return &AccountingRepository{totals: make(map[string]*big.Int)}
}

func (r *AccountingRepository) Increase(_ context.Context, asset string, delta *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, ok := r.totals[asset]
	if !ok {
		total = big.NewInt(0)
		r.totals[asset] = total
	}
	total.Add(total, delta)
	return nil
}

func (r *AccountingRepository) Decrease(_ context.Context, asset string, delta *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, ok := r.totals[asset]
	if !ok || total.Cmp(delta) < 0 {
		return fmt.Errorf("%w: custody total for %s cannot go negative", domain.ErrConflict, asset)
	}
	total.Sub(total, delta)
	return nil
}

func (r *AccountingRepository) Total(_ context.Context, asset string) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, ok := r.totals[asset]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(total), nil
}

// PartyStatsRepository keeps reputation counters.
type PartyStatsRepository struct {
	mu    sync.Mutex
	stats map[string]domain.PartyStats
}

func NewPartyStatsRepository() *PartyStatsRepository {
	return &PartyStatsRepository{stats: make(map[string]domain.PartyStats)}
}

func (r *PartyStatsRepository) IncrementCompleted(_ context.Context, party string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.stats[party]
	entry.Party = party
	entry.CompletedDeals++
	r.stats[party] = entry
	return nil
}

func (r *PartyStatsRepository) IncrementDisputed(_ context.Context, party string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := r.stats[party]
	entry.Party = party
	entry.DisputedDeals++
	r.stats[party] = entry
	return nil
}

func (r *PartyStatsRepository) Get(_ context.Context, party string) (domain.PartyStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.stats[party]
	if !ok {
		return domain.PartyStats{Party: party}, nil
	}
	return entry, nil
}

// NonceRepository enforces strictly sequential signer nonces.
type NonceRepository struct {
	mu     sync.Mutex
	nonces map[string]uint64
}

func NewNonceRepository() *NonceRepository {
	return &NonceRepository{nonces: make(map[string]uint64)}
}

func (r *NonceRepository) Consume(_ context.Context, signer string, nonce uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	expected := r.nonces[signer]
	if nonce != expected {
		return fmt.Errorf("%w: signer %s presented %d, expected %d", domain.ErrNonceMismatch, signer, nonce, expected)
	}
	r.nonces[signer] = expected + 1
	return nil
}

func (r *NonceRepository) Current(_ context.Context, signer string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonces[signer], nil
}

// OutboxRepository buffers audit events pending publication.
type OutboxRepository struct {
	mu      sync.Mutex
	records map[string]ports.OutboxRecord
	order   []string
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{records: make(map[string]ports.OutboxRecord)}
}

func (r *OutboxRepository) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.RecordID]; ok {
		return fmt.Errorf("%w: outbox record %s", domain.ErrConflict, record.RecordID)
	}
	r.records[record.RecordID] = record
	r.order = append(r.order, record.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []ports.OutboxRecord
	for _, id := range r.order {
		record := r.records[id]
		if record.SentAt != nil {
			continue
		}
		pending = append(pending, record)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return fmt.Errorf("%w: outbox record %s", domain.ErrNotFound, recordID)
	}
	record.SentAt = &at
	r.records[recordID] = record
	return nil
}

// Events returns every enqueued event type in order. Test helper.
func (r *OutboxRepository) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.order))
	for _, id := range r.order {
		types = append(types, r.records[id].Envelope.EventType)
	}
	return types
}

// Records returns a point-in-time copy in enqueue order. Test helper.
func (r *OutboxRepository) Records() []ports.OutboxRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}
