package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/domain"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

// Repositories bundles the Postgres-backed port implementations.
type Repositories struct {
	Deals      ports.DealRepository
	Grants     ports.GrantRepository
	Splits     ports.SplitRepository
	Payouts    ports.PayoutRepository
	Accounting ports.AccountingRepository
	PartyStats ports.PartyStatsRepository
	Nonces     ports.NonceRepository
	Outbox     ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Deals:      &dealRepository{db: db},
		Grants:     &grantRepository{db: db},
		Splits:     &splitRepository{db: db},
		Payouts:    &payoutRepository{db: db},
		Accounting: &accountingRepository{db: db},
		PartyStats: &partyStatsRepository{db: db},
		Nonces:     &nonceRepository{db: db},
		Outbox:     &outboxRepository{db: db},
	}
}

type dealRepository struct{ db *gorm.DB }

func (r *dealRepository) Create(ctx context.Context, deal domain.Deal) (domain.Deal, error) {
	rec := toDealModel(deal)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Deal{}, err
	}
	return toDomainDeal(rec)
}

func (r *dealRepository) GetByID(ctx context.Context, dealID uint64) (domain.Deal, error) {
	var rec dealModel
	if err := r.db.WithContext(ctx).Where("deal_id = ?", dealID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Deal{}, fmt.Errorf("%w: deal %d", domain.ErrNotFound, dealID)
		}
		return domain.Deal{}, err
	}
	return toDomainDeal(rec)
}

func (r *dealRepository) Update(ctx context.Context, deal domain.Deal) error {
	rec := toDealModel(deal)
	result := r.db.WithContext(ctx).Model(&dealModel{}).Where("deal_id = ?", deal.DealID).Updates(map[string]any{
		"amount":          rec.Amount,
		"status":          rec.Status,
		"evidence_digest": rec.EvidenceDigest,
		"delivered_at":    rec.DeliveredAt,
		"updated_at":      rec.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: deal %d", domain.ErrNotFound, deal.DealID)
	}
	return nil
}

type grantRepository struct{ db *gorm.DB }

func (r *grantRepository) Create(ctx context.Context, grant domain.Grant) (domain.Grant, error) {
	rec := toGrantModel(grant)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Grant{}, err
	}
	return toDomainGrant(rec)
}

func (r *grantRepository) GetByID(ctx context.Context, grantID uint64) (domain.Grant, error) {
	var rec grantModel
	if err := r.db.WithContext(ctx).Where("grant_id = ?", grantID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Grant{}, fmt.Errorf("%w: grant %d", domain.ErrNotFound, grantID)
		}
		return domain.Grant{}, err
	}
	return toDomainGrant(rec)
}

func (r *grantRepository) Update(ctx context.Context, grant domain.Grant) error {
	rec := toGrantModel(grant)
	result := r.db.WithContext(ctx).Model(&grantModel{}).Where("grant_id = ?", grant.GrantID).Updates(map[string]any{
		"amount":             rec.Amount,
		"attestation_digest": rec.AttestationDigest,
		"attested":           rec.Attested,
		"withdrawn":          rec.Withdrawn,
		"refunded":           rec.Refunded,
		"updated_at":         rec.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: grant %d", domain.ErrNotFound, grant.GrantID)
	}
	return nil
}

type splitRepository struct{ db *gorm.DB }

func (r *splitRepository) Create(ctx context.Context, split domain.Split) (domain.Split, error) {
	recipients, err := encodeRecipients(split.Recipients)
	if err != nil {
		return domain.Split{}, fmt.Errorf("encode recipients: %w", err)
	}
	rec := splitModel{
		Recipients:  recipients,
		ContentHash: split.ContentHash,
		CreatedAt:   split.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Split{}, err
	}
	return toDomainSplit(rec)
}

func (r *splitRepository) GetByID(ctx context.Context, splitID uint64) (domain.Split, error) {
	var rec splitModel
	if err := r.db.WithContext(ctx).Where("split_id = ?", splitID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Split{}, fmt.Errorf("%w: split %d", domain.ErrNotFound, splitID)
		}
		return domain.Split{}, err
	}
	return toDomainSplit(rec)
}

func (r *splitRepository) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&splitModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return uint64(count), nil
}

type payoutRepository struct{ db *gorm.DB }

func (r *payoutRepository) Append(ctx context.Context, payout domain.Payout) (domain.Payout, error) {
	rec := payoutModel{
		Ref:        payout.Ref,
		Asset:      payout.Asset,
		Amount:     domain.AmountString(payout.Amount),
		SplitID:    payout.SplitID,
		Payer:      payout.Payer,
		Authorizer: payout.Authorizer,
		ExecutedAt: payout.ExecutedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Payout{}, err
	}
	payout.PayoutID = rec.PayoutID
	return payout, nil
}

type accountingRepository struct{ db *gorm.DB }

func (r *accountingRepository) Increase(ctx context.Context, asset string, delta *big.Int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := lockedTotal(tx, asset)
		if err != nil {
			return err
		}
		total.Add(total, delta)
		return saveTotal(tx, asset, total)
	})
}

func (r *accountingRepository) Decrease(ctx context.Context, asset string, delta *big.Int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := lockedTotal(tx, asset)
		if err != nil {
			return err
		}
		if total.Cmp(delta) < 0 {
			return fmt.Errorf("%w: custody total for %s cannot go negative", domain.ErrConflict, asset)
		}
		total.Sub(total, delta)
		return saveTotal(tx, asset, total)
	})
}

func (r *accountingRepository) Total(ctx context.Context, asset string) (*big.Int, error) {
	var rec accountingModel
	err := r.db.WithContext(ctx).Where("asset = ?", asset).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return domain.ParseAmount(rec.Total)
}

func lockedTotal(tx *gorm.DB, asset string) (*big.Int, error) {
	var rec accountingModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("asset = ?", asset).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return domain.ParseAmount(rec.Total)
}

func saveTotal(tx *gorm.DB, asset string, total *big.Int) error {
	rec := accountingModel{Asset: asset, Total: total.String(), UpdatedAt: time.Now().UTC()}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"total", "updated_at"}),
	}).Create(&rec).Error
}

type partyStatsRepository struct{ db *gorm.DB }

func (r *partyStatsRepository) IncrementCompleted(ctx context.Context, party string) error {
	return r.increment(ctx, party, "completed_deals")
}

func (r *partyStatsRepository) IncrementDisputed(ctx context.Context, party string) error {
	return r.increment(ctx, party, "disputed_deals")
}

func (r *partyStatsRepository) increment(ctx context.Context, party, column string) error {
	rec := partyStatsModel{Party: party}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
			return err
		}
		return tx.Model(&partyStatsModel{}).Where("party = ?", party).
			UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	})
}

func (r *partyStatsRepository) Get(ctx context.Context, party string) (domain.PartyStats, error) {
	var rec partyStatsModel
	err := r.db.WithContext(ctx).Where("party = ?", party).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.PartyStats{Party: party}, nil
	}
	if err != nil {
		return domain.PartyStats{}, err
	}
	return domain.PartyStats{Party: rec.Party, CompletedDeals: rec.CompletedDeals, DisputedDeals: rec.DisputedDeals}, nil
}

type nonceRepository struct{ db *gorm.DB }

func (r *nonceRepository) Consume(ctx context.Context, signer string, nonce uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec nonceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("signer = ?", signer).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec = nonceModel{Signer: signer, Nonce: 0}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if rec.Nonce != nonce {
			return fmt.Errorf("%w: signer %s presented %d, expected %d", domain.ErrNonceMismatch, signer, nonce, rec.Nonce)
		}
		return tx.Model(&nonceModel{}).Where("signer = ? AND nonce = ?", signer, nonce).
			UpdateColumn("nonce", nonce+1).Error
	})
}

func (r *nonceRepository) Current(ctx context.Context, signer string) (uint64, error) {
	var rec nonceModel
	err := r.db.WithContext(ctx).Where("signer = ?", signer).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Nonce, nil
}

type outboxRepository struct{ db *gorm.DB }

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	envelope, err := json.Marshal(record.Envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	rec := outboxModel{
		RecordID:   record.RecordID,
		EventClass: record.EventClass,
		Envelope:   string(envelope),
		CreatedAt:  record.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var recs []outboxModel
	query := r.db.WithContext(ctx).Where("sent_at IS NULL").Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(recs))
	for _, rec := range recs {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal([]byte(rec.Envelope), &envelope); err != nil {
			return nil, fmt.Errorf("decode envelope %s: %w", rec.RecordID, err)
		}
		out = append(out, ports.OutboxRecord{
			RecordID:   rec.RecordID,
			EventClass: rec.EventClass,
			Envelope:   envelope,
			CreatedAt:  rec.CreatedAt,
			SentAt:     rec.SentAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&outboxModel{}).Where("record_id = ?", recordID).
		UpdateColumn("sent_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: outbox record %s", domain.ErrNotFound, recordID)
	}
	return nil
}
