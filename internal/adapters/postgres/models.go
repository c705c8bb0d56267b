package postgres

import (
	"time"
)

type dealModel struct {
	DealID         uint64     `gorm:"column:deal_id;primaryKey;autoIncrement"`
	Sponsor        string     `gorm:"column:sponsor;index"`
	Beneficiary    string     `gorm:"column:beneficiary;index"`
	Asset          string     `gorm:"column:asset"`
	Amount         string     `gorm:"column:amount;type:numeric(78,0)"`
	Deadline       time.Time  `gorm:"column:deadline"`
	TermsDigest    string     `gorm:"column:terms_digest"`
	EvidenceDigest string     `gorm:"column:evidence_digest"`
	DeliveredAt    *time.Time `gorm:"column:delivered_at"`
	Status         string     `gorm:"column:status;index"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (dealModel) TableName() string { return "deals" }

type grantModel struct {
	GrantID           uint64    `gorm:"column:grant_id;primaryKey;autoIncrement"`
	Sponsor           string    `gorm:"column:sponsor;index"`
	Beneficiary       string    `gorm:"column:beneficiary;index"`
	Asset             string    `gorm:"column:asset"`
	Amount            string    `gorm:"column:amount;type:numeric(78,0)"`
	UnlockTime        time.Time `gorm:"column:unlock_time"`
	TermsDigest       string    `gorm:"column:terms_digest"`
	AttestationDigest string    `gorm:"column:attestation_digest"`
	Attested          bool      `gorm:"column:attested"`
	Withdrawn         bool      `gorm:"column:withdrawn"`
	Refunded          bool      `gorm:"column:refunded"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (grantModel) TableName() string { return "grants" }

type splitModel struct {
	SplitID     uint64    `gorm:"column:split_id;primaryKey;autoIncrement"`
	Recipients  string    `gorm:"column:recipients;type:jsonb"`
	ContentHash string    `gorm:"column:content_hash;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (splitModel) TableName() string { return "splits" }

type payoutModel struct {
	PayoutID   uint64    `gorm:"column:payout_id;primaryKey;autoIncrement"`
	Ref        string    `gorm:"column:ref;index"`
	Asset      string    `gorm:"column:asset"`
	Amount     string    `gorm:"column:amount;type:numeric(78,0)"`
	SplitID    uint64    `gorm:"column:split_id;index"`
	Payer      string    `gorm:"column:payer;index"`
	Authorizer string    `gorm:"column:authorizer"`
	ExecutedAt time.Time `gorm:"column:executed_at"`
}

func (payoutModel) TableName() string { return "payouts" }

type accountingModel struct {
	Asset     string    `gorm:"column:asset;primaryKey"`
	Total     string    `gorm:"column:total;type:numeric(78,0)"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (accountingModel) TableName() string { return "accounting_totals" }

type partyStatsModel struct {
	Party          string `gorm:"column:party;primaryKey"`
	CompletedDeals uint64 `gorm:"column:completed_deals"`
	DisputedDeals  uint64 `gorm:"column:disputed_deals"`
}

func (partyStatsModel) TableName() string { return "party_stats" }

type nonceModel struct {
	Signer string `gorm:"column:signer;primaryKey"`
	Nonce  uint64 `gorm:"column:nonce"`
}

func (nonceModel) TableName() string { return "signer_nonces" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at;index"`
	SentAt     *time.Time `gorm:"column:sent_at;index"`
}

func (outboxModel) TableName() string { return "settlement_outbox" }
