package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type DealCreatedPayload struct {
	DealID      uint64 `json:"deal_id"`
	Sponsor     string `json:"sponsor"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Deadline    string `json:"deadline"`
	TermsDigest string `json:"terms_digest"`
}

type DealDeliveredPayload struct {
	DealID         uint64 `json:"deal_id"`
	EvidenceDigest string `json:"evidence_digest"`
	DeliveredAt    string `json:"delivered_at"`
}

type DealDisputedPayload struct {
	DealID         uint64 `json:"deal_id"`
	RaisedBy       string `json:"raised_by"`
	ReasonCode     string `json:"reason_code"`
	EvidenceDigest string `json:"evidence_digest"`
}

type DealSettledPayload struct {
	DealID      uint64 `json:"deal_id"`
	Sponsor     string `json:"sponsor"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Gross       string `json:"gross"`
	Fee         string `json:"fee"`
	Net         string `json:"net"`
	SettledAt   string `json:"settled_at"`
}

type DealRefundedPayload struct {
	DealID     uint64 `json:"deal_id"`
	Sponsor    string `json:"sponsor"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	RefundedAt string `json:"refunded_at"`
}

type GrantCreatedPayload struct {
	GrantID     uint64 `json:"grant_id"`
	Sponsor     string `json:"sponsor"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	UnlockTime  string `json:"unlock_time"`
	TermsDigest string `json:"terms_digest"`
}

type GrantAttestedPayload struct {
	GrantID           uint64 `json:"grant_id"`
	Attester          string `json:"attester"`
	AttestationDigest string `json:"attestation_digest"`
}

type GrantClosedPayload struct {
	GrantID  uint64 `json:"grant_id"`
	Asset    string `json:"asset"`
	Amount   string `json:"amount"`
	ClosedAt string `json:"closed_at"`
}

type SplitDefinedPayload struct {
	SplitID        uint64 `json:"split_id"`
	ContentHash    string `json:"content_hash"`
	RecipientCount int    `json:"recipient_count"`
	DefinedBy      string `json:"defined_by"`
}

type PayoutExecutedPayload struct {
	PayoutID   uint64 `json:"payout_id"`
	Ref        string `json:"ref"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	SplitID    uint64 `json:"split_id"`
	Payer      string `json:"payer"`
	Authorizer string `json:"authorizer"`
	ExecutedAt string `json:"executed_at"`
}

type FeePolicyUpdatedPayload struct {
	FeeBps       uint32 `json:"fee_bps"`
	FeeRecipient string `json:"fee_recipient"`
	UpdatedBy    string `json:"updated_by"`
}
