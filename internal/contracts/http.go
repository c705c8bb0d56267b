package contracts

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type CreateDealRequest struct {
	Beneficiary    string `json:"beneficiary"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	AttachedAmount string `json:"attached_amount,omitempty"`
	Deadline       string `json:"deadline"`
	TermsDigest    string `json:"terms_digest"`
}

type MarkDeliveredRequest struct {
	EvidenceDigest string `json:"evidence_digest"`
}

type RaiseDisputeRequest struct {
	ReasonCode     string `json:"reason_code"`
	EvidenceDigest string `json:"evidence_digest,omitempty"`
}

type ResolveDisputeRequest struct {
	Refund bool `json:"refund"`
}

type DealResponse struct {
	DealID         uint64 `json:"deal_id"`
	Sponsor        string `json:"sponsor"`
	Beneficiary    string `json:"beneficiary"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	Deadline       string `json:"deadline"`
	TermsDigest    string `json:"terms_digest"`
	EvidenceDigest string `json:"evidence_digest,omitempty"`
	DeliveredAt    string `json:"delivered_at,omitempty"`
	Status         string `json:"status"`
}

type CreateGrantRequest struct {
	Beneficiary    string `json:"beneficiary"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	AttachedAmount string `json:"attached_amount,omitempty"`
	UnlockTime     string `json:"unlock_time"`
	TermsDigest    string `json:"terms_digest"`
}

type AttestGrantRequest struct {
	AttestationDigest string `json:"attestation_digest"`
}

type GrantResponse struct {
	GrantID           uint64 `json:"grant_id"`
	Sponsor           string `json:"sponsor"`
	Beneficiary       string `json:"beneficiary"`
	Asset             string `json:"asset"`
	Amount            string `json:"amount"`
	UnlockTime        string `json:"unlock_time"`
	TermsDigest       string `json:"terms_digest"`
	AttestationDigest string `json:"attestation_digest,omitempty"`
	Attested          bool   `json:"attested"`
	Withdrawn         bool   `json:"withdrawn"`
	Refunded          bool   `json:"refunded"`
}

type SplitRecipientDTO struct {
	Recipient string `json:"recipient"`
	ShareBps  uint32 `json:"share_bps"`
}

type DefineSplitRequest struct {
	Recipients []SplitRecipientDTO `json:"recipients"`
}

type DefineSplitSignedRequest struct {
	Recipients []SplitRecipientDTO `json:"recipients"`
	Signer     string              `json:"signer"`
	Nonce      uint64              `json:"nonce"`
	Deadline   string              `json:"deadline"`
	Signature  string              `json:"signature"`
}

type SplitResponse struct {
	SplitID     uint64              `json:"split_id"`
	Recipients  []SplitRecipientDTO `json:"recipients"`
	ContentHash string              `json:"content_hash"`
}

type PayoutRequest struct {
	Ref            string `json:"ref"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	AttachedAmount string `json:"attached_amount,omitempty"`
	SplitID        uint64 `json:"split_id"`
}

type PayoutSignedRequest struct {
	Ref            string `json:"ref"`
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	AttachedAmount string `json:"attached_amount,omitempty"`
	SplitID        uint64 `json:"split_id"`
	Signer         string `json:"signer"`
	Nonce          uint64 `json:"nonce"`
	Deadline       string `json:"deadline"`
	Signature      string `json:"signature"`
}

type PayoutResponse struct {
	PayoutID   uint64 `json:"payout_id"`
	Ref        string `json:"ref"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	SplitID    uint64 `json:"split_id"`
	Payer      string `json:"payer"`
	Authorizer string `json:"authorizer"`
	ExecutedAt string `json:"executed_at"`
}

type UpdateFeePolicyRequest struct {
	FeeBps       uint32 `json:"fee_bps"`
	FeeRecipient string `json:"fee_recipient"`
}

type AccountingResponse struct {
	Asset string `json:"asset"`
	Total string `json:"total"`
}

type PartyStatsResponse struct {
	Party          string `json:"party"`
	CompletedDeals uint64 `json:"completed_deals"`
	DisputedDeals  uint64 `json:"disputed_deals"`
}
