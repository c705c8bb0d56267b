package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

func toDealModel(deal domain.Deal) dealModel {
	return dealModel{
		DealID:         deal.DealID,
		Sponsor:        deal.Sponsor,
		Beneficiary:    deal.Beneficiary,
		Asset:          deal.Asset,
		Amount:         domain.AmountString(deal.Amount),
		Deadline:       deal.Deadline,
		TermsDigest:    deal.TermsDigest,
		EvidenceDigest: deal.EvidenceDigest,
		DeliveredAt:    deal.DeliveredAt,
		Status:         string(deal.Status),
		CreatedAt:      deal.CreatedAt,
		UpdatedAt:      deal.UpdatedAt,
	}
}

func toDomainDeal(rec dealModel) (domain.Deal, error) {
	amount, err := domain.ParseAmount(rec.Amount)
	if err != nil {
		return domain.Deal{}, fmt.Errorf("deal %d amount: %w", rec.DealID, err)
	}
	return domain.Deal{
		DealID:         rec.DealID,
		Sponsor:        rec.Sponsor,
		Beneficiary:    rec.Beneficiary,
		Asset:          rec.Asset,
		Amount:         amount,
		Deadline:       rec.Deadline,
		TermsDigest:    rec.TermsDigest,
		EvidenceDigest: rec.EvidenceDigest,
		DeliveredAt:    rec.DeliveredAt,
		Status:         domain.DealStatus(rec.Status),
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}

func toGrantModel(grant domain.Grant) grantModel {
	return grantModel{
		GrantID:           grant.GrantID,
		Sponsor:           grant.Sponsor,
		Beneficiary:       grant.Beneficiary,
		Asset:             grant.Asset,
		Amount:            domain.AmountString(grant.Amount),
		UnlockTime:        grant.UnlockTime,
		TermsDigest:       grant.TermsDigest,
		AttestationDigest: grant.AttestationDigest,
		Attested:          grant.Attested,
		Withdrawn:         grant.Withdrawn,
		Refunded:          grant.Refunded,
		CreatedAt:         grant.CreatedAt,
		UpdatedAt:         grant.UpdatedAt,
	}
}

func toDomainGrant(rec grantModel) (domain.Grant, error) {
	amount, err := domain.ParseAmount(rec.Amount)
	if err != nil {
		return domain.Grant{}, fmt.Errorf("grant %d amount: %w", rec.GrantID, err)
	}
	return domain.Grant{
		GrantID:           rec.GrantID,
		Sponsor:           rec.Sponsor,
		Beneficiary:       rec.Beneficiary,
		Asset:             rec.Asset,
		Amount:            amount,
		UnlockTime:        rec.UnlockTime,
		TermsDigest:       rec.TermsDigest,
		AttestationDigest: rec.AttestationDigest,
		Attested:          rec.Attested,
		Withdrawn:         rec.Withdrawn,
		Refunded:          rec.Refunded,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}, nil
}

type splitRecipientRecord struct {
	Recipient string `json:"recipient"`
	ShareBps  uint32 `json:"share_bps"`
}

func encodeRecipients(recipients []domain.SplitRecipient) (string, error) {
	records := make([]splitRecipientRecord, 0, len(recipients))
	for _, r := range recipients {
		records = append(records, splitRecipientRecord{Recipient: r.Recipient, ShareBps: r.ShareBps})
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func toDomainSplit(rec splitModel) (domain.Split, error) {
	var records []splitRecipientRecord
	if err := json.Unmarshal([]byte(rec.Recipients), &records); err != nil {
		return domain.Split{}, fmt.Errorf("split %d recipients: %w", rec.SplitID, err)
	}
	recipients := make([]domain.SplitRecipient, 0, len(records))
	for _, r := range records {
		recipients = append(recipients, domain.SplitRecipient{Recipient: r.Recipient, ShareBps: r.ShareBps})
	}
	return domain.Split{
		SplitID:     rec.SplitID,
		Recipients:  recipients,
		ContentHash: rec.ContentHash,
		CreatedAt:   rec.CreatedAt,
	}, nil
}
