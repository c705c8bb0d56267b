package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

type DealStatus string

const (
	DealStatusFunded    DealStatus = "funded"
	DealStatusDelivered DealStatus = "delivered"
	DealStatusDisputed  DealStatus = "disputed"
	DealStatusSettled   DealStatus = "settled"
	DealStatusRefunded  DealStatus = "refunded"
)

// Deal is a bilateral escrow obligation between a sponsor (payer) and a
// beneficiary (payee). The amount is zeroed exactly once at the terminal
// transition; a zero amount on a settle path means the deal already closed.
type Deal struct {
	DealID         uint64
	Sponsor        string
	Beneficiary    string
	Asset          string
	Amount         *big.Int
	Deadline       time.Time
	TermsDigest    string
	EvidenceDigest string
	DeliveredAt    *time.Time
	Status         DealStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s DealStatus) Terminal() bool {
	return s == DealStatusSettled || s == DealStatusRefunded
}

// ValidateDealTransition enforces the forward-only lifecycle graph:
// funded → delivered → {settled | disputed}, funded → disputed,
// disputed → {settled | refunded}.
func ValidateDealTransition(from, to DealStatus) error {
	allowed := map[DealStatus]map[DealStatus]bool{
		DealStatusFunded:    {DealStatusDelivered: true, DealStatusDisputed: true},
		DealStatusDelivered: {DealStatusSettled: true, DealStatusDisputed: true},
		DealStatusDisputed:  {DealStatusSettled: true, DealStatusRefunded: true},
	}
	if next, ok := allowed[from]; ok && next[to] {
		return nil
	}
	return fmt.Errorf("%w: deal %s -> %s", ErrInvalidStateTransition, from, to)
}

func ValidateCreateDealInput(sponsor, beneficiary, asset string, amount *big.Int, deadline, now time.Time) error {
	if strings.TrimSpace(sponsor) == "" {
		return fmt.Errorf("%w: sponsor is required", ErrInvalidInput)
	}
	if strings.TrimSpace(beneficiary) == "" {
		return fmt.Errorf("%w: beneficiary is required", ErrInvalidInput)
	}
	if strings.TrimSpace(asset) == "" {
		return fmt.Errorf("%w: asset is required", ErrInvalidInput)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !deadline.After(now) {
		return fmt.Errorf("%w: deadline must be in the future", ErrInvalidInput)
	}
	return nil
}
