package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Grant is a unilateral timelocked escrow obligation. Exactly one of
// Withdrawn/Refunded may become true, and only once; the amount is zeroed
// together with whichever flag closes the grant.
type Grant struct {
	GrantID           uint64
	Sponsor           string
	Beneficiary       string
	Asset             string
	Amount            *big.Int
	UnlockTime        time.Time
	TermsDigest       string
	AttestationDigest string
	Attested          bool
	Withdrawn         bool
	Refunded          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (g Grant) Closed() bool {
	return g.Withdrawn || g.Refunded
}

func ValidateCreateGrantInput(sponsor, beneficiary, asset string, amount *big.Int, unlockTime, now time.Time) error {
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
	if !unlockTime.After(now) {
		return fmt.Errorf("%w: unlock time must be in the future", ErrInvalidInput)
	}
	return nil
}
