package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// FeePolicy is the settlement fee configuration. A zero FeeBps or an unset
// recipient disables fee extraction.
type FeePolicy struct {
	FeeBps       uint32
	FeeRecipient string
}

func (p FeePolicy) Validate() error {
	if p.FeeBps > BpsDenominator {
		return fmt.Errorf("%w: fee %d bps exceeds %d", ErrInvalidInput, p.FeeBps, BpsDenominator)
	}
	return nil
}

func (p FeePolicy) Enabled() bool {
	return p.FeeBps > 0 && strings.TrimSpace(p.FeeRecipient) != ""
}

// SplitFee computes fee = floor(amount * feeBps / 10000) and net = amount - fee.
// fee + net always equals amount exactly.
func SplitFee(amount *big.Int, feeBps uint32) (fee, net *big.Int) {
	fee = new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	fee.Quo(fee, big.NewInt(BpsDenominator))
	net = new(big.Int).Sub(amount, fee)
	return fee, net
}
