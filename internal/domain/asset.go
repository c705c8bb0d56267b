package domain

import (
	"fmt"
	"math/big"
	"strings"
)

// NativeAsset is the asset id of the native value unit. Funding a deal or
// grant in the native asset requires the caller to attach the exact amount;
// any other asset id is a fungible token pulled via a prior allowance.
const NativeAsset = "native"

func IsNativeAsset(asset string) bool {
	return strings.TrimSpace(asset) == NativeAsset
}

// ParseAmount decodes a decimal string into a non-negative integer amount.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q is not a decimal integer", ErrInvalidInput, raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return value, nil
}

// AmountString renders an amount for DTOs and storage; nil reads as zero.
func AmountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func CloneAmount(amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}
