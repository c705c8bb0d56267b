package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// BpsDenominator is the share unit: 10000 basis points represent 100%.
const BpsDenominator = 10000

// DefaultMaxSplitRecipients bounds the recipient list of a split.
const DefaultMaxSplitRecipients = 32

type SplitRecipient struct {
	Recipient string
	ShareBps  uint32
}

// Split is an immutable distribution template. Once registered it is never
// mutated; a new template supersedes it under a fresh id.
type Split struct {
	SplitID     uint64
	Recipients  []SplitRecipient
	ContentHash string
	CreatedAt   time.Time
}

func ValidateSplitRecipients(recipients []SplitRecipient, maxRecipients int) error {
	if maxRecipients <= 0 {
		maxRecipients = DefaultMaxSplitRecipients
	}
	if len(recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidInput)
	}
	if len(recipients) > maxRecipients {
		return fmt.Errorf("%w: recipient count %d exceeds limit %d", ErrInvalidInput, len(recipients), maxRecipients)
	}
	var sum uint64
	for i, r := range recipients {
		if strings.TrimSpace(r.Recipient) == "" {
			return fmt.Errorf("%w: recipient %d is empty", ErrInvalidInput, i)
		}
		if r.ShareBps == 0 {
			return fmt.Errorf("%w: recipient %d has zero share", ErrInvalidInput, i)
		}
		sum += uint64(r.ShareBps)
	}
	if sum != BpsDenominator {
		return fmt.Errorf("%w: shares sum to %d, want %d", ErrInvalidInput, sum, BpsDenominator)
	}
	return nil
}

// HashSplitRecipients produces the content hash stored with a split and
// bound into signed authorizations. The encoding is positional, so recipient
// order is part of the identity of a split. Each field is length-prefixed so
// delimiter characters inside a recipient id cannot shift field boundaries.
func HashSplitRecipients(recipients []SplitRecipient) string {
	h := sha256.New()
	for _, r := range recipients {
		h.Write([]byte(strconv.Itoa(len(r.Recipient))))
		h.Write([]byte{':'})
		h.Write([]byte(r.Recipient))
		h.Write([]byte{'|'})
		h.Write([]byte(strconv.FormatUint(uint64(r.ShareBps), 10)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ComputeDistribution divides amount across recipients proportionally to
// their basis-point shares. The last recipient receives the remainder rather
// than its computed proportional share, so the parts always sum to exactly
// amount. The choice of the last recipient as the dust sink is a documented
// convention, not a requirement of the math.
func ComputeDistribution(amount *big.Int, recipients []SplitRecipient) []*big.Int {
	parts := make([]*big.Int, len(recipients))
	if len(recipients) == 0 {
		return parts
	}
	denominator := big.NewInt(BpsDenominator)
	distributed := big.NewInt(0)
	for i := 0; i < len(recipients)-1; i++ {
		part := new(big.Int).Mul(amount, big.NewInt(int64(recipients[i].ShareBps)))
		part.Quo(part, denominator)
		parts[i] = part
		distributed.Add(distributed, part)
	}
	parts[len(recipients)-1] = new(big.Int).Sub(amount, distributed)
	return parts
}
