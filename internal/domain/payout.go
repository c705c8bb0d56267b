package domain

import (
	"math/big"
	"time"
)

// Payout is a write-once audit record of an executed distribution. Payer is
// the account the funds were taken from; Authorizer differs from Payer only
// when the payout was submitted by a relayer under a signed authorization.
type Payout struct {
	PayoutID   uint64
	Ref        string
	Asset      string
	Amount     *big.Int
	SplitID    uint64
	Payer      string
	Authorizer string
	ExecutedAt time.Time
}
