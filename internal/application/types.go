package application

import (
	"math/big"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// Actor is the authenticated caller identity as established by the transport
// layer (gateway token or trusted header).
type Actor struct {
	Identity  string
	RequestID string
}

// Config carries engine policy knobs resolved at bootstrap.
type Config struct {
	ServiceName              string
	FeeBps                   uint32
	FeeRecipient             string
	GrantsRequireAttestation bool
	MaxSplitRecipients       int
}

type CreateDealInput struct {
	Beneficiary    string
	Asset          string
	Amount         *big.Int
	AttachedAmount *big.Int
	Deadline       time.Time
	TermsDigest    string
}

type CreateGrantInput struct {
	Beneficiary    string
	Asset          string
	Amount         *big.Int
	AttachedAmount *big.Int
	UnlockTime     time.Time
	TermsDigest    string
}

type PayoutInput struct {
	Ref            string
	Asset          string
	Amount         *big.Int
	AttachedAmount *big.Int
	SplitID        uint64
}

// SignedAuthorization is a detached, domain-separated authorization produced
// off-band by a capability holder and submitted by any relayer.
type SignedAuthorization struct {
	Signer    string
	Nonce     uint64
	Deadline  time.Time
	Signature []byte
}

// SettlementResult reports the exact money movement of a deal settlement.
type SettlementResult struct {
	Deal  domain.Deal
	Gross *big.Int
	Fee   *big.Int
	Net   *big.Int
}
