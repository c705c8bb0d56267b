package domain

import (
	"math/big"
	"testing"
)

func TestValidateSplitRecipientsAcceptsExactSum(t *testing.T) {
	recipients := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 6000},
		{Recipient: "beta", ShareBps: 4000},
	}
	if err := ValidateSplitRecipients(recipients, 0); err != nil {
		t.Fatalf("ValidateSplitRecipients: %v", err)
	}
}

func TestValidateSplitRecipientsRejectsBadSum(t *testing.T) {
	recipients := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 6000},
		{Recipient: "beta", ShareBps: 3999},
	}
	if err := ValidateSplitRecipients(recipients, 0); err == nil {
		t.Fatal("expected error for shares summing to 9999")
	}
	recipients[1].ShareBps = 4001
	if err := ValidateSplitRecipients(recipients, 0); err == nil {
		t.Fatal("expected error for shares summing to 10001")
	}
}

func TestValidateSplitRecipientsRejectsZeroShareAndEmpty(t *testing.T) {
	if err := ValidateSplitRecipients(nil, 0); err == nil {
		t.Fatal("expected error for empty recipient list")
	}
	recipients := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 10000},
		{Recipient: "beta", ShareBps: 0},
	}
	if err := ValidateSplitRecipients(recipients, 0); err == nil {
		t.Fatal("expected error for zero share")
	}
}

func TestValidateSplitRecipientsEnforcesLimit(t *testing.T) {
	recipients := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 5000},
		{Recipient: "beta", ShareBps: 5000},
	}
	if err := ValidateSplitRecipients(recipients, 1); err == nil {
		t.Fatal("expected error when recipient count exceeds limit")
	}
}

func TestComputeDistributionEvenSplit(t *testing.T) {
	recipients := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 5000},
		{Recipient: "beta", ShareBps: 5000},
	}
	parts := ComputeDistribution(big.NewInt(10), recipients)
	if parts[0].Int64() != 5 || parts[1].Int64() != 5 {
		t.Fatalf("expected 5/5, got %s/%s", parts[0], parts[1])
	}
}

func TestComputeDistributionLastRecipientAbsorbsDust(t *testing.T) {
	recipients := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 5000},
		{Recipient: "beta", ShareBps: 5000},
	}
	parts := ComputeDistribution(big.NewInt(7), recipients)
	if parts[0].Int64() != 3 || parts[1].Int64() != 4 {
		t.Fatalf("expected 3/4, got %s/%s", parts[0], parts[1])
	}
}

func TestComputeDistributionSumsExactly(t *testing.T) {
	recipients := []SplitRecipient{
		{Recipient: "a", ShareBps: 3333},
		{Recipient: "b", ShareBps: 3333},
		{Recipient: "c", ShareBps: 3334},
	}
	for _, amount := range []int64{1, 2, 3, 99, 100, 101, 999999999} {
		parts := ComputeDistribution(big.NewInt(amount), recipients)
		sum := big.NewInt(0)
		for _, part := range parts {
			if part.Sign() < 0 {
				t.Fatalf("negative part %s for amount %d", part, amount)
			}
			sum.Add(sum, part)
		}
		if sum.Int64() != amount {
			t.Fatalf("parts sum to %s for amount %d", sum, amount)
		}
	}
}

func TestHashSplitRecipientsOrderSensitive(t *testing.T) {
	a := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 6000},
		{Recipient: "beta", ShareBps: 4000},
	}
	b := []SplitRecipient{
		{Recipient: "beta", ShareBps: 4000},
		{Recipient: "alpha", ShareBps: 6000},
	}
	if HashSplitRecipients(a) == HashSplitRecipients(b) {
		t.Fatal("expected different hashes for different recipient order")
	}
	if HashSplitRecipients(a) != HashSplitRecipients(a) {
		t.Fatal("expected deterministic hash")
	}
}

func TestHashSplitRecipientsDelimiterInRecipientID(t *testing.T) {
	// Without length prefixes these two lists encode to the same byte
	// stream: "a|1\nb|2\n".
	a := []SplitRecipient{
		{Recipient: "a", ShareBps: 1},
		{Recipient: "b", ShareBps: 2},
	}
	b := []SplitRecipient{
		{Recipient: "a|1\nb", ShareBps: 2},
	}
	if HashSplitRecipients(a) == HashSplitRecipients(b) {
		t.Fatal("recipient ids containing delimiters must not collide")
	}
	c := []SplitRecipient{
		{Recipient: "alpha|6000", ShareBps: 4000},
	}
	d := []SplitRecipient{
		{Recipient: "alpha", ShareBps: 6000},
	}
	if HashSplitRecipients(c) == HashSplitRecipients(d) {
		t.Fatal("embedded share text must not shift field boundaries")
	}
}
