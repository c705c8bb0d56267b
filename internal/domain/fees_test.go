package domain

import (
	"math/big"
	"testing"
)

func TestSplitFeeFloorsAndConserves(t *testing.T) {
	cases := []struct {
		amount  int64
		feeBps  uint32
		wantFee int64
	}{
		{100, 200, 2},
		{99, 200, 1},
		{1, 200, 0},
		{10000, 1, 1},
		{9999, 1, 0},
		{100, 0, 0},
		{100, 10000, 100},
	}
	for _, tc := range cases {
		fee, net := SplitFee(big.NewInt(tc.amount), tc.feeBps)
		if fee.Int64() != tc.wantFee {
			t.Fatalf("amount %d at %d bps: fee %s, want %d", tc.amount, tc.feeBps, fee, tc.wantFee)
		}
		if new(big.Int).Add(fee, net).Int64() != tc.amount {
			t.Fatalf("amount %d at %d bps: fee %s + net %s != amount", tc.amount, tc.feeBps, fee, net)
		}
	}
}

func TestFeePolicyValidate(t *testing.T) {
	if err := (FeePolicy{FeeBps: 10001}).Validate(); err == nil {
		t.Fatal("expected error for fee above 10000 bps")
	}
	if err := (FeePolicy{FeeBps: 10000}).Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if (FeePolicy{FeeBps: 200}).Enabled() {
		t.Fatal("policy without recipient must be disabled")
	}
	if !(FeePolicy{FeeBps: 200, FeeRecipient: "treasury-ops"}).Enabled() {
		t.Fatal("policy with bps and recipient must be enabled")
	}
}
