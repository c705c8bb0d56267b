package treasury

import (
	"context"
	"math/big"
	"testing"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

func TestNativePullNeedsOnlyBalance(t *testing.T) {
	ledger := NewLedger()
	ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))
	ctx := context.Background()

	if err := ledger.Pull(ctx, domain.NativeAsset, "sponsor", big.NewInt(60)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if ledger.Balance(domain.NativeAsset, "sponsor").Int64() != 40 {
		t.Fatalf("sponsor balance %s", ledger.Balance(domain.NativeAsset, "sponsor"))
	}
	if ledger.Balance(domain.NativeAsset, CustodyAccount).Int64() != 60 {
		t.Fatalf("custody balance %s", ledger.Balance(domain.NativeAsset, CustodyAccount))
	}
	if err := ledger.Pull(ctx, domain.NativeAsset, "sponsor", big.NewInt(41)); err == nil {
		t.Fatal("expected error for insufficient balance")
	}
}

func TestTokenPullConsumesAllowance(t *testing.T) {
	ledger := NewLedger()
	const token = "tok-usd"
	ledger.Credit(token, "sponsor", big.NewInt(100))
	ctx := context.Background()

	if err := ledger.Pull(ctx, token, "sponsor", big.NewInt(10)); err == nil {
		t.Fatal("expected error without allowance")
	}
	ledger.Approve(token, "sponsor", big.NewInt(50))
	if err := ledger.Pull(ctx, token, "sponsor", big.NewInt(30)); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if err := ledger.Pull(ctx, token, "sponsor", big.NewInt(30)); err == nil {
		t.Fatal("expected error once allowance is exhausted")
	}
	if ledger.Balance(token, "sponsor").Int64() != 70 {
		t.Fatalf("sponsor balance %s", ledger.Balance(token, "sponsor"))
	}
}

func TestPushMovesFromCustody(t *testing.T) {
	ledger := NewLedger()
	ledger.Credit(domain.NativeAsset, CustodyAccount, big.NewInt(25))
	ctx := context.Background()

	if err := ledger.Push(ctx, domain.NativeAsset, "creator", big.NewInt(25)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if ledger.Balance(domain.NativeAsset, "creator").Int64() != 25 {
		t.Fatalf("creator balance %s", ledger.Balance(domain.NativeAsset, "creator"))
	}
	if err := ledger.Push(ctx, domain.NativeAsset, "creator", big.NewInt(1)); err == nil {
		t.Fatal("expected error for empty custody")
	}
}

func TestFailNextPushIsOneShot(t *testing.T) {
	ledger := NewLedger()
	ledger.Credit(domain.NativeAsset, CustodyAccount, big.NewInt(10))
	ledger.FailNextPush(context.DeadlineExceeded)
	ctx := context.Background()

	if err := ledger.Push(ctx, domain.NativeAsset, "creator", big.NewInt(5)); err == nil {
		t.Fatal("expected armed failure")
	}
	if err := ledger.Push(ctx, domain.NativeAsset, "creator", big.NewInt(5)); err != nil {
		t.Fatalf("second push: %v", err)
	}
}

func TestCustodyCannotPullFromItself(t *testing.T) {
	ledger := NewLedger()
	ledger.Credit(domain.NativeAsset, CustodyAccount, big.NewInt(10))
	if err := ledger.Pull(context.Background(), domain.NativeAsset, CustodyAccount, big.NewInt(1)); err == nil {
		t.Fatal("expected self-pull rejection")
	}
}
