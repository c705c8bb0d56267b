package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/adapters/cache"
	"github.com/createnexxusvision/NILPOC/internal/adapters/memory"
	"github.com/createnexxusvision/NILPOC/internal/adapters/receipts"
	"github.com/createnexxusvision/NILPOC/internal/adapters/security"
	"github.com/createnexxusvision/NILPOC/internal/adapters/treasury"
	"github.com/createnexxusvision/NILPOC/internal/domain"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

type fixture struct {
	svc          *Service
	ledger       *treasury.Ledger
	breaker      *cache.StaticCircuitBreaker
	capabilities *security.StaticCapabilityDirectory
	signerKeys   *security.StaticSignerKeyDirectory
	minter       *receipts.MemoryMinter
	outbox       *memory.OutboxRepository
	payouts      *memory.PayoutRepository
	accounting   *memory.AccountingRepository
	partyStats   *memory.PartyStatsRepository
	nonces       *memory.NonceRepository
	now          time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		ledger:       treasury.NewLedger(),
		breaker:      cache.NewStaticCircuitBreaker(),
		capabilities: security.NewStaticCapabilityDirectory(),
		signerKeys:   security.NewStaticSignerKeyDirectory(),
		minter:       receipts.NewMemoryMinter(),
		outbox:       memory.NewOutboxRepository(),
		payouts:      memory.NewPayoutRepository(),
		accounting:   memory.NewAccountingRepository(),
		partyStats:   memory.NewPartyStatsRepository(),
		nonces:       memory.NewNonceRepository(),
		now:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "settlement-engine-test"
	}
	svc, err := NewService(Dependencies{
		Config:       cfg,
		Deals:        memory.NewDealRepository(),
		Grants:       memory.NewGrantRepository(),
		Splits:       memory.NewSplitRepository(),
		Payouts:      f.payouts,
		Accounting:   f.accounting,
		PartyStats:   f.partyStats,
		Nonces:       f.nonces,
		Outbox:       f.outbox,
		Treasury:     f.ledger,
		Capabilities: f.capabilities,
		Breaker:      f.breaker,
		Minter:       f.minter,
		SignerKeys:   f.signerKeys,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.nowFn = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func feeConfig() Config {
	return Config{FeeBps: 200, FeeRecipient: "treasury-ops", GrantsRequireAttestation: true}
}

func TestNativeDealSettlementWithFee(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))

	sponsor := Actor{Identity: "sponsor", RequestID: "req-1"}
	deal, err := f.svc.CreateDeal(ctx, sponsor, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		Deadline:       f.now.Add(72 * time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	total, _ := f.accounting.Total(ctx, domain.NativeAsset)
	if total.Int64() != 100 {
		t.Fatalf("custody total after funding: %s, want 100", total)
	}

	creator := Actor{Identity: "creator", RequestID: "req-2"}
	if _, err := f.svc.MarkDelivered(ctx, creator, deal.DealID, "sha256:evidence"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	result, err := f.svc.ApproveAndSettle(ctx, sponsor, deal.DealID)
	if err != nil {
		t.Fatalf("ApproveAndSettle: %v", err)
	}
	if result.Fee.Int64() != 2 || result.Net.Int64() != 98 {
		t.Fatalf("fee/net = %s/%s, want 2/98", result.Fee, result.Net)
	}
	if f.ledger.Balance(domain.NativeAsset, "treasury-ops").Int64() != 2 {
		t.Fatalf("fee recipient balance: %s", f.ledger.Balance(domain.NativeAsset, "treasury-ops"))
	}
	if f.ledger.Balance(domain.NativeAsset, "creator").Int64() != 98 {
		t.Fatalf("beneficiary balance: %s", f.ledger.Balance(domain.NativeAsset, "creator"))
	}
	total, _ = f.accounting.Total(ctx, domain.NativeAsset)
	if total.Sign() != 0 {
		t.Fatalf("custody total after settlement: %s, want 0", total)
	}

	settled, err := f.svc.GetDeal(ctx, deal.DealID)
	if err != nil {
		t.Fatalf("GetDeal: %v", err)
	}
	if settled.Status != domain.DealStatusSettled || settled.Amount.Sign() != 0 {
		t.Fatalf("deal after settlement: status=%s amount=%s", settled.Status, settled.Amount)
	}

	for _, party := range []string{"sponsor", "creator"} {
		stats, _ := f.partyStats.Get(ctx, party)
		if stats.CompletedDeals != 1 {
			t.Fatalf("%s completed deals: %d, want 1", party, stats.CompletedDeals)
		}
	}
	if len(f.minter.Receipts()) != 1 {
		t.Fatalf("receipts minted: %d, want 1", len(f.minter.Receipts()))
	}

	events := f.outbox.Events()
	want := []string{domain.EventDealCreated, domain.EventDealDelivered, domain.EventDealSettled}
	if len(events) != len(want) {
		t.Fatalf("events %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestNativeDealRequiresExactAttachedValue(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))

	_, err := f.svc.CreateDeal(ctx, Actor{Identity: "sponsor"}, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(99),
		Deadline:       f.now.Add(time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	total, _ := f.accounting.Total(ctx, domain.NativeAsset)
	if total.Sign() != 0 {
		t.Fatalf("custody total after rejected funding: %s", total)
	}
}

func TestTokenDealDisputeRefund(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	const token = "tok-usd"
	f.ledger.Credit(token, "sponsor", big.NewInt(500))
	f.ledger.Approve(token, "sponsor", big.NewInt(500))
	f.capabilities.Grant("judge", "arbitrator")

	sponsor := Actor{Identity: "sponsor"}
	deal, err := f.svc.CreateDeal(ctx, sponsor, CreateDealInput{
		Beneficiary: "creator",
		Asset:       token,
		Amount:      big.NewInt(500),
		Deadline:    f.now.Add(time.Hour),
		TermsDigest: "sha256:terms",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if f.ledger.Balance(token, "sponsor").Sign() != 0 {
		t.Fatal("sponsor should be debited after funding")
	}

	if _, err := f.svc.RaiseDispute(ctx, sponsor, deal.DealID, "non_delivery", "sha256:claim"); err != nil {
		t.Fatalf("RaiseDispute: %v", err)
	}
	for _, party := range []string{"sponsor", "creator"} {
		stats, _ := f.partyStats.Get(ctx, party)
		if stats.DisputedDeals != 1 {
			t.Fatalf("%s disputed deals: %d, want 1", party, stats.DisputedDeals)
		}
	}

	result, err := f.svc.ResolveDispute(ctx, Actor{Identity: "judge"}, deal.DealID, true)
	if err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}
	if result.Deal.Status != domain.DealStatusRefunded {
		t.Fatalf("status after refund: %s", result.Deal.Status)
	}
	if f.ledger.Balance(token, "sponsor").Int64() != 500 {
		t.Fatalf("sponsor balance after refund: %s", f.ledger.Balance(token, "sponsor"))
	}
	if f.ledger.Balance(token, "treasury-ops").Sign() != 0 {
		t.Fatal("no fee may be taken on refund")
	}
	total, _ := f.accounting.Total(ctx, token)
	if total.Sign() != 0 {
		t.Fatalf("custody total after refund: %s", total)
	}
}

func TestResolveDisputeSettleExtractsFee(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))
	f.capabilities.Grant("judge", "arbitrator")

	deal, err := f.svc.CreateDeal(ctx, Actor{Identity: "sponsor"}, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		Deadline:       f.now.Add(time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := f.svc.RaiseDispute(ctx, Actor{Identity: "creator"}, deal.DealID, "payment_withheld", ""); err != nil {
		t.Fatalf("RaiseDispute: %v", err)
	}
	if _, err := f.svc.ResolveDispute(ctx, Actor{Identity: "creator"}, deal.DealID, false); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-arbitrator resolution: want ErrForbidden, got %v", err)
	}
	result, err := f.svc.ResolveDispute(ctx, Actor{Identity: "judge"}, deal.DealID, false)
	if err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}
	if result.Fee.Int64() != 2 || result.Net.Int64() != 98 {
		t.Fatalf("fee/net = %s/%s, want 2/98", result.Fee, result.Net)
	}
}

func TestForceSettleRespectsDeadline(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(50))

	deal, err := f.svc.CreateDeal(ctx, Actor{Identity: "sponsor"}, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(50),
		AttachedAmount: big.NewInt(50),
		Deadline:       f.now.Add(24 * time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	creator := Actor{Identity: "creator"}
	if _, err := f.svc.MarkDelivered(ctx, creator, deal.DealID, "sha256:evidence"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if _, err := f.svc.ForceSettle(ctx, creator, deal.DealID); !errors.Is(err, domain.ErrDeadlineNotReached) {
		t.Fatalf("force settle before deadline: want ErrDeadlineNotReached, got %v", err)
	}
	f.advance(25 * time.Hour)
	if _, err := f.svc.ForceSettle(ctx, Actor{Identity: "sponsor"}, deal.DealID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("sponsor force settle: want ErrForbidden, got %v", err)
	}
	result, err := f.svc.ForceSettle(ctx, creator, deal.DealID)
	if err != nil {
		t.Fatalf("ForceSettle: %v", err)
	}
	if result.Net.Int64() != 49 {
		t.Fatalf("net after 2%% fee on 50: %s, want 49", result.Net)
	}
}

func TestSettlementTransferFailureIsCompensated(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))

	deal, err := f.svc.CreateDeal(ctx, Actor{Identity: "sponsor"}, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		Deadline:       f.now.Add(time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := f.svc.MarkDelivered(ctx, Actor{Identity: "creator"}, deal.DealID, "sha256:evidence"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	f.ledger.FailNextPush(fmt.Errorf("custody rail offline"))
	_, err = f.svc.ApproveAndSettle(ctx, Actor{Identity: "sponsor"}, deal.DealID)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed, got %v", err)
	}

	restored, err := f.svc.GetDeal(ctx, deal.DealID)
	if err != nil {
		t.Fatalf("GetDeal: %v", err)
	}
	if restored.Status != domain.DealStatusDelivered || restored.Amount.Int64() != 100 {
		t.Fatalf("deal after failed settlement: status=%s amount=%s", restored.Status, restored.Amount)
	}
	total, _ := f.accounting.Total(ctx, domain.NativeAsset)
	if total.Int64() != 100 {
		t.Fatalf("custody total after compensation: %s, want 100", total)
	}

	// Retry succeeds once the rail recovers.
	result, err := f.svc.ApproveAndSettle(ctx, Actor{Identity: "sponsor"}, deal.DealID)
	if err != nil {
		t.Fatalf("retry ApproveAndSettle: %v", err)
	}
	if result.Net.Int64() != 98 {
		t.Fatalf("net on retry: %s, want 98", result.Net)
	}
}

func TestReentrantSettlementIsRejected(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))

	deal, err := f.svc.CreateDeal(ctx, Actor{Identity: "sponsor"}, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		Deadline:       f.now.Add(time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	if _, err := f.svc.MarkDelivered(ctx, Actor{Identity: "creator"}, deal.DealID, "sha256:evidence"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	var reentrantErr error
	f.ledger.SetPushHook(func(string, string, *big.Int) error {
		// Simulates a transfer callback trying to re-enter the same deal.
		_, reentrantErr = f.svc.ApproveAndSettle(ctx, Actor{Identity: "sponsor"}, deal.DealID)
		return nil
	})
	if _, err := f.svc.ApproveAndSettle(ctx, Actor{Identity: "sponsor"}, deal.DealID); err != nil {
		t.Fatalf("ApproveAndSettle: %v", err)
	}
	if !errors.Is(reentrantErr, domain.ErrConflict) {
		t.Fatalf("reentrant call: want ErrConflict, got %v", reentrantErr)
	}
}

func TestPauseBlocksMutationsButNotReads(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(100))
	f.breaker.SetPaused(true)

	_, err := f.svc.CreateDeal(ctx, Actor{Identity: "sponsor"}, CreateDealInput{
		Beneficiary:    "creator",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		Deadline:       f.now.Add(time.Hour),
		TermsDigest:    "sha256:terms",
	})
	if !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("want ErrPaused, got %v", err)
	}
	if _, err := f.svc.AccountingTotal(ctx, domain.NativeAsset); err != nil {
		t.Fatalf("reads must stay available while paused: %v", err)
	}
}

func TestPauseBlocksFeePolicyUpdate(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.capabilities.Grant("ops-admin", "administrator")
	f.breaker.SetPaused(true)

	err := f.svc.UpdateFeePolicy(ctx, Actor{Identity: "ops-admin"}, domain.FeePolicy{FeeBps: 500, FeeRecipient: "treasury-ops"})
	if !errors.Is(err, domain.ErrPaused) {
		t.Fatalf("want ErrPaused, got %v", err)
	}
	if got := f.svc.FeePolicy().FeeBps; got != 200 {
		t.Fatalf("fee bps changed while paused: %d", got)
	}
}

func TestGrantLifecycle(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(1000))
	f.capabilities.Grant("compliance-bot", "attester")

	sponsor := Actor{Identity: "sponsor"}
	grant, err := f.svc.CreateGrant(ctx, sponsor, CreateGrantInput{
		Beneficiary:    "athlete",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(1000),
		AttachedAmount: big.NewInt(1000),
		UnlockTime:     f.now.Add(48 * time.Hour),
		TermsDigest:    "sha256:grant-terms",
	})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}

	athlete := Actor{Identity: "athlete"}
	if _, err := f.svc.WithdrawGrant(ctx, athlete, grant.GrantID); !errors.Is(err, domain.ErrTimelocked) {
		t.Fatalf("withdraw before unlock: want ErrTimelocked, got %v", err)
	}

	if _, err := f.svc.AttestGrant(ctx, athlete, grant.GrantID, "sha256:attestation"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("attest without capability: want ErrForbidden, got %v", err)
	}
	attester := Actor{Identity: "compliance-bot"}
	if _, err := f.svc.AttestGrant(ctx, attester, grant.GrantID, "sha256:attestation"); err != nil {
		t.Fatalf("AttestGrant: %v", err)
	}
	if _, err := f.svc.AttestGrant(ctx, attester, grant.GrantID, "sha256:attestation"); !errors.Is(err, domain.ErrAlreadyAttested) {
		t.Fatalf("second attestation: want ErrAlreadyAttested, got %v", err)
	}

	f.advance(49 * time.Hour)
	withdrawn, err := f.svc.WithdrawGrant(ctx, athlete, grant.GrantID)
	if err != nil {
		t.Fatalf("WithdrawGrant: %v", err)
	}
	if !withdrawn.Withdrawn || withdrawn.Amount.Sign() != 0 {
		t.Fatalf("grant after withdrawal: withdrawn=%v amount=%s", withdrawn.Withdrawn, withdrawn.Amount)
	}
	if f.ledger.Balance(domain.NativeAsset, "athlete").Int64() != 1000 {
		t.Fatalf("athlete balance: %s, want 1000", f.ledger.Balance(domain.NativeAsset, "athlete"))
	}
	total, _ := f.accounting.Total(ctx, domain.NativeAsset)
	if total.Sign() != 0 {
		t.Fatalf("custody total after withdrawal: %s", total)
	}

	if _, err := f.svc.WithdrawGrant(ctx, athlete, grant.GrantID); !errors.Is(err, domain.ErrAlreadySettled) {
		t.Fatalf("double withdraw: want ErrAlreadySettled, got %v", err)
	}
}

func TestGrantWithdrawRequiresAttestationWhenConfigured(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(10))

	grant, err := f.svc.CreateGrant(ctx, Actor{Identity: "sponsor"}, CreateGrantInput{
		Beneficiary:    "athlete",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(10),
		AttachedAmount: big.NewInt(10),
		UnlockTime:     f.now.Add(time.Hour),
		TermsDigest:    "sha256:grant-terms",
	})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	f.advance(2 * time.Hour)
	if _, err := f.svc.WithdrawGrant(ctx, Actor{Identity: "athlete"}, grant.GrantID); !errors.Is(err, domain.ErrNotAttested) {
		t.Fatalf("want ErrNotAttested, got %v", err)
	}
}

func TestGrantRefundOnlyBeforeUnlock(t *testing.T) {
	f := newFixture(t, Config{FeeBps: 0, GrantsRequireAttestation: false})
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(10))

	sponsor := Actor{Identity: "sponsor"}
	grant, err := f.svc.CreateGrant(ctx, sponsor, CreateGrantInput{
		Beneficiary:    "athlete",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(10),
		AttachedAmount: big.NewInt(10),
		UnlockTime:     f.now.Add(time.Hour),
		TermsDigest:    "sha256:grant-terms",
	})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	if _, err := f.svc.RefundGrant(ctx, Actor{Identity: "athlete"}, grant.GrantID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("beneficiary refund: want ErrForbidden, got %v", err)
	}
	refunded, err := f.svc.RefundGrant(ctx, sponsor, grant.GrantID)
	if err != nil {
		t.Fatalf("RefundGrant: %v", err)
	}
	if !refunded.Refunded {
		t.Fatal("grant must be marked refunded")
	}
	if f.ledger.Balance(domain.NativeAsset, "sponsor").Int64() != 10 {
		t.Fatalf("sponsor balance after refund: %s", f.ledger.Balance(domain.NativeAsset, "sponsor"))
	}
}

func TestGrantRefundWindowClosesAtUnlock(t *testing.T) {
	f := newFixture(t, Config{GrantsRequireAttestation: false})
	ctx := context.Background()
	f.ledger.Credit(domain.NativeAsset, "sponsor", big.NewInt(10))

	sponsor := Actor{Identity: "sponsor"}
	grant, err := f.svc.CreateGrant(ctx, sponsor, CreateGrantInput{
		Beneficiary:    "athlete",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(10),
		AttachedAmount: big.NewInt(10),
		UnlockTime:     f.now.Add(time.Hour),
		TermsDigest:    "sha256:grant-terms",
	})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	f.advance(2 * time.Hour)
	if _, err := f.svc.RefundGrant(ctx, sponsor, grant.GrantID); !errors.Is(err, domain.ErrInvalidStateTransition) {
		t.Fatalf("refund after unlock: want ErrInvalidStateTransition, got %v", err)
	}
}

func TestDefineSplitAndPayoutDistribution(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.capabilities.Grant("payout-runner", "operator")
	f.ledger.Credit(domain.NativeAsset, "brand", big.NewInt(7))

	operator := Actor{Identity: "payout-runner"}
	split, err := f.svc.DefineSplit(ctx, operator, []domain.SplitRecipient{
		{Recipient: "athlete", ShareBps: 5000},
		{Recipient: "agency", ShareBps: 5000},
	})
	if err != nil {
		t.Fatalf("DefineSplit: %v", err)
	}
	if split.ContentHash == "" {
		t.Fatal("split must carry a content hash")
	}

	payout, err := f.svc.ExecutePayout(ctx, Actor{Identity: "brand"}, PayoutInput{
		Ref:            "campaign-7",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(7),
		AttachedAmount: big.NewInt(7),
		SplitID:        split.SplitID,
	})
	if err != nil {
		t.Fatalf("ExecutePayout: %v", err)
	}
	if payout.Payer != "brand" || payout.Authorizer != "brand" {
		t.Fatalf("payer/authorizer = %s/%s", payout.Payer, payout.Authorizer)
	}
	if f.ledger.Balance(domain.NativeAsset, "athlete").Int64() != 3 {
		t.Fatalf("athlete share: %s, want 3", f.ledger.Balance(domain.NativeAsset, "athlete"))
	}
	if f.ledger.Balance(domain.NativeAsset, "agency").Int64() != 4 {
		t.Fatalf("agency share: %s, want 4", f.ledger.Balance(domain.NativeAsset, "agency"))
	}
}

func TestDefineSplitRejectsBadSumWithoutRegistering(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.capabilities.Grant("payout-runner", "operator")

	before, _ := f.svc.SplitCount(ctx)
	_, err := f.svc.DefineSplit(ctx, Actor{Identity: "payout-runner"}, []domain.SplitRecipient{
		{Recipient: "athlete", ShareBps: 5000},
		{Recipient: "agency", ShareBps: 4999},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	after, _ := f.svc.SplitCount(ctx)
	if before != after {
		t.Fatalf("split count changed on rejected definition: %d -> %d", before, after)
	}
}

func TestDefineSplitRequiresCapability(t *testing.T) {
	f := newFixture(t, feeConfig())
	_, err := f.svc.DefineSplit(context.Background(), Actor{Identity: "random"}, []domain.SplitRecipient{
		{Recipient: "athlete", ShareBps: 10000},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestPayoutFailureRefundsPayer(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.capabilities.Grant("payout-runner", "operator")
	f.ledger.Credit(domain.NativeAsset, "brand", big.NewInt(100))

	split, err := f.svc.DefineSplit(ctx, Actor{Identity: "payout-runner"}, []domain.SplitRecipient{
		{Recipient: "athlete", ShareBps: 10000},
	})
	if err != nil {
		t.Fatalf("DefineSplit: %v", err)
	}
	f.ledger.FailNextPush(fmt.Errorf("rail offline"))
	_, err = f.svc.ExecutePayout(ctx, Actor{Identity: "brand"}, PayoutInput{
		Ref:            "campaign-x",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		SplitID:        split.SplitID,
	})
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("want ErrTransferFailed, got %v", err)
	}
	if f.ledger.Balance(domain.NativeAsset, "brand").Int64() != 100 {
		t.Fatalf("payer balance after unwind: %s, want 100", f.ledger.Balance(domain.NativeAsset, "brand"))
	}
	if len(f.payouts.All()) != 0 {
		t.Fatal("no payout record may exist after a failed distribution")
	}
}

type stuckPayoutRepo struct {
	ports.PayoutRepository
	err error
}

func (r *stuckPayoutRepo) Append(context.Context, domain.Payout) (domain.Payout, error) {
	return domain.Payout{}, r.err
}

func TestPayoutRecordFailureLeavesDistributionInPlace(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.capabilities.Grant("payout-runner", "operator")
	f.ledger.Credit(domain.NativeAsset, "brand", big.NewInt(100))

	split, err := f.svc.DefineSplit(ctx, Actor{Identity: "payout-runner"}, []domain.SplitRecipient{
		{Recipient: "athlete", ShareBps: 10000},
	})
	if err != nil {
		t.Fatalf("DefineSplit: %v", err)
	}
	f.svc.payouts = &stuckPayoutRepo{PayoutRepository: f.payouts, err: fmt.Errorf("record store offline")}

	_, err = f.svc.ExecutePayout(ctx, Actor{Identity: "brand"}, PayoutInput{
		Ref:            "campaign-y",
		Asset:          domain.NativeAsset,
		Amount:         big.NewInt(100),
		AttachedAmount: big.NewInt(100),
		SplitID:        split.SplitID,
	})
	if err == nil {
		t.Fatal("expected error when the payout record cannot be appended")
	}
	if errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("record failure must not read as a transfer failure: %v", err)
	}
	// The distribution completed as requested, so recipients keep their
	// legs and the payer is not refunded.
	if f.ledger.Balance(domain.NativeAsset, "athlete").Int64() != 100 {
		t.Fatalf("athlete balance: %s, want 100", f.ledger.Balance(domain.NativeAsset, "athlete"))
	}
	if f.ledger.Balance(domain.NativeAsset, "brand").Sign() != 0 {
		t.Fatalf("payer balance: %s, want 0", f.ledger.Balance(domain.NativeAsset, "brand"))
	}
}

func TestUpdateFeePolicy(t *testing.T) {
	f := newFixture(t, feeConfig())
	ctx := context.Background()
	f.capabilities.Grant("ops-admin", "administrator")

	if err := f.svc.UpdateFeePolicy(ctx, Actor{Identity: "random"}, domain.FeePolicy{FeeBps: 100, FeeRecipient: "treasury-ops"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin update: want ErrForbidden, got %v", err)
	}
	if err := f.svc.UpdateFeePolicy(ctx, Actor{Identity: "ops-admin"}, domain.FeePolicy{FeeBps: 10001}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("fee above denominator: want ErrInvalidInput, got %v", err)
	}
	if err := f.svc.UpdateFeePolicy(ctx, Actor{Identity: "ops-admin"}, domain.FeePolicy{FeeBps: 100, FeeRecipient: "treasury-ops"}); err != nil {
		t.Fatalf("UpdateFeePolicy: %v", err)
	}
	if got := f.svc.FeePolicy().FeeBps; got != 100 {
		t.Fatalf("fee bps after update: %d, want 100", got)
	}
}
