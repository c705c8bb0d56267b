// Package treasury provides the ledger-backed AssetTransfer used in tests
// and the no-database development mode. Balances live per (asset, holder);
// non-native assets move out of a holder only up to a pre-set allowance,
// matching the allowance-then-pull funding model.
package treasury

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/createnexxusvision/NILPOC/internal/domain"
)

// CustodyAccount is the ledger identity holding engine custody.
const CustodyAccount = "custody"

type ledgerKey struct {
	asset  string
	holder string
}

// Ledger is a thread-safe balance book implementing ports.AssetTransfer.
type Ledger struct {
	mu         sync.Mutex
	balances   map[ledgerKey]*big.Int
	allowances map[ledgerKey]*big.Int

	// FailNextPush, when set, makes the next Push return the given error.
	// Test hook for exercising compensation paths.
	failNextPush error
	// pushHook runs before each push; returning an error aborts it.
	pushHook func(asset, to string, amount *big.Int) error
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[ledgerKey]*big.Int),
		allowances: make(map[ledgerKey]*big.Int),
	}
}

// Credit seeds a holder balance.
func (l *Ledger) Credit(asset, holder string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balanceLocked(asset, holder).Add(l.balanceLocked(asset, holder), amount)
}

// Approve grants the custody account permission to pull up to amount of a
// non-native asset from the holder. Overwrites any prior allowance.
func (l *Ledger) Approve(asset, holder string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[ledgerKey{asset: asset, holder: holder}] = new(big.Int).Set(amount)
}

// Balance reads a holder balance.
func (l *Ledger) Balance(asset, holder string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(asset, holder))
}

// FailNextPush arms a one-shot push failure.
func (l *Ledger) FailNextPush(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNextPush = err
}

// SetPushHook installs a callback invoked before every push.
func (l *Ledger) SetPushHook(hook func(asset, to string, amount *big.Int) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pushHook = hook
}

// Pull moves amount from the holder into custody. Non-native assets consume
// allowance; native assets only need balance.
func (l *Ledger) Pull(_ context.Context, asset, from string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if from == CustodyAccount {
		return fmt.Errorf("treasury: custody cannot pull from itself")
	}
	balance := l.balanceLocked(asset, from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("treasury: %s has %s %s, needs %s", from, balance, asset, amount)
	}
	if !domain.IsNativeAsset(asset) {
		key := ledgerKey{asset: asset, holder: from}
		allowance, ok := l.allowances[key]
		if !ok || allowance.Cmp(amount) < 0 {
			return fmt.Errorf("treasury: %s allowance for %s is insufficient", from, asset)
		}
		allowance.Sub(allowance, amount)
	}
	balance.Sub(balance, amount)
	l.balanceLocked(asset, CustodyAccount).Add(l.balanceLocked(asset, CustodyAccount), amount)
	return nil
}

// Push releases amount from custody to the recipient.
func (l *Ledger) Push(_ context.Context, asset, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNextPush != nil {
		err := l.failNextPush
		l.failNextPush = nil
		return err
	}
	if l.pushHook != nil {
		if err := l.pushHook(asset, to, amount); err != nil {
			return err
		}
	}
	custody := l.balanceLocked(asset, CustodyAccount)
	if custody.Cmp(amount) < 0 {
		return fmt.Errorf("treasury: custody holds %s %s, needs %s", custody, asset, amount)
	}
	custody.Sub(custody, amount)
	l.balanceLocked(asset, to).Add(l.balanceLocked(asset, to), amount)
	return nil
}

func (l *Ledger) balanceLocked(asset, holder string) *big.Int {
	key := ledgerKey{asset: asset, holder: holder}
	balance, ok := l.balances[key]
	if !ok {
		balance = big.NewInt(0)
		l.balances[key] = balance
	}
	return balance
}
