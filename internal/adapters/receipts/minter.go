// Package receipts holds the settlement receipt collaborators. The engine
// only needs fire-and-forget semantics from them.
package receipts

import (
	"context"
	"log/slog"
	"sync"

	"github.com/createnexxusvision/NILPOC/internal/ports"
)

// LogMinter records receipts in the structured log. Deployments with a real
// minting collaborator replace this adapter.
type LogMinter struct {
	logger *slog.Logger
}

func NewLogMinter(logger *slog.Logger) *LogMinter {
	return &LogMinter{logger: logger}
}

func (m *LogMinter) MintReceipt(ctx context.Context, receipt ports.ReceiptRequest) error {
	m.logger.InfoContext(ctx, "settlement receipt minted",
		slog.Uint64("deal_id", receipt.DealID),
		slog.String("sponsor", receipt.Sponsor),
		slog.String("beneficiary", receipt.Beneficiary),
		slog.String("asset", receipt.Asset),
		slog.String("gross", receipt.Gross.String()),
		slog.String("fee", receipt.Fee.String()))
	return nil
}

// MemoryMinter captures receipts for test assertions.
type MemoryMinter struct {
	mu       sync.Mutex
	receipts []ports.ReceiptRequest
	failWith error
}

func NewMemoryMinter() *MemoryMinter {
	return &MemoryMinter{}
}

func (m *MemoryMinter) MintReceipt(_ context.Context, receipt ports.ReceiptRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.receipts = append(m.receipts, receipt)
	return nil
}

func (m *MemoryMinter) Receipts() []ports.ReceiptRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.ReceiptRequest(nil), m.receipts...)
}

func (m *MemoryMinter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}
