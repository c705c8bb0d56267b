package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/createnexxusvision/NILPOC/internal/contracts"
)

// LogPublisher emits envelopes to the structured log. Stand-in delivery
// target for deployments without a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "event published",
		slog.String("event_id", envelope.EventID),
		slog.String("event_type", envelope.EventType),
		slog.String("event_class", envelope.EventClass),
		slog.String("partition_key", envelope.PartitionKey),
		slog.String("trace_id", envelope.TraceID))
	return nil
}

// MemoryPublisher captures envelopes for assertions in tests.
type MemoryPublisher struct {
	mu        sync.Mutex
	envelopes []contracts.EventEnvelope
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelope)
	return nil
}

func (p *MemoryPublisher) Envelopes() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]contracts.EventEnvelope(nil), p.envelopes...)
}
