package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/adapters/memory"
	"github.com/createnexxusvision/NILPOC/internal/contracts"
	"github.com/createnexxusvision/NILPOC/internal/ports"
)

type flakyPublisher struct {
	inner    *MemoryPublisher
	failures int
}

func (p *flakyPublisher) Publish(ctx context.Context, envelope contracts.EventEnvelope) error {
	if p.failures > 0 {
		p.failures--
		return fmt.Errorf("broker unavailable")
	}
	return p.inner.Publish(ctx, envelope)
}

func testRecord(id, eventType string) ports.OutboxRecord {
	return ports.OutboxRecord{
		RecordID: id,
		Envelope: contracts.EventEnvelope{
			EventID:       id,
			EventType:     eventType,
			OccurredAt:    time.Now().UTC(),
			SchemaVersion: "1.0",
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestOutboxWorkerPublishesAndMarksSent(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	publisher := NewMemoryPublisher()
	worker := NewOutboxWorker(slog.New(slog.NewTextHandler(io.Discard, nil)), outbox, publisher, time.Second, 10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := outbox.Enqueue(ctx, testRecord(fmt.Sprintf("rec-%d", i), "deal.settled")); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if got := len(publisher.Envelopes()); got != 3 {
		t.Fatalf("published %d envelopes, want 3", got)
	}
	pending, err := outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("%d records still pending after publish", len(pending))
	}
}

func TestOutboxWorkerRetriesFailedPublishes(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	inner := NewMemoryPublisher()
	publisher := &flakyPublisher{inner: inner, failures: 1}
	worker := NewOutboxWorker(slog.New(slog.NewTextHandler(io.Discard, nil)), outbox, publisher, time.Second, 10)
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, testRecord("rec-1", "payout.executed")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if len(inner.Envelopes()) != 0 {
		t.Fatal("failed publish must not deliver")
	}
	pending, _ := outbox.ListPending(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("record must stay pending after a failed publish, got %d", len(pending))
	}

	if err := worker.processOnce(ctx); err != nil {
		t.Fatalf("second processOnce: %v", err)
	}
	if len(inner.Envelopes()) != 1 {
		t.Fatalf("published %d envelopes after retry, want 1", len(inner.Envelopes()))
	}
	pending, _ = outbox.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatal("record must be marked sent after successful retry")
	}
}
