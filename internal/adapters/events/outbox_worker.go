package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/createnexxusvision/NILPOC/internal/ports"
)

// OutboxWorker drains pending audit events and publishes them. This keeps
// entity writes and broker delivery decoupled: a publish outage delays
// events, it never loses them.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		logger:    logger,
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run executes the periodic publish loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox iteration failed",
				slog.String("operation", "outbox_process_once"),
				slog.String("outcome", "failure"),
				slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *OutboxWorker) processOnce(ctx context.Context) error {
	records, err := w.outbox.ListPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	published := 0
	failed := 0
	for _, record := range records {
		if err := w.publisher.Publish(ctx, record.Envelope); err != nil {
			failed++
			w.logger.WarnContext(ctx, "outbox publish failed, will retry",
				slog.String("operation", "publish_event"),
				slog.String("outcome", "failure"),
				slog.String("record_id", record.RecordID),
				slog.String("event_type", record.Envelope.EventType),
				slog.String("error", err.Error()))
			continue
		}
		published++
		if err := w.outbox.MarkSent(ctx, record.RecordID, time.Now().UTC()); err != nil {
			w.logger.ErrorContext(ctx, "outbox mark sent failed",
				slog.String("record_id", record.RecordID),
				slog.String("error", err.Error()))
		}
	}
	if len(records) > 0 {
		w.logger.InfoContext(ctx, "outbox batch processed",
			slog.String("operation", "outbox_process_once"),
			slog.String("outcome", "success"),
			slog.Int("batch_size", len(records)),
			slog.Int("published_count", published),
			slog.Int("failed_count", failed))
	}
	return nil
}
