package worker

import (
	"context"
	"fmt"
	"log/slog"

	"outlay/internal/amqp"
	"outlay/internal/storage"
)

const defaultBatchSize = 50

// AuditWorker persists expense events from AMQP into the expense_events
// table so mutations stay reviewable after the fact.
type AuditWorker struct {
	storage   *storage.SQLiteRepository
	batchSize int
}

// NewAuditWorker creates a worker. batchSize caps how many recent events
// the periodic stats pass inspects.
func NewAuditWorker(storage *storage.SQLiteRepository, batchSize int) *AuditWorker {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &AuditWorker{storage: storage, batchSize: batchSize}
}

// HandleEventMessage records a single expense event. Returning an error makes
// the consumer requeue the delivery.
func (w *AuditWorker) HandleEventMessage(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	slog.InfoContext(ctx, "Processing expense event",
		"expense_id", msg.ExpenseID,
		"user_id", msg.UserID,
		"action", msg.Action)

	if err := w.storage.RecordEvent(ctx, msg.ExpenseID, msg.UserID, msg.Action, msg.Timestamp); err != nil {
		return fmt.Errorf("record expense event: %w", err)
	}
	return nil
}

// ReportStats logs the size of the audit trail plus a per-action breakdown
// of the latest batch. Meant to run periodically so operators can tell
// whether events are flowing.
func (w *AuditWorker) ReportStats(ctx context.Context) error {
	count, err := w.storage.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("count expense events: %w", err)
	}

	recent, err := w.storage.ListRecentEvents(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list recent expense events: %w", err)
	}
	var created, updated, deleted int
	for _, e := range recent {
		switch e.Action {
		case amqp.ActionCreated:
			created++
		case amqp.ActionUpdated:
			updated++
		case amqp.ActionDeleted:
			deleted++
		}
	}

	slog.InfoContext(ctx, "Audit trail stats",
		"event_count", count,
		"recent_window", len(recent),
		"recent_created", created,
		"recent_updated", updated,
		"recent_deleted", deleted)
	return nil
}
