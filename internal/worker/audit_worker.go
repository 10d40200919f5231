// Package worker turns ledger events into audit rows. It runs as its own
// process so bursts of mutations never slow the API down.
package worker

import (
	"context"
	"fmt"

	"grana/internal/events"
	"grana/internal/log"
	"grana/internal/storage"
)

// AuditStore is the subset of the repository the worker writes to.
type AuditStore interface {
	InsertAuditEvent(ctx context.Context, ev storage.AuditEvent) error
}

// Consumer delivers ledger events until the context is canceled.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(*events.LedgerEvent) error) error
}

type AuditWorker struct {
	store    AuditStore
	consumer Consumer
	logger   *log.Logger
}

func NewAuditWorker(store AuditStore, consumer Consumer, logger *log.Logger) *AuditWorker {
	return &AuditWorker{
		store:    store,
		consumer: consumer,
		logger:   logger.WithComponent("audit-worker"),
	}
}

// Run consumes events until the context is canceled. Failed inserts are
// returned to the broker for redelivery.
func (w *AuditWorker) Run(ctx context.Context) error {
	return w.consumer.ConsumeLedgerEvents(ctx, func(ev *events.LedgerEvent) error {
		return w.HandleLedgerEvent(ctx, ev)
	})
}

// HandleLedgerEvent records one mutation in the audit trail.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, ev *events.LedgerEvent) error {
	if ev.UserID == "" || ev.EntryID == "" {
		w.logger.WarnContext(ctx, "Dropping malformed event", "event", ev)
		return nil
	}

	err := w.store.InsertAuditEvent(ctx, storage.AuditEvent{
		UserID:     ev.UserID,
		EntryID:    ev.EntryID,
		Kind:       string(ev.Kind),
		Op:         string(ev.Op),
		OccurredAt: ev.At,
	})
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	w.logger.DebugContext(ctx, "Audit event recorded",
		"kind", ev.Kind, "op", ev.Op, "entry_id", ev.EntryID)
	return nil
}
