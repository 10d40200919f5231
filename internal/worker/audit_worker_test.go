package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"grana/internal/core"
	"grana/internal/events"
	"grana/internal/log"
	"grana/internal/storage"
)

func TestHandleLedgerEvent(t *testing.T) {
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	w := NewAuditWorker(repo, nil, log.New(log.DefaultConfig()))
	ctx := context.Background()

	userID := uuid.NewString()
	ev := &events.LedgerEvent{
		Kind:    core.KindExpense,
		Op:      events.OpCreate,
		UserID:  userID,
		EntryID: uuid.NewString(),
		At:      time.Now(),
	}
	if err := w.HandleLedgerEvent(ctx, ev); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	n, err := repo.CountAuditEvents(ctx, userID)
	if err != nil {
		t.Fatalf("CountAuditEvents: %v", err)
	}
	if n != 1 {
		t.Fatalf("audit count = %d", n)
	}

	// Malformed events are dropped, not retried forever.
	if err := w.HandleLedgerEvent(ctx, &events.LedgerEvent{}); err != nil {
		t.Fatalf("malformed event must be dropped cleanly: %v", err)
	}
	n, _ = repo.CountAuditEvents(ctx, "")
	if n != 0 {
		t.Fatalf("malformed event was recorded: %d", n)
	}
}
