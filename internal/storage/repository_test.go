package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"grana/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *Repository, email string) core.User {
	t.Helper()
	u := core.User{ID: uuid.NewString(), Name: "Test", Email: email}
	if err := repo.CreateUser(context.Background(), u, "hash", time.Now()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func testEntry(userID string, kind core.Kind, title string, cents int64, at time.Time) core.Entry {
	return core.Entry{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          kind,
		Title:         title,
		AmountInCents: cents,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

func TestEntryLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	now := time.Now()
	desc := "monthly"
	e := testEntry(user.ID, core.KindExpense, "Rent", 150000, now)
	e.Description = &desc
	if err := repo.InsertEntry(ctx, e); err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	got, err := repo.GetEntry(ctx, core.KindExpense, user.ID, e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Title != "Rent" || got.AmountInCents != 150000 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Description == nil || *got.Description != "monthly" {
		t.Fatalf("description lost: %+v", got.Description)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("created_at drifted: %v != %v", got.CreatedAt, now)
	}

	got.Title = "Rent (updated)"
	got.AmountInCents = 160000
	got.UpdatedAt = now.Add(time.Minute)
	updated, err := repo.UpdateEntry(ctx, got)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if updated.Title != "Rent (updated)" || updated.AmountInCents != 160000 {
		t.Fatalf("update not applied: %+v", updated)
	}

	deleted, err := repo.DeleteOwned(ctx, core.KindExpense, user.ID, []string{e.ID})
	if err != nil {
		t.Fatalf("DeleteOwned: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d", deleted)
	}
	if _, err := repo.GetEntry(ctx, core.KindExpense, user.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListEntriesNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	base := time.Now()
	for i, title := range []string{"first", "second", "third"} {
		e := testEntry(user.ID, core.KindIncome, title, 100, base.Add(time.Duration(i)*time.Second))
		if err := repo.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	entries, err := repo.ListEntries(ctx, core.KindIncome, user.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].Title != "third" || entries[2].Title != "first" {
		t.Fatalf("not newest first: %s, %s, %s", entries[0].Title, entries[1].Title, entries[2].Title)
	}
}

func TestOwnershipScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	e := testEntry(alice.ID, core.KindExpense, "Rent", 150000, time.Now())
	if err := repo.InsertEntry(ctx, e); err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	if _, err := repo.GetEntry(ctx, core.KindExpense, bob.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's row must look missing, got %v", err)
	}

	entries, err := repo.ListEntries(ctx, core.KindExpense, bob.ID)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("bob sees %d of alice's rows", len(entries))
	}

	upd := e
	upd.UserID = bob.ID
	upd.Title = "hijacked"
	if _, err := repo.UpdateEntry(ctx, upd); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user update must fail with ErrNotFound, got %v", err)
	}
}

func TestDeleteOwnedAllOrNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	mine := testEntry(alice.ID, core.KindExpense, "mine", 100, time.Now())
	theirs := testEntry(bob.ID, core.KindExpense, "theirs", 100, time.Now())
	for _, e := range []core.Entry{mine, theirs} {
		if err := repo.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	_, err := repo.DeleteOwned(ctx, core.KindExpense, alice.ID, []string{mine.ID, theirs.ID})
	if !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("expected ErrOwnershipMismatch, got %v", err)
	}

	// Nothing may be deleted when the batch is rejected.
	if _, err := repo.GetEntry(ctx, core.KindExpense, alice.ID, mine.ID); err != nil {
		t.Fatalf("alice's row must survive a rejected batch: %v", err)
	}

	_, err = repo.DeleteOwned(ctx, core.KindExpense, alice.ID, []string{mine.ID, uuid.NewString()})
	if !errors.Is(err, ErrOwnershipMismatch) {
		t.Fatalf("missing ids must reject the batch, got %v", err)
	}

	deleted, err := repo.DeleteOwned(ctx, core.KindExpense, alice.ID, nil)
	if err != nil || deleted != 0 {
		t.Fatalf("empty batch: deleted=%d err=%v", deleted, err)
	}
}

func TestListLedger(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	now := time.Now()
	entries := []core.Entry{
		testEntry(user.ID, core.KindIncome, "salary", 500000, now),
		testEntry(user.ID, core.KindExpense, "rent", 150000, now.Add(time.Second)),
		testEntry(user.ID, core.KindInvestment, "etf", 200000, now.Add(2*time.Second)),
		testEntry(user.ID, core.KindEssentialExpense, "template", 100, now),
	}
	for _, e := range entries {
		if err := repo.InsertEntry(ctx, e); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	ledger, err := repo.ListLedger(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListLedger: %v", err)
	}
	if len(ledger) != 3 {
		t.Fatalf("ledger len = %d, templates must be excluded", len(ledger))
	}
	if ledger[0].Kind != core.KindInvestment {
		t.Fatalf("not newest first: %+v", ledger[0])
	}
}

func TestUsersAndSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := core.User{ID: uuid.NewString(), Name: "Alice", Email: "alice@example.com"}
	if err := repo.CreateUser(ctx, u, "bcrypt-hash", time.Now()); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dup := core.User{ID: uuid.NewString(), Name: "Other", Email: "alice@example.com"}
	if err := repo.CreateUser(ctx, dup, "x", time.Now()); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	got, hash, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID || hash != "bcrypt-hash" {
		t.Fatalf("user round-trip mismatch: %+v hash=%q", got, hash)
	}

	if _, _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	now := time.Now()
	s := Session{ID: uuid.NewString(), UserID: u.ID, ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	stored, err := repo.GetSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.UserID != u.ID || !stored.ExpiresAt.Equal(s.ExpiresAt) {
		t.Fatalf("session round-trip mismatch: %+v", stored)
	}

	if err := repo.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSession(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
	if err := repo.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("logout must be idempotent: %v", err)
	}
}

func TestAuditTrail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := newTestUser(t, repo, "a@example.com")

	ev := AuditEvent{
		UserID:     user.ID,
		EntryID:    uuid.NewString(),
		Kind:       string(core.KindExpense),
		Op:         "create",
		OccurredAt: time.Now(),
	}
	if err := repo.InsertAuditEvent(ctx, ev); err != nil {
		t.Fatalf("InsertAuditEvent: %v", err)
	}

	n, err := repo.CountAuditEvents(ctx, user.ID)
	if err != nil {
		t.Fatalf("CountAuditEvents: %v", err)
	}
	if n != 1 {
		t.Fatalf("audit count = %d", n)
	}
}
