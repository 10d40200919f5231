// Package ledger implements the operations behind every entry kind. One
// service handles all six kinds; the kind descriptor decides which table a
// call touches and which cached views a mutation invalidates.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grana/internal/auth"
	"grana/internal/cache"
	"grana/internal/core"
	"grana/internal/events"
	"grana/internal/log"
	"grana/internal/storage"
)

// Store is the subset of the repository the service needs.
type Store interface {
	InsertEntry(ctx context.Context, e core.Entry) error
	ListEntries(ctx context.Context, kind core.Kind, userID string) ([]core.Entry, error)
	GetEntry(ctx context.Context, kind core.Kind, userID, id string) (core.Entry, error)
	UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
	DeleteOwned(ctx context.Context, kind core.Kind, userID string, ids []string) (int64, error)
	ListLedger(ctx context.Context, userID string) ([]core.Entry, error)
}

// Publisher emits mutation events for downstream consumers. Publishing is
// best effort: a broker outage never fails the request.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *events.LedgerEvent) error
}

// CreateInput carries the raw request fields for a new entry. Amount is the
// decimal string as typed by the user; Date and Time together backdate a
// non-template entry, one without the other is ignored.
type CreateInput struct {
	Title       string
	Amount      string
	Description *string
	Date        string
	Time        string
}

// UpdateInput carries the replacement fields for a template.
type UpdateInput struct {
	Title       string
	Amount      string
	Description *string
}

type Service struct {
	store     Store
	lists     *cache.LRUCache[[]core.Entry]
	summaries *cache.LRUCache[core.Summary]
	series    *cache.LRUCache[[]core.DayBucket]
	publisher Publisher
	logger    *log.Logger
	now       func() time.Time
}

type Options struct {
	CacheMaxEntries int
	CacheTTL        time.Duration
	Publisher       Publisher
	Logger          *log.Logger
}

func NewService(store Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:     store,
		lists:     cache.NewLRUCache[[]core.Entry](opts.CacheMaxEntries, opts.CacheTTL),
		summaries: cache.NewLRUCache[core.Summary](opts.CacheMaxEntries, opts.CacheTTL),
		series:    cache.NewLRUCache[[]core.DayBucket](opts.CacheMaxEntries, opts.CacheTTL),
		publisher: opts.Publisher,
		logger:    logger.WithComponent("ledger"),
		now:       time.Now,
	}
}

// Caches exposes the service's caches for lifecycle management.
func (s *Service) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.lists, s.summaries, s.series}
}

func (s *Service) requireUser(ctx context.Context) (*core.User, error) {
	u := auth.UserFrom(ctx)
	if u == nil {
		return nil, core.Unauthenticated()
	}
	return u, nil
}

func listKey(kind core.Kind, userID string) string {
	return fmt.Sprintf("%s:%s:%s", kind.Path(), userID, kind)
}

// invalidate drops every cached view a mutation on this kind can affect:
// both listings under the kind's path and, for ledger kinds, the user's
// dashboard months.
func (s *Service) invalidate(kind core.Kind, userID string) {
	s.lists.DeletePrefix(fmt.Sprintf("%s:%s", kind.Path(), userID))
	if !kind.IsTemplate() {
		s.summaries.DeletePrefix(fmt.Sprintf("/dashboard:%s", userID))
		s.series.DeletePrefix(fmt.Sprintf("/dashboard:%s", userID))
	}
}

func (s *Service) publish(ctx context.Context, kind core.Kind, op events.Op, userID, entryID string) {
	if s.publisher == nil {
		return
	}
	ev := events.NewLedgerEvent(kind, op, userID, entryID)
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Event publish failed",
			"kind", kind, "op", op, "entry_id", entryID, "error", err)
	}
}

// parseCreatedAt resolves the entry timestamp. Templates always get the
// current time; other kinds are backdated only when both a date and a time
// are supplied. A date or time on its own is ignored.
func (s *Service) parseCreatedAt(kind core.Kind, date, clock string) (time.Time, error) {
	now := s.now()
	if kind.IsTemplate() || date == "" || clock == "" {
		return now, nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return time.Time{}, core.Validationf("invalid date %q, expected YYYY-MM-DD", date)
	}
	at, err := time.ParseInLocation("15:04", clock, time.Local)
	if err != nil {
		return time.Time{}, core.Validationf("invalid time %q, expected HH:MM", clock)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, time.Local), nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return core.NotFoundf("entry not found")
	case errors.Is(err, storage.ErrOwnershipMismatch):
		return core.OwnershipMismatchf("one or more entries do not belong to you")
	default:
		return core.StoreFailure(err)
	}
}

// Create validates the input and stores a new entry of the given kind.
func (s *Service) Create(ctx context.Context, kind core.Kind, in CreateInput) (core.Entry, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	if !kind.Valid() {
		return core.Entry{}, core.ValidationErr(core.ErrUnknownKind)
	}

	cents, err := core.ParseAmountToCents(in.Amount)
	if err != nil {
		return core.Entry{}, core.ValidationErr(err)
	}
	createdAt, err := s.parseCreatedAt(kind, in.Date, in.Time)
	if err != nil {
		return core.Entry{}, err
	}

	e := core.Entry{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Kind:          kind,
		Title:         in.Title,
		Description:   in.Description,
		AmountInCents: cents,
		CreatedAt:     createdAt,
		UpdatedAt:     s.now(),
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, core.ValidationErr(err)
	}

	if err := s.store.InsertEntry(ctx, e); err != nil {
		return core.Entry{}, mapStoreErr(err)
	}

	s.invalidate(kind, user.ID)
	s.publish(ctx, kind, events.OpCreate, user.ID, e.ID)
	s.logger.InfoContext(ctx, "Entry created",
		"kind", kind, "entry_id", e.ID, "amount_cents", e.AmountInCents)
	return e, nil
}

// List returns the user's entries of one kind, newest first. Results are
// cached per user until the next mutation under the same path.
func (s *Service) List(ctx context.Context, kind core.Kind) ([]core.Entry, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, core.ValidationErr(core.ErrUnknownKind)
	}

	key := listKey(kind, user.ID)
	if entries, ok := s.lists.Get(key); ok {
		return entries, nil
	}

	entries, err := s.store.ListEntries(ctx, kind, user.ID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	s.lists.Set(key, entries)
	return entries, nil
}

// DeleteBatch removes a set of owned entries. The batch is all or nothing:
// if any id is missing or owned by someone else, nothing is deleted.
func (s *Service) DeleteBatch(ctx context.Context, kind core.Kind, ids []string) (int64, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return 0, err
	}
	if !kind.Valid() {
		return 0, core.ValidationErr(core.ErrUnknownKind)
	}
	if len(ids) == 0 {
		return 0, core.Validationf("no ids to delete")
	}

	deleted, err := s.store.DeleteOwned(ctx, kind, user.ID, ids)
	if err != nil {
		return 0, mapStoreErr(err)
	}

	s.invalidate(kind, user.ID)
	for _, id := range ids {
		s.publish(ctx, kind, events.OpDelete, user.ID, id)
	}
	s.logger.InfoContext(ctx, "Entries deleted", "kind", kind, "count", deleted)
	return deleted, nil
}

// Update replaces the mutable fields of a template. Only template kinds can
// be edited; recorded entries are immutable apart from deletion.
func (s *Service) Update(ctx context.Context, kind core.Kind, id string, in UpdateInput) (core.Entry, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	if !kind.Valid() {
		return core.Entry{}, core.ValidationErr(core.ErrUnknownKind)
	}
	if !kind.IsTemplate() {
		return core.Entry{}, core.Validationf("only essential templates can be updated")
	}

	cents, err := core.ParseAmountToCents(in.Amount)
	if err != nil {
		return core.Entry{}, core.ValidationErr(err)
	}

	e := core.Entry{
		ID:            id,
		UserID:        user.ID,
		Kind:          kind,
		Title:         in.Title,
		Description:   in.Description,
		AmountInCents: cents,
		UpdatedAt:     s.now(),
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, core.ValidationErr(err)
	}

	updated, err := s.store.UpdateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, mapStoreErr(err)
	}

	s.invalidate(kind, user.ID)
	s.publish(ctx, kind, events.OpUpdate, user.ID, id)
	s.logger.InfoContext(ctx, "Template updated", "kind", kind, "entry_id", id)
	return updated, nil
}

// Register stamps a template into its ledger kind: a new entry with the
// template's title, description and amount, dated now. The template itself
// is untouched.
func (s *Service) Register(ctx context.Context, kind core.Kind, id string) (core.Entry, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return core.Entry{}, err
	}
	if !kind.Valid() {
		return core.Entry{}, core.ValidationErr(core.ErrUnknownKind)
	}
	target := kind.RegisterTarget()
	if target == "" {
		return core.Entry{}, core.Validationf("only essential templates can be registered")
	}

	tmpl, err := s.store.GetEntry(ctx, kind, user.ID, id)
	if err != nil {
		return core.Entry{}, mapStoreErr(err)
	}

	now := s.now()
	e := core.Entry{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Kind:          target,
		Title:         tmpl.Title,
		Description:   tmpl.Description,
		AmountInCents: tmpl.AmountInCents,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.InsertEntry(ctx, e); err != nil {
		return core.Entry{}, mapStoreErr(err)
	}

	s.invalidate(target, user.ID)
	s.publish(ctx, target, events.OpRegister, user.ID, e.ID)
	s.logger.InfoContext(ctx, "Template registered",
		"template_id", id, "entry_id", e.ID, "kind", target)
	return e, nil
}

// Summary aggregates the user's full ledger into all-time totals. The result
// is cached per user until a ledger mutation invalidates it.
func (s *Service) Summary(ctx context.Context) (core.Summary, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return core.Summary{}, err
	}

	key := fmt.Sprintf("/dashboard:%s:summary", user.ID)
	if sum, ok := s.summaries.Get(key); ok {
		return sum, nil
	}

	entries, err := s.store.ListLedger(ctx, user.ID)
	if err != nil {
		return core.Summary{}, mapStoreErr(err)
	}

	sum := core.Summarize(entries)
	s.summaries.Set(key, sum)
	return sum, nil
}

// DailySeriesFor builds the dense per-day series for one month, cached per
// user and month.
func (s *Service) DailySeriesFor(ctx context.Context, year int, month time.Month) ([]core.DayBucket, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if month < time.January || month > time.December {
		return nil, core.Validationf("invalid month %d", month)
	}

	key := fmt.Sprintf("/dashboard:%s:series:%04d-%02d", user.ID, year, int(month))
	if buckets, ok := s.series.Get(key); ok {
		return buckets, nil
	}

	entries, err := s.store.ListLedger(ctx, user.ID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	buckets := core.DailySeries(entries, year, month)
	s.series.Set(key, buckets)
	return buckets, nil
}
