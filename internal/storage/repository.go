package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"grana/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	ErrDuplicateEmail    = errors.New("email already registered")
)

// Session is a server-side login session. Access tokens are only honored
// while the session row exists and has not expired.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuditEvent is one row of the mutation trail written by the worker.
type AuditEvent struct {
	UserID     string
	EntryID    string
	Kind       string
	Op         string
	OccurredAt time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const entryColumns = "id, user_id, title, description, amount_in_cents, created_at, updated_at"

func scanEntry(row interface{ Scan(...any) error }, kind core.Kind) (core.Entry, error) {
	var (
		e           core.Entry
		description sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &description, &e.AmountInCents, &createdAt, &updatedAt)
	if err != nil {
		return core.Entry{}, err
	}
	if description.Valid {
		e.Description = &description.String
	}
	e.Kind = kind
	e.CreatedAt = time.Unix(0, createdAt)
	e.UpdatedAt = time.Unix(0, updatedAt)
	return e, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// InsertEntry stores a new entry in its kind's table.
func (r *Repository) InsertEntry(ctx context.Context, e core.Entry) error {
	if !e.Kind.Valid() {
		return core.ErrUnknownKind
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.Kind.Table(), entryColumns,
	)
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Title, nullable(e.Description), e.AmountInCents,
		e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", e.Kind, err)
	}
	return nil
}

// ListEntries returns all of a user's entries of one kind, newest first.
func (r *Repository) ListEntries(ctx context.Context, kind core.Kind, userID string) ([]core.Entry, error) {
	if !kind.Valid() {
		return nil, core.ErrUnknownKind
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE user_id = ? ORDER BY created_at DESC",
		entryColumns, kind.Table(),
	)
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	entries := []core.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return entries, nil
}

// GetEntry fetches one entry scoped to its owner. Rows belonging to other
// users are indistinguishable from missing rows.
func (r *Repository) GetEntry(ctx context.Context, kind core.Kind, userID, id string) (core.Entry, error) {
	if !kind.Valid() {
		return core.Entry{}, core.ErrUnknownKind
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE id = ? AND user_id = ?",
		entryColumns, kind.Table(),
	)
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id, userID), kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get %s: %w", kind, err)
	}
	return e, nil
}

// UpdateEntry overwrites the mutable fields of an owned entry and returns the
// stored row. Returns ErrNotFound when the row is missing or owned by someone
// else.
func (r *Repository) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if !e.Kind.Valid() {
		return core.Entry{}, core.ErrUnknownKind
	}
	query := fmt.Sprintf(
		"UPDATE %s SET title = ?, description = ?, amount_in_cents = ?, updated_at = ? WHERE id = ? AND user_id = ? RETURNING %s",
		e.Kind.Table(), entryColumns,
	)
	updated, err := scanEntry(r.db.QueryRowContext(ctx, query,
		e.Title, nullable(e.Description), e.AmountInCents, e.UpdatedAt.UnixNano(),
		e.ID, e.UserID,
	), e.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("update %s: %w", e.Kind, err)
	}
	return updated, nil
}

// DeleteOwned removes a batch of entries in a single transaction. The whole
// batch is rejected with ErrOwnershipMismatch unless every id exists and
// belongs to the user, so a partial delete can never happen.
func (r *Repository) DeleteOwned(ctx context.Context, kind core.Kind, userID string, ids []string) (int64, error) {
	if !kind.Valid() {
		return 0, core.ErrUnknownKind
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	var owned int64
	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE id IN (%s) AND user_id = ?",
		kind.Table(), placeholders,
	)
	if err := tx.QueryRowContext(ctx, countQuery, args...).Scan(&owned); err != nil {
		return 0, fmt.Errorf("count owned %s: %w", kind, err)
	}
	if owned != int64(len(ids)) {
		return 0, ErrOwnershipMismatch
	}

	deleteQuery := fmt.Sprintf(
		"DELETE FROM %s WHERE id IN (%s) AND user_id = ?",
		kind.Table(), placeholders,
	)
	res, err := tx.ExecContext(ctx, deleteQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", kind, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted %s: %w", kind, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete tx: %w", err)
	}
	return deleted, nil
}

// ListLedger returns a user's incomes, expenses and investments together,
// newest first, for dashboard aggregation.
func (r *Repository) ListLedger(ctx context.Context, userID string) ([]core.Entry, error) {
	parts := make([]string, 0, len(core.LedgerKinds()))
	args := make([]any, 0, len(core.LedgerKinds()))
	for _, kind := range core.LedgerKinds() {
		parts = append(parts, fmt.Sprintf(
			"SELECT '%s' AS kind, %s FROM %s WHERE user_id = ?",
			kind, entryColumns, kind.Table(),
		))
		args = append(args, userID)
	}
	query := strings.Join(parts, " UNION ALL ") + " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	entries := []core.Entry{}
	for rows.Next() {
		var (
			kind        string
			e           core.Entry
			description sql.NullString
			createdAt   int64
			updatedAt   int64
		)
		if err := rows.Scan(&kind, &e.ID, &e.UserID, &e.Title, &description, &e.AmountInCents, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if description.Valid {
			e.Description = &description.String
		}
		e.Kind = core.Kind(kind)
		e.CreatedAt = time.Unix(0, createdAt)
		e.UpdatedAt = time.Unix(0, updatedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return entries, nil
}

// CreateUser stores a new user. Returns ErrDuplicateEmail when the email is
// already taken.
func (r *Repository) CreateUser(ctx context.Context, u core.User, passwordHash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, passwordHash, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user and their password hash for login checks.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, string, error) {
	var (
		u    core.User
		hash string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("get user by email: %w", err)
	}
	return u, hash, nil
}

func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repository) CreateSession(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		s.ID, s.UserID, s.ExpiresAt.UnixNano(), s.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (Session, error) {
	var (
		s         Session
		expiresAt int64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?",
		id,
	).Scan(&s.ID, &s.UserID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	s.ExpiresAt = time.Unix(0, expiresAt)
	s.CreatedAt = time.Unix(0, createdAt)
	return s, nil
}

// DeleteSession revokes a login session. Missing rows are not an error so
// logout is idempotent.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// InsertAuditEvent appends one mutation record to the audit trail.
func (r *Repository) InsertAuditEvent(ctx context.Context, ev AuditEvent) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO audit_log (user_id, entry_id, kind, op, occurred_at, recorded_at) VALUES (?, ?, ?, ?, ?, ?)",
		ev.UserID, ev.EntryID, ev.Kind, ev.Op, ev.OccurredAt.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// CountAuditEvents reports how many audit rows a user has accumulated.
func (r *Repository) CountAuditEvents(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_log WHERE user_id = ?",
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}
