package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"grana/internal/core"
	"grana/internal/log"
	"grana/internal/storage"
)

func newTestSessions(t *testing.T) (*Sessions, *storage.Repository) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	logger := log.New(log.DefaultConfig())
	return NewSessions(repo, []byte("0123456789abcdef0123456789abcdef"), time.Hour, logger), repo
}

func TestSignupAndLogin(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	creds, err := sessions.Signup(ctx, "Alice", "Alice@Example.com", "password123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if creds.Token == "" {
		t.Fatal("no token issued")
	}
	if creds.User.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", creds.User.Email)
	}

	if _, err := sessions.Signup(ctx, "Other", "alice@example.com", "password123"); core.KindOf(err) != core.ErrValidation {
		t.Fatalf("duplicate signup should be a validation error, got %v", err)
	}

	login, err := sessions.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != creds.User.ID {
		t.Fatal("login resolved a different user")
	}

	if _, err := sessions.Login(ctx, "alice@example.com", "wrong"); core.KindOf(err) != core.ErrValidation {
		t.Fatalf("wrong password should be a validation error, got %v", err)
	}
	if _, err := sessions.Login(ctx, "nobody@example.com", "password123"); core.KindOf(err) != core.ErrValidation {
		t.Fatalf("unknown email should look like a wrong password, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	cases := []struct {
		name, userName, email, password string
	}{
		{"empty name", "", "a@example.com", "password123"},
		{"bad email", "Alice", "not-an-email", "password123"},
		{"short password", "Alice", "a@example.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := sessions.Signup(ctx, tc.userName, tc.email, tc.password); core.KindOf(err) != core.ErrValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	creds, err := sessions.Signup(ctx, "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	u := sessions.Resolve(ctx, creds.Token)
	if u == nil || u.ID != creds.User.ID {
		t.Fatalf("Resolve = %+v", u)
	}

	if u := sessions.Resolve(ctx, ""); u != nil {
		t.Fatal("empty token must resolve to nil")
	}
	if u := sessions.Resolve(ctx, "garbage.token.here"); u != nil {
		t.Fatal("garbage token must resolve to nil")
	}

	if err := sessions.Revoke(ctx, creds.Token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if u := sessions.Resolve(ctx, creds.Token); u != nil {
		t.Fatal("revoked token must resolve to nil")
	}
}

func TestResolveExpiredSession(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	creds, err := sessions.Signup(ctx, "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	sessions.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if u := sessions.Resolve(ctx, creds.Token); u != nil {
		t.Fatal("expired session must resolve to nil")
	}
}

func TestMiddleware(t *testing.T) {
	sessions, _ := newTestSessions(t)
	ctx := context.Background()

	creds, err := sessions.Signup(ctx, "Alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	var seen *core.User
	handler := sessions.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.ID != creds.User.ID {
		t.Fatalf("middleware did not attach user: %+v", seen)
	}

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != nil {
		t.Fatal("anonymous request must carry no user")
	}

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != nil {
		t.Fatal("non-bearer scheme must carry no user")
	}
}
