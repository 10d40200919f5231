// Package auth issues and resolves login sessions. Access tokens are HS256
// JWTs bound to a server-side session row, so a token dies with its session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"grana/internal/core"
	"grana/internal/log"
	"grana/internal/storage"
)

type contextKey struct{}

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the authenticated user, or nil when the request carried
// no valid credentials.
func UserFrom(ctx context.Context) *core.User {
	u, _ := ctx.Value(contextKey{}).(*core.User)
	return u
}

// Store is the subset of the repository the session layer needs.
type Store interface {
	CreateUser(ctx context.Context, u core.User, passwordHash string, now time.Time) error
	GetUserByEmail(ctx context.Context, email string) (core.User, string, error)
	GetUser(ctx context.Context, id string) (core.User, error)
	CreateSession(ctx context.Context, s storage.Session) error
	GetSession(ctx context.Context, id string) (storage.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Credentials is the issued token together with the user it belongs to.
type Credentials struct {
	Token     string
	ExpiresAt time.Time
	User      core.User
}

type Sessions struct {
	store  Store
	secret []byte
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
}

func NewSessions(store Store, secret []byte, ttl time.Duration, logger *log.Logger) *Sessions {
	return &Sessions{
		store:  store,
		secret: secret,
		ttl:    ttl,
		logger: logger.WithComponent("auth"),
		now:    time.Now,
	}
}

// Signup registers a new user and logs them in.
func (s *Sessions) Signup(ctx context.Context, name, email, password string) (*Credentials, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, core.Validationf("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, core.Validationf("invalid email address")
	}
	if len(password) < 8 {
		return nil, core.Validationf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, core.StoreFailure(fmt.Errorf("hash password: %w", err))
	}

	u := core.User{ID: uuid.NewString(), Name: name, Email: email}
	if err := s.store.CreateUser(ctx, u, string(hash), s.now()); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, core.Validationf("email already registered")
		}
		return nil, core.StoreFailure(err)
	}

	s.logger.InfoContext(ctx, "User registered", "user_id", u.ID)
	return s.Issue(ctx, u)
}

// Login checks the password and issues fresh credentials. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Sessions) Login(ctx context.Context, email, password string) (*Credentials, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, hash, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, core.Validationf("invalid email or password")
	}
	if err != nil {
		return nil, core.StoreFailure(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, core.Validationf("invalid email or password")
	}

	s.logger.InfoContext(ctx, "User logged in", "user_id", u.ID)
	return s.Issue(ctx, u)
}

// Issue creates a session row and signs an access token bound to it.
func (s *Sessions) Issue(ctx context.Context, u core.User) (*Credentials, error) {
	now := s.now()
	session := storage.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, core.StoreFailure(err)
	}

	claims := jwt.MapClaims{
		"sub": u.ID,
		"sid": session.ID,
		"iat": now.Unix(),
		"exp": session.ExpiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, core.StoreFailure(fmt.Errorf("sign token: %w", err))
	}

	return &Credentials{Token: token, ExpiresAt: session.ExpiresAt, User: u}, nil
}

// Resolve maps a bearer token to its user. It never returns an error: any
// invalid, expired or revoked token resolves to nil, and infrastructure
// failures are logged and also resolve to nil.
func (s *Sessions) Resolve(ctx context.Context, token string) *core.User {
	if token == "" {
		return nil
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	userID, _ := claims["sub"].(string)
	sessionID, _ := claims["sid"].(string)
	if userID == "" || sessionID == "" {
		return nil
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Session lookup failed", "error", err)
		return nil
	}
	if session.UserID != userID || s.now().After(session.ExpiresAt) {
		return nil
	}

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.ErrorContext(ctx, "User lookup failed", "error", err)
		}
		return nil
	}
	return &u
}

// Revoke deletes the session behind a token so it stops resolving.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sessionID, _ := claims["sid"].(string)
	if sessionID == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return core.StoreFailure(err)
	}
	return nil
}
