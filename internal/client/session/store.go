// Package session holds the client's authentication state and keeps it in
// step with a durable backend shared by every process using the same profile.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/SkillMap/internal/models"
	"github.com/atinyakov/SkillMap/internal/validation"
)

// API is the subset of the backend the session store talks to.
type API interface {
	Login(ctx context.Context, username, password string) (models.Grant, error)
	Signup(ctx context.Context, username, password string) error
}

// Store is the source of truth for "logged in". It is safe for concurrent use.
type Store struct {
	backend Backend
	api     API
	log     *zap.Logger
	now     func() time.Time

	// mu guards cur and every backend access, so a reconcile can never
	// interleave with a login's save.
	mu  sync.RWMutex
	cur models.Session

	hookMu sync.Mutex
	hooks  []func()
}

// New creates a store. Call Load to pick up a persisted session.
func New(backend Backend, api API, log *zap.Logger) *Store {
	return &Store{
		backend: backend,
		api:     api,
		log:     log,
		now:     time.Now,
	}
}

// Load adopts the persisted session. A session already past its expiry is
// removed from the backend instead.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if persisted.Active() && persisted.Expired(s.now()) {
		s.log.Info("discarding expired session", zap.String("username", persisted.Username))
		if err := s.backend.Clear(ctx); err != nil {
			return fmt.Errorf("clear expired session: %w", err)
		}
		persisted = models.Session{}
	}
	s.cur = persisted
	return nil
}

// Login authenticates and persists the new session. The session is left
// untouched on any failure. Replacing an active session fires the logout
// hooks so state belonging to the previous user is dropped.
func (s *Store) Login(ctx context.Context, username, password string) error {
	creds, err := validation.Login(username, password)
	if err != nil {
		return err
	}

	grant, err := s.api.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return err
	}

	next := models.Session{
		Token:     grant.Token,
		Username:  creds.Username,
		ExpiresAt: expiry(s.now(), grant),
	}

	s.mu.Lock()
	if err := s.backend.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	prev := s.cur
	s.cur = next
	s.mu.Unlock()

	s.log.Info("logged in", zap.String("username", next.Username))
	if prev.Active() && prev.Token != next.Token {
		s.fire("replaced by new login")
	}
	return nil
}

// Signup registers an account. It does not log in.
func (s *Store) Signup(ctx context.Context, username, password string) error {
	reg, err := validation.Signup(username, password)
	if err != nil {
		return err
	}
	return s.api.Signup(ctx, reg.Username, reg.Password)
}

// Logout clears the session in memory and in the backend and fires the
// logout hooks. The in-memory session is cleared even if the backend fails.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.cur = models.Session{}
	err := s.backend.Clear(ctx)
	s.mu.Unlock()

	s.fire("logout")
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Invalidate ends the session because the server rejected token. It is a
// no-op when token is no longer the current one, so a late rejection of a
// previous session cannot log out a newer one.
func (s *Store) Invalidate(token, reason string) {
	s.mu.Lock()
	if token == "" || s.cur.Token != token {
		s.mu.Unlock()
		return
	}
	s.cur = models.Session{}
	if err := s.backend.Clear(context.Background()); err != nil {
		s.log.Warn("failed to clear rejected session", zap.Error(err))
	}
	s.mu.Unlock()

	s.fire(reason)
}

// IsAuthenticated reports whether a token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Active()
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// Username returns the logged-in username, or "".
func (s *Store) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Username
}

// Current returns a snapshot of the session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// OnLogout registers fn to run, outside the store's lock, every time the
// session ends: explicit logout, server rejection, replacement by another
// login, or an external change observed by Watch.
func (s *Store) OnLogout(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Watch follows external changes to the persisted session until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	return s.backend.Watch(ctx, func() { s.reconcile(ctx) })
}

// reconcile treats any external token change as an implicit logout: the
// hooks fire and the persisted state is adopted.
func (s *Store) reconcile(ctx context.Context) {
	s.mu.Lock()
	persisted, err := s.backend.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("failed to reload session", zap.Error(err))
		return
	}
	if persisted.Expired(s.now()) {
		persisted = models.Session{}
	}
	if persisted.Token == s.cur.Token {
		s.mu.Unlock()
		return
	}
	prev := s.cur
	s.cur = persisted
	s.mu.Unlock()

	s.log.Info("session changed externally",
		zap.String("previous", prev.Username),
		zap.String("current", persisted.Username),
	)
	s.fire("external change")
}

func (s *Store) fire(reason string) {
	s.hookMu.Lock()
	hooks := append([]func(){}, s.hooks...)
	s.hookMu.Unlock()

	s.log.Info("logout cascade", zap.String("reason", reason), zap.Int("hooks", len(hooks)))
	for _, fn := range hooks {
		fn()
	}
}

// expiry prefers the server-declared lifetime and falls back to the exp
// claim of a JWT token. The signature is not checked: the value only
// decides when to stop presenting the token.
func expiry(now time.Time, g models.Grant) time.Time {
	if g.ExpiresIn > 0 {
		return now.Add(g.ExpiresIn)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(g.Token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
