// Package session holds the console's single live login: the upstream
// bearer credential and the user it belongs to.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/msomdec/recipe-console/internal/domain"
)

// Store holds at most one (credential, user) pair. The zero state is
// "logged out"; construction never has side effects. An optional
// repository persists the pair across restarts.
type Store struct {
	mu      sync.RWMutex
	current *domain.Session
	repo    domain.SessionRepository
}

// New creates an empty Store. repo may be nil for a purely in-memory
// session.
func New(repo domain.SessionRepository) *Store {
	return &Store{repo: repo}
}

// Restore loads a previously persisted session, if any. Call once at
// startup; a missing saved session is not an error.
func (s *Store) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	sess, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	slog.Info("session restored", "user", sess.User.Username)
	return nil
}

// Login installs the pair. A previous session, if any, is replaced.
func (s *Store) Login(ctx context.Context, sess *domain.Session) error {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(ctx, sess); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	return nil
}

// Logout clears the session unconditionally. Logging out with no session
// installed is a no-op, not an error.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Delete(ctx); err != nil {
			return fmt.Errorf("delete persisted session: %w", err)
		}
	}
	return nil
}

// Current returns the live session, or nil when logged out. The returned
// value is a copy; callers cannot mutate the installed session.
func (s *Store) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// Token returns the bearer credential, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Authenticated reports whether a credential is installed. The route guard
// consults this; no upstream round trip is made.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Reset clears the in-memory session without touching persistence.
// Test isolation hook.
func (s *Store) Reset() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
