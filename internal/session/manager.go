// Package session owns the credential lifecycle and the authorization facts
// derived from it.
//
// UserID and IsAdmin are never set directly. They are recomputed from the token
// through the claims decoder on every restore and sign-in, so they can not drift
// from the credential they came from.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pscheid92/foodcart/internal/domain"
	"github.com/pscheid92/foodcart/internal/watch"
)

// Persister accepts the latest desired state of a key without blocking.
type Persister interface {
	Put(key, value string)
	Delete(key string)
}

// Manager holds the single process-wide session.
type Manager struct {
	store  domain.KeyValueStore
	writer Persister
	decode domain.ClaimsDecoder
	hub    *watch.Hub[domain.Session]

	// ops serializes Restore and the mutations so queued writes follow call order.
	ops sync.Mutex

	mu      sync.RWMutex
	current domain.Session
}

// NewManager returns a manager in the loading state. Restore reads the token
// from store; sign-in and sign-out hand their writes to writer.
func NewManager(store domain.KeyValueStore, writer Persister, decode domain.ClaimsDecoder) *Manager {
	m := &Manager{
		store:   store,
		writer:  writer,
		decode:  decode,
		hub:     watch.NewHub[domain.Session](),
		current: domain.Session{IsLoading: true},
	}
	m.hub.Publish(m.current)
	return m
}

// Restore loads the persisted token. Read and decode failures degrade to the
// unauthenticated (or unauthorized) state; Restore itself never fails.
func (m *Manager) Restore(ctx context.Context) {
	m.ops.Lock()
	defer m.ops.Unlock()

	token, ok, err := m.store.Get(ctx, domain.TokenKey)
	if err != nil {
		slog.Error("Failed to read stored token", "key", domain.TokenKey, "error", err)
		token, ok = "", false
	}

	next := domain.Session{}
	if ok && token != "" {
		next = m.derive(token)
	}

	m.set(next)
	slog.Info("Session restored", "authenticated", next.IsAuthenticated(), "admin", next.IsAdmin)
}

// SignIn accepts token, queues it for storage and recomputes the derived
// fields. A token the decoder can not read is still accepted; it just carries
// no authorization.
func (m *Manager) SignIn(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrEmptyToken
	}

	m.ops.Lock()
	defer m.ops.Unlock()

	next := m.derive(token)
	m.set(next)

	m.writer.Put(domain.TokenKey, token)
	if next.UserID != "" {
		m.writer.Put(domain.UserIDKey, next.UserID)
	} else {
		m.writer.Delete(domain.UserIDKey)
	}

	slog.InfoContext(ctx, "Signed in", "user_id", next.UserID, "admin", next.IsAdmin)
	return nil
}

// SignOut clears the persisted credential and resets every field.
func (m *Manager) SignOut(ctx context.Context) {
	m.ops.Lock()
	defer m.ops.Unlock()

	m.set(domain.Session{})

	m.writer.Delete(domain.TokenKey)
	m.writer.Delete(domain.UserIDKey)

	slog.InfoContext(ctx, "Signed out")
}

// Snapshot returns the current session, token included.
func (m *Manager) Snapshot() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe returns a subscription primed with the current session.
func (m *Manager) Subscribe() *watch.Subscription[domain.Session] {
	return m.hub.Subscribe()
}

// Loaded reports whether Restore has completed.
func (m *Manager) Loaded() bool {
	return !m.Snapshot().IsLoading
}

func (m *Manager) derive(token string) domain.Session {
	s := domain.Session{Token: token}

	result := m.decode(token)
	if result.Status != domain.ClaimsDecoded {
		slog.Warn("Credential claims could not be decoded")
		return s
	}

	s.UserID = result.Claims.Subject
	s.IsAdmin = result.Claims.HasRole(domain.AdminRole)
	return s
}

func (m *Manager) set(next domain.Session) {
	m.mu.Lock()
	m.current = next
	m.mu.Unlock()

	m.hub.Publish(next)
}
