// Package session owns the current identity and its login/logout transitions.
//
// Every transition bumps a generation counter. Work started under one
// generation (migration, resync, a mutation awaiting the network) checks
// IsCurrent before applying its result, so results issued under a stale
// identity are dropped instead of merged.
package session

import (
	"context"
	"log/slog"
	"sync"

	"cartsync/internal/model"
	"cartsync/internal/store"
)

// Snapshot is an immutable view of the session at one generation.
type Snapshot struct {
	Session    model.Session
	Generation uint64

	// Context is cancelled when this generation ends. Anonymous snapshots
	// carry the manager's root context.
	Context context.Context
}

// Authenticated reports whether the snapshot carries a credential.
func (s Snapshot) Authenticated() bool {
	return s.Session.Authenticated()
}

// Manager is the session state machine. Safe for concurrent use; at most
// one transition runs at a time.
type Manager struct {
	mu     sync.Mutex
	local  *store.Local
	logger *slog.Logger
	root   context.Context

	current model.Session
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewManager restores the persisted session. root bounds every session context.
func NewManager(root context.Context, local *store.Local, logger *slog.Logger) *Manager {
	m := &Manager{
		local:  local,
		logger: logger,
		root:   root,
		gen:    1,
	}
	m.current = local.LoadSession(root)
	m.ctx, m.cancel = context.WithCancel(root)
	return m
}

// Current returns the session at the current generation.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsCurrent reports whether gen is still the live generation.
func (m *Manager) IsCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}

// Login moves Anonymous → Authenticated(credential).
func (m *Manager) Login(credential string) (Snapshot, error) {
	if credential == "" {
		return Snapshot{}, model.NewValidationError("credential", "required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Authenticated() {
		return Snapshot{}, model.NewValidationError("session", "already signed in; sign out first")
	}

	m.transitionLocked(model.Session{Mode: model.ModeAuthenticated, Credential: credential})
	m.logger.Info("session authenticated", slog.Uint64("generation", m.gen))
	return m.snapshotLocked(), nil
}

// Logout moves to Anonymous and cancels the authenticated session's context.
// It returns the snapshot that was ended.
func (m *Manager) Logout() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.snapshotLocked()
	m.transitionLocked(model.AnonymousSession())
	m.logger.Info("session signed out", slog.Uint64("generation", m.gen))
	return prev
}

// LogoutIf logs out only if gen is still current. Used for forced logout on
// Unauthorized so a stale failure cannot end a newer session.
func (m *Manager) LogoutIf(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || !m.current.Authenticated() {
		return false
	}
	m.transitionLocked(model.AnonymousSession())
	m.logger.Warn("session revoked by backend", slog.Uint64("generation", m.gen))
	return true
}

// Close cancels the current session context.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancel()
}

func (m *Manager) transitionLocked(next model.Session) {
	m.cancel()
	m.current = next
	m.gen++
	m.ctx, m.cancel = context.WithCancel(m.root)
	m.local.SaveSession(m.root, next)
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{Session: m.current, Generation: m.gen, Context: m.ctx}
}
