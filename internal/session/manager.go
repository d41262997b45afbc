package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/ids"
	"arts/api/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is a detected condition rather than a failure: the
	// inactivity window lapsed and the session must be re-established.
	ErrSessionExpired = errors.New("session expired")
)

// Entry pairs a principal with its last-activity timestamp. Entries are
// owned exclusively by the Manager; everything else reads copies.
type Entry struct {
	ID           string
	Principal    models.Principal
	LastActivity time.Time
}

// Persister mirrors entries into durable storage so sessions survive a
// process restart. Persistence is best effort; the in-memory map is the
// working copy.
type Persister interface {
	Save(ctx context.Context, entry Entry) error
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Load(ctx context.Context) ([]Entry, error)
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Entry

	timeout   time.Duration
	persister Persister
	log       zerolog.Logger

	// now is swappable for tests.
	now func() time.Time

	// onExpire runs after the sweep destroys a session.
	onExpire func(Entry)
}

func NewManager(timeout time.Duration, persister Persister, log zerolog.Logger) *Manager {
	return &Manager{
		sessions:  make(map[string]*Entry),
		timeout:   timeout,
		persister: persister,
		log:       log,
		now:       time.Now,
	}
}

// OnExpire registers a callback invoked for every session the sweep
// destroys. Must be set before the sweep starts.
func (m *Manager) OnExpire(fn func(Entry)) {
	m.onExpire = fn
}

func (m *Manager) Create(ctx context.Context, principal models.Principal) (Entry, error) {
	entry := Entry{
		ID:           ids.New(),
		Principal:    principal,
		LastActivity: m.now(),
	}

	m.mu.Lock()
	m.sessions[entry.ID] = &entry
	m.mu.Unlock()

	if m.persister != nil {
		if err := m.persister.Save(ctx, entry); err != nil {
			m.log.Warn().Err(err).Str("session_id", entry.ID).Msg("persist session failed")
		}
	}
	return entry, nil
}

// Touch records activity: lastActivity = now. Every qualifying interaction
// (any authenticated request) refreshes the window.
func (m *Manager) Touch(ctx context.Context, id string) error {
	now := m.now()

	m.mu.Lock()
	entry, ok := m.sessions[id]
	if ok {
		entry.LastActivity = now
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	if m.persister != nil {
		if err := m.persister.Touch(ctx, id, now); err != nil {
			m.log.Warn().Err(err).Str("session_id", id).Msg("persist activity failed")
		}
	}
	return nil
}

// Validate returns the entry if it exists and is still inside the
// inactivity window.
func (m *Manager) Validate(id string) (Entry, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return Entry{}, ErrSessionNotFound
	}
	if m.now().Sub(entry.LastActivity) >= m.timeout {
		return Entry{}, ErrSessionExpired
	}
	return *entry, nil
}

// Remaining reports how much of the inactivity window is left, floored at
// zero.
func (m *Manager) Remaining(id string) time.Duration {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return 0
	}
	remaining := m.timeout - m.now().Sub(entry.LastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (m *Manager) Destroy(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.persister != nil {
		if err := m.persister.Delete(ctx, id); err != nil {
			m.log.Warn().Err(err).Str("session_id", id).Msg("delete persisted session failed")
		}
	}
}

// Restore reloads persisted sessions at startup, discarding any whose
// recorded inactivity already exceeds the timeout.
func (m *Manager) Restore(ctx context.Context) error {
	if m.persister == nil {
		return nil
	}

	entries, err := m.persister.Load(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	restored := 0

	m.mu.Lock()
	for _, entry := range entries {
		if now.Sub(entry.LastActivity) >= m.timeout {
			continue
		}
		e := entry
		m.sessions[e.ID] = &e
		restored++
	}
	m.mu.Unlock()

	for _, entry := range entries {
		if now.Sub(entry.LastActivity) >= m.timeout {
			if err := m.persister.Delete(ctx, entry.ID); err != nil {
				m.log.Warn().Err(err).Str("session_id", entry.ID).Msg("drop stale session failed")
			}
		}
	}

	m.log.Info().Int("restored", restored).Int("discarded", len(entries)-restored).Msg("sessions restored")
	return nil
}

// Sweep destroys every session whose inactivity has reached the timeout
// and returns how many were removed. The scheduler runs this once a minute.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()

	m.mu.Lock()
	var expired []Entry
	for id, entry := range m.sessions {
		if now.Sub(entry.LastActivity) >= m.timeout {
			expired = append(expired, *entry)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, entry := range expired {
		if m.persister != nil {
			if err := m.persister.Delete(ctx, entry.ID); err != nil {
				m.log.Warn().Err(err).Str("session_id", entry.ID).Msg("delete persisted session failed")
			}
		}
		m.log.Info().Str("session_id", entry.ID).Str("username", entry.Principal.Username).Msg("session expired")
		if m.onExpire != nil {
			m.onExpire(entry)
		}
	}
	return len(expired)
}

// Count reports live sessions. Used by the health handler.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
