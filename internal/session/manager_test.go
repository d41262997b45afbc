package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/models"
)

const testTimeout = 30 * time.Minute

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakePersister struct {
	mu      sync.Mutex
	saved   map[string]Entry
	deleted []string
}

func newFakePersister() *fakePersister {
	return &fakePersister{saved: make(map[string]Entry)}
}

func (p *fakePersister) Save(_ context.Context, entry Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[entry.ID] = entry
	return nil
}

func (p *fakePersister) Touch(_ context.Context, id string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.saved[id]; ok {
		entry.LastActivity = at
		p.saved[id] = entry
	}
	return nil
}

func (p *fakePersister) Delete(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.saved, id)
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *fakePersister) Load(_ context.Context) ([]Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var entries []Entry
	for _, entry := range p.saved {
		entries = append(entries, entry)
	}
	return entries, nil
}

func testManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)}
	m := NewManager(testTimeout, nil, zerolog.Nop())
	m.now = clock.Now
	return m, clock
}

func testPrincipal() models.Principal {
	return models.Principal{
		ID:       "user-1",
		Username: "dr.aravind",
		FullName: "Dr. Aravind Srinivasan",
		Role:     models.UserRoleOphthalmologist,
	}
}

func TestRemainingCountsDownAndFloorsAtZero(t *testing.T) {
	m, clock := testManager(t)

	entry, err := m.Create(context.Background(), testPrincipal())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := m.Remaining(entry.ID); got != testTimeout {
		t.Errorf("fresh remaining = %v, want %v", got, testTimeout)
	}

	clock.Advance(10 * time.Minute)
	if got := m.Remaining(entry.ID); got != 20*time.Minute {
		t.Errorf("remaining after 10m = %v, want 20m", got)
	}

	// One millisecond past the window.
	clock.Advance(20*time.Minute + time.Millisecond)
	if got := m.Remaining(entry.ID); got != 0 {
		t.Errorf("remaining past timeout = %v, want 0", got)
	}
}

func TestTouchRefreshesWindow(t *testing.T) {
	m, clock := testManager(t)
	entry, _ := m.Create(context.Background(), testPrincipal())

	clock.Advance(25 * time.Minute)
	if err := m.Touch(context.Background(), entry.ID); err != nil {
		t.Fatalf("touch: %v", err)
	}

	clock.Advance(25 * time.Minute)
	if _, err := m.Validate(entry.ID); err != nil {
		t.Errorf("session expired despite activity: %v", err)
	}
}

func TestSweepDestroysExpiredSessions(t *testing.T) {
	m, clock := testManager(t)

	var expired []Entry
	m.OnExpire(func(e Entry) { expired = append(expired, e) })

	stale, _ := m.Create(context.Background(), testPrincipal())
	clock.Advance(testTimeout + time.Millisecond)
	fresh, _ := m.Create(context.Background(), testPrincipal())

	if n := m.Sweep(context.Background()); n != 1 {
		t.Fatalf("sweep removed %d sessions, want 1", n)
	}

	if _, err := m.Validate(stale.ID); err != ErrSessionNotFound {
		t.Errorf("stale session validate = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Validate(fresh.ID); err != nil {
		t.Errorf("fresh session validate = %v", err)
	}
	if len(expired) != 1 || expired[0].ID != stale.ID {
		t.Errorf("expire callback fired for %v", expired)
	}
}

func TestValidateDetectsExpiry(t *testing.T) {
	m, clock := testManager(t)
	entry, _ := m.Create(context.Background(), testPrincipal())

	clock.Advance(testTimeout)
	if _, err := m.Validate(entry.ID); err != ErrSessionExpired {
		t.Errorf("validate = %v, want ErrSessionExpired", err)
	}
}

func TestRestoreDiscardsStaleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)}
	persister := newFakePersister()

	persister.saved["live"] = Entry{
		ID:           "live",
		Principal:    testPrincipal(),
		LastActivity: clock.Now().Add(-10 * time.Minute),
	}
	persister.saved["stale"] = Entry{
		ID:           "stale",
		Principal:    testPrincipal(),
		LastActivity: clock.Now().Add(-testTimeout - time.Second),
	}

	m := NewManager(testTimeout, persister, zerolog.Nop())
	m.now = clock.Now

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if _, err := m.Validate("live"); err != nil {
		t.Errorf("live session not restored: %v", err)
	}
	if _, err := m.Validate("stale"); err != ErrSessionNotFound {
		t.Errorf("stale session validate = %v, want ErrSessionNotFound", err)
	}
	if _, ok := persister.saved["stale"]; ok {
		t.Error("stale persisted entry not cleared")
	}
}

func TestDestroyRemovesPersistedEntries(t *testing.T) {
	persister := newFakePersister()
	m := NewManager(testTimeout, persister, zerolog.Nop())

	entry, _ := m.Create(context.Background(), testPrincipal())
	if _, ok := persister.saved[entry.ID]; !ok {
		t.Fatal("session not persisted on create")
	}

	m.Destroy(context.Background(), entry.ID)
	if _, ok := persister.saved[entry.ID]; ok {
		t.Error("persisted entry survived destroy")
	}
	if _, err := m.Validate(entry.ID); err != ErrSessionNotFound {
		t.Errorf("validate after destroy = %v", err)
	}
}
