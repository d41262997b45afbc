// Package feed is the auxiliary list of user-facing event messages. It is
// append-only, capped, and intentionally never persisted.
package feed

import (
	"sync"
	"time"

	"arts/api/internal/ids"
	"arts/api/internal/models"
)

const defaultCap = 200

type Feed struct {
	mu      sync.RWMutex
	entries []models.Notification
	cap     int
}

func New() *Feed {
	return &Feed{cap: defaultCap}
}

// Add appends a message; when the cap is reached the oldest entry falls off.
func (f *Feed) Add(kind models.NotificationKind, message string) models.Notification {
	entry := models.Notification{
		ID:      ids.New(),
		Kind:    kind,
		Message: message,
		At:      time.Now(),
	}

	f.mu.Lock()
	f.entries = append(f.entries, entry)
	if len(f.entries) > f.cap {
		f.entries = f.entries[len(f.entries)-f.cap:]
	}
	f.mu.Unlock()

	return entry
}

// List returns entries newest first.
func (f *Feed) List() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Notification, len(f.entries))
	for i, entry := range f.entries {
		out[len(f.entries)-1-i] = entry
	}
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
