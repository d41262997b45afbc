// Package store holds the in-memory patient snapshot and keeps it
// reconciled with the database through change notifications.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/models"
)

// Fetcher is the remote source of truth for the patient list.
type Fetcher interface {
	List(ctx context.Context) ([]models.Patient, error)
}

// PatientStore owns the snapshot. Readers get the current slice and must
// treat it as immutable; every refresh swaps in a fresh one.
//
// Change notifications do not patch incrementally: any event triggers a full
// refetch. The consumer loop runs at most one refetch at a time and collapses
// bursts into a single queued trigger, so a late response can never overwrite
// a newer one.
type PatientStore struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu       sync.RWMutex
	snapshot []models.Patient
	syncedAt time.Time

	triggers chan struct{}
	debounce time.Duration

	// onSyncError surfaces refresh failures to the notification feed.
	onSyncError func(error)
}

func NewPatientStore(fetcher Fetcher, log zerolog.Logger) *PatientStore {
	return &PatientStore{
		fetcher:  fetcher,
		log:      log,
		triggers: make(chan struct{}, 1),
		debounce: 200 * time.Millisecond,
	}
}

// OnSyncError registers a callback for failed refreshes. Must be set before
// Run starts.
func (s *PatientStore) OnSyncError(fn func(error)) {
	s.onSyncError = fn
}

// Snapshot returns the current patient list, newest first. The slice is
// shared; callers must not mutate it.
func (s *PatientStore) Snapshot() []models.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// SyncedAt reports when the snapshot last changed.
func (s *PatientStore) SyncedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncedAt
}

// Refresh replaces the snapshot from the remote source. On failure the
// previous snapshot stays in place: stale but available.
func (s *PatientStore) Refresh(ctx context.Context) error {
	patients, err := s.fetcher.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("patient refresh failed")
		if s.onSyncError != nil {
			s.onSyncError(err)
		}
		return err
	}

	s.mu.Lock()
	s.snapshot = patients
	s.syncedAt = time.Now()
	s.mu.Unlock()

	s.log.Debug().Int("patients", len(patients)).Msg("patient snapshot refreshed")
	return nil
}

// Trigger requests a refresh. The channel holds one pending trigger; when a
// refetch is already queued, further triggers fold into it rather than
// stacking.
func (s *PatientStore) Trigger() {
	select {
	case s.triggers <- struct{}{}:
	default:
	}
}

// Run consumes triggers until the context ends. Bursts of change events
// settle for the debounce window before the single refetch fires.
func (s *PatientStore) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.triggers:
		}

		timer := time.NewTimer(s.debounce)
	settle:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.triggers:
				// Absorbed into the pending refetch.
			case <-timer.C:
				break settle
			}
		}

		if err := s.Refresh(ctx); err != nil && ctx.Err() != nil {
			return
		}
	}
}
