package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/models"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	result  []models.Patient
	err     error
	block   chan struct{}
	fetched chan struct{}
}

func (f *fakeFetcher) List(_ context.Context) ([]models.Patient, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.fetched != nil {
		f.fetched <- struct{}{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{result: []models.Patient{{ID: "1", Name: "Priya"}}}
	s := NewPatientStore(fetcher, zerolog.Nop())

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snapshot := s.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Name != "Priya" {
		t.Errorf("snapshot = %v", snapshot)
	}
	if s.SyncedAt().IsZero() {
		t.Error("syncedAt not set")
	}
}

func TestRefreshFailureKeepsPriorSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{result: []models.Patient{{ID: "1", Name: "Priya"}}}
	s := NewPatientStore(fetcher, zerolog.Nop())

	var reported error
	s.OnSyncError(func(err error) { reported = err })

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	fetcher.mu.Lock()
	fetcher.err = errors.New("connection refused")
	fetcher.mu.Unlock()

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	// Stale but available.
	if snapshot := s.Snapshot(); len(snapshot) != 1 {
		t.Errorf("snapshot lost on failed refresh: %v", snapshot)
	}
	if reported == nil {
		t.Error("sync error not reported")
	}
}

func TestTriggerBurstCollapses(t *testing.T) {
	fetcher := &fakeFetcher{fetched: make(chan struct{}, 10)}
	s := NewPatientStore(fetcher, zerolog.Nop())
	s.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// A burst of change events inside the settle window becomes one
	// refetch.
	for i := 0; i < 5; i++ {
		s.Trigger()
	}

	select {
	case <-fetcher.fetched:
	case <-time.After(time.Second):
		t.Fatal("refetch never fired")
	}

	select {
	case <-fetcher.fetched:
		t.Fatal("burst produced more than one refetch")
	case <-time.After(100 * time.Millisecond):
	}

	if got := fetcher.callCount(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}

	cancel()
	<-done
}

func TestTriggersDuringFetchQueueOnce(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeFetcher{block: block, fetched: make(chan struct{}, 10)}
	s := NewPatientStore(fetcher, zerolog.Nop())
	s.debounce = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Trigger()

	// Wait for the first fetch to start, then pile on triggers while it
	// is still in flight.
	waitForCalls(t, fetcher, 1)
	s.Trigger()
	s.Trigger()
	s.Trigger()

	fetcher.mu.Lock()
	fetcher.block = nil
	fetcher.mu.Unlock()
	close(block)

	<-fetcher.fetched
	// The queued triggers fold into exactly one follow-up fetch.
	select {
	case <-fetcher.fetched:
	case <-time.After(time.Second):
		t.Fatal("queued refetch never fired")
	}

	select {
	case <-fetcher.fetched:
		t.Fatal("queued triggers stacked instead of folding")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	<-done
}

func waitForCalls(t *testing.T, fetcher *fakeFetcher, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if fetcher.callCount() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("fetcher never reached %d calls", want)
}
