package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"arts/api/internal/session"
)

// Scheduler drives the periodic session sweep. Expired sessions linger at
// most one sweep interval past their timeout.
type Scheduler struct {
	cron     *cron.Cron
	sessions *session.Manager
	interval time.Duration
	log      zerolog.Logger
}

func NewScheduler(sessions *session.Manager, interval time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		interval: interval,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	seconds := int(s.interval.Seconds())
	if seconds < 1 || seconds > 60 {
		seconds = 60
	}

	spec := fmt.Sprintf("@every %ds", seconds)
	if _, err := s.cron.AddFunc(spec, s.sweepSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n := s.sessions.Sweep(ctx); n > 0 {
		s.log.Info().Int("expired", n).Msg("session sweep")
	}
}
