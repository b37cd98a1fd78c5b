package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const defaultSweepSpec = "0 30 3 * * *"

// Sweeper deletes dead sessions across every user.
type Sweeper interface {
	PruneAll(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	timeout time.Duration
	log     zerolog.Logger
}

func NewScheduler(sweeper Sweeper, spec string, log zerolog.Logger) *Scheduler {
	if spec == "" {
		spec = defaultSweepSpec
	}
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		spec:    spec,
		timeout: time.Minute,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.sweeper == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.Sweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule; the returned context is done once a running
// sweep has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Sweep runs one PruneAll pass.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.sweeper.PruneAll(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
		return
	}
	s.log.Info().Int64("deleted", n).Msg("session sweep finished")
}
