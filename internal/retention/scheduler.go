package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/runnerr0/dwell/internal/logger"
)

// ErrRunInProgress is returned by Scheduler.Run while another pass holds the
// guard.
var ErrRunInProgress = errors.New("retention run already in progress")

// Scheduler runs a Job on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	job        *Job
	maxPerRun  int
	log        *logger.Logger
	cron       *cron.Cron
	mu         sync.Mutex
	running    bool
	runCtx     context.Context
	cancelRuns context.CancelFunc
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@every 30m").
func NewScheduler(job *Job, spec string, maxPerRun int, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		job:       job,
		maxPerRun: maxPerRun,
		log:       log,
		cron:      cron.New(),
	}
	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse retention schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if _, err := s.Run(s.runCtx, s.maxPerRun); errors.Is(err, ErrRunInProgress) {
		s.log.Debug("Retention run still in progress, skipping tick")
	}
	// Other errors are logged and counted by the job.
}

// Run performs one pass through the same overlap guard the schedule uses,
// so on-demand and scheduled passes never fold the same date concurrently.
func (s *Scheduler) Run(ctx context.Context, maxDaysPerRun int) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.job.Run(ctx, maxDaysPerRun)
}

// RunNow triggers one pass immediately, subject to the overlap guard.
func (s *Scheduler) RunNow() {
	s.tick()
}

// Start runs the schedule until ctx is cancelled, then waits for an
// in-flight run to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	s.cancelRuns()
	<-s.cron.Stop().Done()
	return nil
}
