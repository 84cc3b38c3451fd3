// Package retention folds old raw history into hourly rollups a few days
// at a time.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/dwell/internal/logger"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/storage"
)

// Store is the subset of the storage engine the job needs.
type Store interface {
	RawRetentionDays(ctx context.Context) (int, error)
	OldestHistoryDate(ctx context.Context) (string, bool, error)
	AggregateOneDay(ctx context.Context, date string) (int, error)
}

// Result lists what one run did.
type Result struct {
	Cutoff    string   `json:"cutoff"`
	Processed []string `json:"processed"`
	Rows      int      `json:"rows"`
}

// Job runs retention passes against a Store.
type Job struct {
	store   Store
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customises a Job.
type Option func(*Job)

func WithLogger(l *logger.Logger) Option { return func(j *Job) { j.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(j *Job) { j.metrics = m } }
func WithClock(now func() time.Time) Option { return func(j *Job) { j.now = now } }

func NewJob(store Store, opts ...Option) *Job {
	j := &Job{store: store, log: logger.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Cutoff returns the first date that must stay raw: today minus
// (rawDays - 1). rawDays below one is treated as one.
func Cutoff(today time.Time, rawDays int) string {
	if rawDays < 1 {
		rawDays = 1
	}
	return storage.FormatDate(today.AddDate(0, 0, -(rawDays - 1)))
}

// Run aggregates the oldest raw date, one at a time, until the oldest
// remaining date reaches the cutoff or maxDaysPerRun dates were processed.
// A failing date aborts the run; dates already folded stay folded.
func (j *Job) Run(ctx context.Context, maxDaysPerRun int) (*Result, error) {
	if maxDaysPerRun < 1 {
		maxDaysPerRun = 1
	}

	res, err := j.run(ctx, maxDaysPerRun)
	j.metrics.RetentionRun(len(res.Processed), err, j.now())
	if err != nil {
		j.log.Error("Retention run failed", "processed", len(res.Processed), "error", err)
		return res, err
	}
	if len(res.Processed) > 0 {
		j.log.Info("Retention run complete", "cutoff", res.Cutoff, "days", res.Processed, "rows", res.Rows)
	}
	return res, nil
}

func (j *Job) run(ctx context.Context, maxDaysPerRun int) (*Result, error) {
	res := &Result{Processed: []string{}}

	days, err := j.store.RawRetentionDays(ctx)
	if err != nil {
		return res, fmt.Errorf("read retention setting: %w", err)
	}
	res.Cutoff = Cutoff(j.now(), days)

	for i := 0; i < maxDaysPerRun; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		oldest, ok, err := j.store.OldestHistoryDate(ctx)
		if err != nil {
			return res, err
		}
		if !ok || oldest >= res.Cutoff {
			break
		}

		n, err := j.store.AggregateOneDay(ctx, oldest)
		if err != nil {
			return res, fmt.Errorf("aggregate %s: %w", oldest, err)
		}
		j.log.Debug("Aggregated day", "date", oldest, "rows", n)
		res.Processed = append(res.Processed, oldest)
		res.Rows += n
	}
	return res, nil
}
