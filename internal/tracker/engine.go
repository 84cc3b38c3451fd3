// Package tracker turns browser focus events into closed activity intervals.
//
// Every transition runs on one worker goroutine that owns the session slot:
// switches are debounced into it, idle and alarm transitions are queued
// immediately, and each closed session is handed to the Recorder once.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/runnerr0/dwell/internal/logger"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/session"
	"github.com/runnerr0/dwell/internal/storage"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultTickInterval = time.Minute
)

// Recorder receives every closed session.
type Recorder interface {
	RecordActivity(ctx context.Context, a storage.Activity) error
}

// Blocker rejects URLs that must not be tracked.
type Blocker interface {
	IsURLBlocked(url string) bool
}

// Engine is the session state machine.
type Engine struct {
	slot     session.Slot
	recorder Recorder
	blocker  Blocker
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	debounce time.Duration
	tick     time.Duration

	queue *taskQueue

	mu        sync.Mutex
	pending   *time.Timer
	gen       uint64
	alarmStop chan struct{}
	started   bool
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan struct{}
	done   chan struct{}
}

// Option customises an Engine.
type Option func(*Engine)

func WithDebounce(d time.Duration) Option { return func(e *Engine) { e.debounce = d } }
func WithTickInterval(d time.Duration) Option { return func(e *Engine) { e.tick = d } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }
func WithBlocker(b Blocker) Option { return func(e *Engine) { e.blocker = b } }

// New creates an Engine. Call Init before sending transitions.
func New(slot session.Slot, recorder Recorder, opts ...Option) *Engine {
	e := &Engine{
		slot:     slot,
		recorder: recorder,
		log:      logger.Nop(),
		now:      time.Now,
		debounce: DefaultDebounce,
		tick:     DefaultTickInterval,
		queue:    newTaskQueue(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "tracker")
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Init starts the worker and resumes supervision of a session left in the
// slot by a previous process. The stored start time is kept as is.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	go e.work()

	cur, err := e.slot.Get(ctx)
	if err != nil {
		return err
	}
	if cur.Active() {
		e.log.Info("Resuming session", "url", cur.URL, "started", cur.StartTime)
		e.armAlarm()
	}
	return nil
}

// Switch schedules a transition to url after the debounce window. A newer
// Switch replaces a pending one.
func (e *Engine) Switch(url, title, source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if e.pending != nil && e.pending.Stop() {
		e.metrics.SwitchDropped()
	}
	e.gen++
	gen := e.gen
	e.pending = time.AfterFunc(e.debounce, func() {
		e.mu.Lock()
		if e.gen != gen || e.closed {
			e.mu.Unlock()
			return
		}
		e.pending = nil
		e.mu.Unlock()

		e.enqueue(func(ctx context.Context) { e.transition(ctx, url, title, source) })
	})
}

// Idle applies a transition immediately, discarding any pending Switch. An
// empty url closes the current session without opening another.
func (e *Engine) Idle(url, title, source string) {
	e.cancelPending()
	e.enqueue(func(ctx context.Context) { e.transition(ctx, url, title, source) })
}

// Alarm checkpoints the active session: it is closed and the same URL is
// reopened with source alarm.
func (e *Engine) Alarm() {
	e.cancelPending()
	e.enqueue(e.checkpoint)
}

// Sync blocks until every transition queued before the call has run.
func (e *Engine) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if !e.enqueue(func(context.Context) { close(done) }) {
		return errors.New("tracker closed")
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AlarmArmed reports whether the periodic checkpoint is running.
func (e *Engine) AlarmArmed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alarmStop != nil
}

// Current returns the session in the slot, or nil when idle.
func (e *Engine) Current(ctx context.Context) (*session.Session, error) {
	return e.slot.Get(ctx)
}

// Close drops a pending Switch, runs the transitions already queued and
// stops the worker. The active session stays in the slot.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	started := e.started
	e.mu.Unlock()

	e.cancelPending()
	if started {
		_ = e.Sync(context.Background())
	}

	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.disarmAlarm()

	close(e.stop)
	if started {
		<-e.done
	}
	e.cancel()
	return nil
}

func (e *Engine) enqueue(t task) bool {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return false
	}
	e.metrics.SetQueueDepth(e.queue.push(t))
	return true
}

func (e *Engine) cancelPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.pending != nil {
		if e.pending.Stop() {
			e.metrics.SwitchDropped()
		}
		e.pending = nil
	}
}

func (e *Engine) work() {
	defer close(e.done)
	for {
		t, ok, depth := e.queue.pop()
		if !ok {
			select {
			case <-e.queue.signal:
				continue
			case <-e.stop:
				return
			}
		}
		e.metrics.SetQueueDepth(depth)
		t(e.ctx)
	}
}

// transition closes the current session and opens url unless it is empty
// or blocked.
func (e *Engine) transition(ctx context.Context, url, title, source string) {
	cur, err := e.slot.Get(ctx)
	if err != nil {
		e.log.Error("Read session slot failed", "error", err)
		e.metrics.TransitionError("slot")
		return
	}

	if cur.Active() {
		e.closeSession(ctx, cur)
	}

	if url == "" {
		e.disarmAlarm()
		return
	}
	if e.blocker != nil && e.blocker.IsURLBlocked(url) {
		e.log.Debug("URL blocked, staying idle", "url", url)
		e.disarmAlarm()
		return
	}

	e.openSession(ctx, url, title, source)
}

func (e *Engine) checkpoint(ctx context.Context) {
	cur, err := e.slot.Get(ctx)
	if err != nil {
		e.log.Error("Read session slot failed", "error", err)
		e.metrics.TransitionError("slot")
		return
	}
	if !cur.Active() {
		e.disarmAlarm()
		return
	}

	e.closeSession(ctx, cur)
	e.openSession(ctx, cur.URL, cur.Title, session.SourceAlarm)
}

// closeSession records cur and clears the slot. The slot is cleared even
// when recording fails so a bad session cannot be replayed forever.
func (e *Engine) closeSession(ctx context.Context, cur *session.Session) {
	final := cur.Elapsed(e.now())

	if final > 0 {
		err := e.recorder.RecordActivity(ctx, storage.Activity{
			URL:       cur.URL,
			Title:     cur.Title,
			Duration:  final,
			StartTime: cur.StartTime,
			Source:    cur.Source,
		})
		switch {
		case err == nil:
			e.metrics.SessionClosed(cur.Source, final)
		case errors.Is(err, storage.ErrValidation):
			e.log.Debug("Session not recorded", "url", cur.URL, "reason", err)
		default:
			e.log.Error("Record activity failed", "url", cur.URL, "duration", final, "error", err)
			e.metrics.RecordFailed()
		}
	}

	if err := e.slot.Remove(ctx); err != nil {
		e.log.Error("Clear session slot failed", "error", err)
		e.metrics.TransitionError("slot")
	}
}

func (e *Engine) openSession(ctx context.Context, url, title, source string) {
	now := e.now()
	s := &session.Session{
		URL:            url,
		Title:          title,
		StartTime:      now,
		LastUpdateTime: now,
		Source:         source,
	}
	if err := e.slot.Set(ctx, s); err != nil {
		e.log.Error("Write session slot failed", "url", url, "error", err)
		e.metrics.TransitionError("slot")
		e.disarmAlarm()
		return
	}
	e.metrics.SessionOpened(source)
	e.log.Debug("Tracking started", "url", url, "source", source)
	e.armAlarm()
}

func (e *Engine) armAlarm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alarmStop != nil || e.closed || e.tick <= 0 {
		return
	}
	stop := make(chan struct{})
	e.alarmStop = stop

	go func() {
		ticker := time.NewTicker(e.tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.Alarm()
			}
		}
	}()
}

func (e *Engine) disarmAlarm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alarmStop != nil {
		close(e.alarmStop)
		e.alarmStop = nil
	}
}
