package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/runnerr0/dwell/internal/logger"
	"github.com/runnerr0/dwell/internal/metrics"
	"github.com/runnerr0/dwell/internal/session"
)

// Transitions is the engine surface the Dispatcher drives.
type Transitions interface {
	Switch(url, title, source string)
	Idle(url, title, source string)
	Alarm()
}

// HostQuery looks up the active tab when an event does not carry it.
type HostQuery interface {
	ActiveTab(ctx context.Context) (url, title string, err error)
}

// TabCache remembers the last tab reported by tab and navigation events.
type TabCache struct {
	mu    sync.RWMutex
	url   string
	title string
}

func (c *TabCache) Remember(url, title string) {
	c.mu.Lock()
	c.url, c.title = url, title
	c.mu.Unlock()
}

func (c *TabCache) ActiveTab(context.Context) (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.url == "" {
		return "", "", fmt.Errorf("%w: no active tab", ErrHostState)
	}
	return c.url, c.title, nil
}

// Dispatcher maps normalized host events onto engine transitions.
type Dispatcher struct {
	engine  Transitions
	host    HostQuery
	tabs    *TabCache
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewDispatcher creates a Dispatcher. A nil host falls back to the tabs
// seen in earlier events.
func NewDispatcher(engine Transitions, host HostQuery, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = logger.Nop()
	}
	d := &Dispatcher{engine: engine, tabs: &TabCache{}, log: log, metrics: m}
	d.host = host
	if d.host == nil {
		d.host = d.tabs
	}
	return d
}

// Dispatch applies ev. Transient host-state failures are logged at debug
// and returned wrapped in ErrHostState; the transition is skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	err := d.dispatch(ctx, ev)
	if errors.Is(err, ErrHostState) {
		d.log.Debug("Skipping event", "kind", ev.Kind, "reason", err)
		d.metrics.TransitionError("host_state")
	}
	return err
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventTabActivated:
		d.remember(ev)
		d.engine.Switch(ev.URL, ev.Title, session.SourceTabActivated)

	case EventNavigationCompleted:
		if ev.FrameID != 0 {
			return nil
		}
		d.remember(ev)
		d.engine.Switch(ev.URL, ev.Title, session.SourceNavigation)

	case EventWindowFocusChanged:
		if !*ev.Focused {
			d.engine.Idle("", "", session.SourceWindowFocus)
			return nil
		}
		url, title, err := d.resolve(ctx, ev)
		if err != nil {
			return err
		}
		d.engine.Switch(url, title, session.SourceWindowFocus)

	case EventIdleStateChanged:
		if !*ev.Active {
			d.engine.Idle("", "", session.SourceIdleResume)
			return nil
		}
		url, title, err := d.resolve(ctx, ev)
		if err != nil {
			return err
		}
		d.engine.Idle(url, title, session.SourceIdleResume)

	case EventTick:
		d.engine.Alarm()
	}
	return nil
}

func (d *Dispatcher) remember(ev Event) {
	if ev.URL != "" {
		d.tabs.Remember(ev.URL, ev.Title)
	}
}

// resolve returns the event's URL, asking the host when it is missing.
func (d *Dispatcher) resolve(ctx context.Context, ev Event) (string, string, error) {
	if ev.URL != "" {
		d.remember(ev)
		return ev.URL, ev.Title, nil
	}
	url, title, err := d.host.ActiveTab(ctx)
	if err != nil {
		if !errors.Is(err, ErrHostState) {
			err = fmt.Errorf("%w: %v", ErrHostState, err)
		}
		return "", "", err
	}
	return url, title, nil
}
