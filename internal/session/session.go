// Package session holds the in-flight browsing session and the durable slot
// it is mirrored to, so a restart can resume where tracking left off.
package session

import (
	"context"
	"time"
)

// Event sources recorded with every history row.
const (
	SourceTabActivated = "tab_activated"
	SourceNavigation   = "navigation"
	SourceWindowFocus  = "window_focus"
	SourceIdleResume   = "idle_resume"
	SourceAlarm        = "alarm"
	SourceManual       = "manual"
)

// Session is the single active session. An empty URL means idle.
type Session struct {
	URL                 string        `json:"url"`
	Title               string        `json:"title"`
	StartTime           time.Time     `json:"startTime"`
	LastUpdateTime      time.Time     `json:"lastUpdateTime"`
	AccumulatedDuration time.Duration `json:"accumulatedDuration"`
	Source              string        `json:"eventSource"`
}

// Active reports whether s tracks a URL.
func (s *Session) Active() bool {
	return s != nil && s.URL != ""
}

// Elapsed returns the session length at now: the accumulated duration plus
// the time since the last update, never negative.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if !s.Active() {
		return 0
	}
	d := s.AccumulatedDuration + now.Sub(s.LastUpdateTime)
	if d < 0 {
		return 0
	}
	return d
}

// Slot persists at most one session. Get returns nil, nil when empty.
type Slot interface {
	Get(ctx context.Context) (*Session, error)
	Set(ctx context.Context, s *Session) error
	Remove(ctx context.Context) error
	Close() error
}
