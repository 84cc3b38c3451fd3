package tracker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrHostState marks transient host conditions such as a closed tab or
	// an unfocused window. The transition is skipped.
	ErrHostState = errors.New("host state unavailable")

	// ErrInvalidEvent marks a malformed event at the ingest boundary.
	ErrInvalidEvent = errors.New("invalid event")
)

// EventKind names a normalized host event.
type EventKind string

const (
	EventTabActivated        EventKind = "tab_activated"
	EventNavigationCompleted EventKind = "navigation_completed"
	EventWindowFocusChanged  EventKind = "window_focus_changed"
	EventIdleStateChanged    EventKind = "idle_state_changed"
	EventTick                EventKind = "tick"
)

// Event is the host-independent event shape consumed by the Dispatcher.
// Focused is set on window focus events, Active on idle state events.
// FrameID is non-zero for sub-frame navigations, which are ignored.
type Event struct {
	Kind    EventKind `json:"kind"`
	URL     string    `json:"url,omitempty"`
	Title   string    `json:"title,omitempty"`
	Focused *bool     `json:"focused,omitempty"`
	Active  *bool     `json:"active,omitempty"`
	FrameID int       `json:"frameId,omitempty"`
}

func invalidEvent(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidEvent, fmt.Sprintf(format, args...))
}

// ParseEvent decodes and validates one JSON event.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return Event{}, invalidEvent("%v", err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks that the fields required by Kind are present.
func (ev Event) Validate() error {
	switch ev.Kind {
	case EventTabActivated, EventNavigationCompleted, EventTick:
		return nil
	case EventWindowFocusChanged:
		if ev.Focused == nil {
			return invalidEvent("%s requires focused", ev.Kind)
		}
		return nil
	case EventIdleStateChanged:
		if ev.Active == nil {
			return invalidEvent("%s requires active", ev.Kind)
		}
		return nil
	case "":
		return invalidEvent("missing kind")
	default:
		return invalidEvent("unknown kind %q", ev.Kind)
	}
}
