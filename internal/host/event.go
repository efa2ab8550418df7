package host

import (
	"context"
	"fmt"
	"time"
)

// EventKind distinguishes host events.
type EventKind uint8

const (
	// EventFrame requests one simulation tick.
	EventFrame EventKind = iota + 1
	// EventActivateFailure requests activation of an external failure code.
	EventActivateFailure
	// EventDeactivateFailure requests deactivation of an external failure code.
	EventDeactivateFailure
)

func (k EventKind) String() string {
	switch k {
	case EventFrame:
		return "frame"
	case EventActivateFailure:
		return "activate_failure"
	case EventDeactivateFailure:
		return "deactivate_failure"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}

// Event is one host notification.
type Event struct {
	Kind EventKind
	// Delta is the simulated time since the previous frame (EventFrame).
	Delta time.Duration
	// Code is the external failure code (failure events).
	Code int
}

// Frame returns a frame event.
func Frame(delta time.Duration) Event {
	return Event{Kind: EventFrame, Delta: delta}
}

// ActivateFailure returns a failure activation event.
func ActivateFailure(code int) Event {
	return Event{Kind: EventActivateFailure, Code: code}
}

// DeactivateFailure returns a failure deactivation event.
func DeactivateFailure(code int) Event {
	return Event{Kind: EventDeactivateFailure, Code: code}
}

func (e Event) String() string {
	switch e.Kind {
	case EventFrame:
		return fmt.Sprintf("frame(%s)", e.Delta)
	case EventActivateFailure, EventDeactivateFailure:
		return fmt.Sprintf("%s(%d)", e.Kind, e.Code)
	default:
		return e.Kind.String()
	}
}

// Source yields host events in order. Next blocks until an event is
// available and returns false once the stream is exhausted or ctx is done.
type Source interface {
	Next(ctx context.Context) (Event, bool)
}

// SliceSource replays a fixed list of events.
type SliceSource struct {
	events []Event
	pos    int
}

// NewSliceSource returns a Source over events.
func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (Event, bool) {
	if ctx.Err() != nil || s.pos >= len(s.events) {
		return Event{}, false
	}
	e := s.events[s.pos]
	s.pos++
	return e, true
}
