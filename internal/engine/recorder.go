package engine

import (
	"context"
	"time"
)

// Session describes one recorded simulation run.
type Session struct {
	ID         string
	Prefix     string
	ConfigHash string
	Version    string
}

// Sample is a variable value captured at the end of a tick.
type Sample struct {
	Variable string
	Value    float64
}

// TickRecord is everything recorded for one tick.
type TickRecord struct {
	Seq     int64
	Delta   time.Duration
	Samples []Sample
}

// FailureRecord is a failure activation or deactivation request.
type FailureRecord struct {
	Seq     int64
	Code    int
	Type    string // empty for unknown codes
	Active  bool
	Changed bool
}

// Recorder persists simulation traces. The simulation calls it from its
// single event loop; implementations need not be safe for concurrent use.
type Recorder interface {
	BeginSession(ctx context.Context, s Session) error
	RecordTick(ctx context.Context, t TickRecord) error
	RecordFailure(ctx context.Context, f FailureRecord) error
}
