package testutil

import (
	"context"
	"sync"

	"github.com/wpine215/a32nx/internal/engine"
)

// MemoryRecorder is an engine.Recorder keeping everything in memory.
type MemoryRecorder struct {
	mu       sync.Mutex
	Sessions []engine.Session
	Ticks    []engine.TickRecord
	Failures []engine.FailureRecord
	// Err, when set, is returned by every call.
	Err error
}

// BeginSession implements engine.Recorder.
func (r *MemoryRecorder) BeginSession(_ context.Context, s engine.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Sessions = append(r.Sessions, s)
	return nil
}

// RecordTick implements engine.Recorder.
func (r *MemoryRecorder) RecordTick(_ context.Context, t engine.TickRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Ticks = append(r.Ticks, t)
	return nil
}

// RecordFailure implements engine.Recorder.
func (r *MemoryRecorder) RecordFailure(_ context.Context, f engine.FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Failures = append(r.Failures, f)
	return nil
}

// Sample returns the value of variable in the recorded tick with seq.
func (r *MemoryRecorder) Sample(seq int64, variable string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.Ticks {
		if t.Seq != seq {
			continue
		}
		for _, s := range t.Samples {
			if s.Variable == variable {
				return s.Value, true
			}
		}
	}
	return 0, false
}
