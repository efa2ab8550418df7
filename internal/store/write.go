package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/ir"
)

// ErrNoSession is returned when a tick or failure is recorded before
// BeginSession.
var ErrNoSession = errors.New("no session started")

// Recorder writes simulation traces to a Store. It implements
// engine.Recorder and records into the session most recently begun.
type Recorder struct {
	store   *Store
	session string
}

var _ engine.Recorder = (*Recorder)(nil)

// Recorder returns a trace recorder backed by s.
func (s *Store) Recorder() *Recorder {
	return &Recorder{store: s}
}

// SessionID returns the session being recorded, or "" before BeginSession.
func (r *Recorder) SessionID() string { return r.session }

// BeginSession inserts a session row. Beginning an existing session ID again
// resumes it.
func (r *Recorder) BeginSession(ctx context.Context, sess engine.Session) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO sessions (id, prefix, config_hash, bridge_version, trace_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Prefix,
		sess.ConfigHash,
		sess.Version,
		ir.TraceVersion,
	)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	r.session = sess.ID
	return nil
}

// RecordTick inserts the tick and its samples in one transaction.
// The tick digest covers every sample, keyed by variable.
func (r *Recorder) RecordTick(ctx context.Context, t engine.TickRecord) error {
	if r.session == "" {
		return fmt.Errorf("record tick %d: %w", t.Seq, ErrNoSession)
	}

	values := make(map[string]float64, len(t.Samples))
	for _, s := range t.Samples {
		values[s.Variable] = s.Value
	}
	digest, err := ir.TickDigest(t.Seq, values)
	if err != nil {
		return fmt.Errorf("record tick %d: %w", t.Seq, err)
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record tick %d: %w", t.Seq, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ticks (session_id, seq, delta_ns, digest)
		VALUES (?, ?, ?, ?)
	`, r.session, t.Seq, t.Delta.Nanoseconds(), digest); err != nil {
		return fmt.Errorf("record tick %d: %w", t.Seq, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (session_id, seq, variable, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("record tick %d: %w", t.Seq, err)
	}
	defer stmt.Close()

	for _, s := range t.Samples {
		if _, err := stmt.ExecContext(ctx, r.session, t.Seq, s.Variable, s.Value); err != nil {
			return fmt.Errorf("record tick %d sample %s: %w", t.Seq, s.Variable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record tick %d: %w", t.Seq, err)
	}
	return nil
}

// RecordFailure inserts a failure event.
func (r *Recorder) RecordFailure(ctx context.Context, f engine.FailureRecord) error {
	if r.session == "" {
		return fmt.Errorf("record failure %d: %w", f.Code, ErrNoSession)
	}
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO failure_events (session_id, seq, code, failure_type, active, changed)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.session, f.Seq, f.Code, f.Type, f.Active, f.Changed)
	if err != nil {
		return fmt.Errorf("record failure %d: %w", f.Code, err)
	}
	return nil
}
