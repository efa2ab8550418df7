package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/queryir"
	"github.com/wpine215/a32nx/internal/querysql"
)

// ErrSessionNotFound is returned when a session ID is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// SessionSummary is a session with its record counts.
type SessionSummary struct {
	engine.Session
	TraceVersion string
	Ticks        int
	Failures     int
	LastSeq      int64
}

// Tick is a recorded tick with its stored digest.
type Tick struct {
	engine.TickRecord
	Digest string
}

// Point is one value of a variable series.
type Point struct {
	Seq   int64
	Value float64
}

// ListSessions returns every session in insertion order.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.prefix, s.config_hash, s.bridge_version, s.trace_version,
		       (SELECT COUNT(*) FROM ticks t WHERE t.session_id = s.id),
		       (SELECT COUNT(*) FROM failure_events f WHERE f.session_id = s.id),
		       MAX(
		           COALESCE((SELECT MAX(seq) FROM ticks t WHERE t.session_id = s.id), 0),
		           COALESCE((SELECT MAX(seq) FROM failure_events f WHERE f.session_id = s.id), 0)
		       )
		FROM sessions s
		ORDER BY s.rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(
			&sum.ID, &sum.Prefix, &sum.ConfigHash, &sum.Version, &sum.TraceVersion,
			&sum.Ticks, &sum.Failures, &sum.LastSeq,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns the session with the given ID.
func (s *Store) ReadSession(ctx context.Context, id string) (engine.Session, error) {
	var sess engine.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, prefix, config_hash, bridge_version
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Prefix, &sess.ConfigHash, &sess.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return sess, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ReadTicks returns every tick of a session, ordered by seq, with samples
// ordered by variable.
func (s *Store) ReadTicks(ctx context.Context, sessionID string) ([]Tick, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.seq, t.delta_ns, t.digest, sa.variable, sa.value
		FROM ticks t
		LEFT JOIN samples sa ON sa.session_id = t.session_id AND sa.seq = t.seq
		WHERE t.session_id = ?
		ORDER BY t.seq ASC, sa.variable COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	ticks := []Tick{}
	for rows.Next() {
		var (
			seq      int64
			deltaNS  int64
			digest   string
			variable sql.NullString
			value    sql.NullFloat64
		)
		if err := rows.Scan(&seq, &deltaNS, &digest, &variable, &value); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		if n := len(ticks); n == 0 || ticks[n-1].Seq != seq {
			ticks = append(ticks, Tick{
				TickRecord: engine.TickRecord{Seq: seq, Delta: time.Duration(deltaNS)},
				Digest:     digest,
			})
		}
		if variable.Valid {
			last := &ticks[len(ticks)-1]
			last.Samples = append(last.Samples, engine.Sample{Variable: variable.String, Value: value.Float64})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticks: %w", err)
	}
	return ticks, nil
}

// ReadFailures returns the failure events of a session ordered by seq.
func (s *Store) ReadFailures(ctx context.Context, sessionID string) ([]engine.FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, code, failure_type, active, changed
		FROM failure_events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query failure events: %w", err)
	}
	defer rows.Close()

	events := []engine.FailureRecord{}
	for rows.Next() {
		var f engine.FailureRecord
		if err := rows.Scan(&f.Seq, &f.Code, &f.Type, &f.Active, &f.Changed); err != nil {
			return nil, fmt.Errorf("scan failure event: %w", err)
		}
		events = append(events, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure events: %w", err)
	}
	return events, nil
}

// ReadSeries returns one variable's value at every tick it was sampled.
func (s *Store) ReadSeries(ctx context.Context, sessionID, variable string) ([]Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, value
		FROM samples
		WHERE session_id = ? AND variable = ?
		ORDER BY seq ASC
	`, sessionID, variable)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	points := []Point{}
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Seq, &p.Value); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return points, nil
}

// Row is one sample returned by QuerySamples.
type Row struct {
	Seq      int64   `json:"seq"`
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

// QuerySamples returns the samples of a session that match q's filter,
// ordered by seq and variable. It returns ErrSessionNotFound for an unknown
// session.
func (s *Store) QuerySamples(ctx context.Context, q queryir.Query) ([]Row, error) {
	query, params, err := querysql.Compile(q)
	if err != nil {
		return nil, err
	}
	if _, err := s.ReadSession(ctx, q.Session); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Seq, &r.Variable, &r.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return result, nil
}

// DigestMismatch reports a tick whose samples no longer hash to the stored
// digest.
type DigestMismatch struct {
	Seq      int64
	Stored   string
	Computed string
}

// VerifySession recomputes every tick digest of a session.
func (s *Store) VerifySession(ctx context.Context, sessionID string) ([]DigestMismatch, error) {
	ticks, err := s.ReadTicks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var mismatches []DigestMismatch
	for _, t := range ticks {
		values := make(map[string]float64, len(t.Samples))
		for _, sa := range t.Samples {
			values[sa.Variable] = sa.Value
		}
		computed, err := ir.TickDigest(t.Seq, values)
		if err != nil {
			return nil, fmt.Errorf("verify tick %d: %w", t.Seq, err)
		}
		if computed != t.Digest {
			mismatches = append(mismatches, DigestMismatch{Seq: t.Seq, Stored: t.Digest, Computed: computed})
		}
	}
	return mismatches, nil
}
