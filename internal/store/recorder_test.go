package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/queryir"
	"github.com/wpine215/a32nx/internal/simulation"
	"github.com/wpine215/a32nx/internal/testutil"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string) engine.Session {
	return engine.Session{ID: id, Prefix: "A32NX_", ConfigHash: "cfg-hash", Version: ir.BridgeVersion}
}

func TestRecorder_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := s.Recorder()

	require.NoError(t, rec.BeginSession(ctx, testSession("s1")))
	assert.Equal(t, "s1", rec.SessionID())

	require.NoError(t, rec.RecordTick(ctx, engine.TickRecord{
		Seq:   1,
		Delta: 16 * time.Millisecond,
		Samples: []engine.Sample{
			{Variable: "L:OVHD_ELEC_APU_GEN_PB_IS_ON", Value: 1},
			{Variable: "A:APU GENERATOR SWITCH:0 (Bool)", Value: 1},
		},
	}))
	require.NoError(t, rec.RecordFailure(ctx, engine.FailureRecord{
		Seq: 2, Code: 29000, Type: "ReservoirLeak(Green)", Active: true, Changed: true,
	}))
	require.NoError(t, rec.RecordTick(ctx, engine.TickRecord{
		Seq:     3,
		Delta:   17 * time.Millisecond,
		Samples: []engine.Sample{{Variable: "L:OVHD_ELEC_APU_GEN_PB_IS_ON", Value: 0}},
	}))

	sess, err := s.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, testSession("s1"), sess)

	ticks, err := s.ReadTicks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, int64(1), ticks[0].Seq)
	assert.Equal(t, 16*time.Millisecond, ticks[0].Delta)
	assert.Equal(t, []engine.Sample{
		{Variable: "A:APU GENERATOR SWITCH:0 (Bool)", Value: 1},
		{Variable: "L:OVHD_ELEC_APU_GEN_PB_IS_ON", Value: 1},
	}, ticks[0].Samples, "samples are ordered by variable")
	assert.Len(t, ticks[0].Digest, 64)
	assert.Equal(t, int64(3), ticks[1].Seq)

	failures, err := s.ReadFailures(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []engine.FailureRecord{
		{Seq: 2, Code: 29000, Type: "ReservoirLeak(Green)", Active: true, Changed: true},
	}, failures)

	series, err := s.ReadSeries(ctx, "s1", "L:OVHD_ELEC_APU_GEN_PB_IS_ON")
	require.NoError(t, err)
	assert.Equal(t, []Point{{Seq: 1, Value: 1}, {Seq: 3, Value: 0}}, series)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].Ticks)
	assert.Equal(t, 1, sessions[0].Failures)
	assert.Equal(t, int64(3), sessions[0].LastSeq)
	assert.Equal(t, ir.TraceVersion, sessions[0].TraceVersion)
}

func TestRecorder_DigestIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	samples := []engine.Sample{{Variable: "L:A", Value: 1}, {Variable: "L:B", Value: 2}}
	reversed := []engine.Sample{samples[1], samples[0]}

	for id, ss := range map[string][]engine.Sample{"a": samples, "b": reversed} {
		rec := s.Recorder()
		require.NoError(t, rec.BeginSession(ctx, testSession(id)))
		require.NoError(t, rec.RecordTick(ctx, engine.TickRecord{Seq: 1, Samples: ss}))
	}

	a, err := s.ReadTicks(ctx, "a")
	require.NoError(t, err)
	b, err := s.ReadTicks(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, a[0].Digest, b[0].Digest)
}

func TestRecorder_RequiresSession(t *testing.T) {
	ctx := context.Background()
	rec := createTestStore(t).Recorder()

	err := rec.RecordTick(ctx, engine.TickRecord{Seq: 1})
	assert.ErrorIs(t, err, ErrNoSession)

	err = rec.RecordFailure(ctx, engine.FailureRecord{Seq: 1, Code: 1})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRecorder_DuplicateTickRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := s.Recorder()
	require.NoError(t, rec.BeginSession(ctx, testSession("s1")))

	tick := engine.TickRecord{Seq: 1, Samples: []engine.Sample{{Variable: "L:A", Value: 1}}}
	require.NoError(t, rec.RecordTick(ctx, tick))
	require.Error(t, rec.RecordTick(ctx, tick))

	ticks, err := s.ReadTicks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Len(t, ticks[0].Samples, 1)
}

func TestRecorder_TickWithoutSamples(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := s.Recorder()
	require.NoError(t, rec.BeginSession(ctx, testSession("s1")))
	require.NoError(t, rec.RecordTick(ctx, engine.TickRecord{Seq: 1, Delta: time.Millisecond}))

	ticks, err := s.ReadTicks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Empty(t, ticks[0].Samples)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.ReadTicks(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestVerifySession(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := s.Recorder()
	require.NoError(t, rec.BeginSession(ctx, testSession("s1")))
	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, rec.RecordTick(ctx, engine.TickRecord{
			Seq:     seq,
			Samples: []engine.Sample{{Variable: "L:A", Value: float64(seq)}},
		}))
	}

	mismatches, err := s.VerifySession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	_, err = s.db.Exec(`UPDATE samples SET value = 42 WHERE session_id = 's1' AND seq = 2`)
	require.NoError(t, err)

	mismatches, err = s.VerifySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, int64(2), mismatches[0].Seq)
	assert.NotEqual(t, mismatches[0].Stored, mismatches[0].Computed)
}

func TestQuerySamples(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := s.Recorder()
	require.NoError(t, rec.BeginSession(ctx, testSession("s1")))
	for seq := int64(1); seq <= 4; seq++ {
		require.NoError(t, rec.RecordTick(ctx, engine.TickRecord{
			Seq: seq,
			Samples: []engine.Sample{
				{Variable: "L:A32NX_ELEC_AC_1_BUS_IS_POWERED", Value: float64(seq % 2)},
				{Variable: "L:A32NX_ELEC_DC_1_BUS_IS_POWERED", Value: 1},
				{Variable: "A:BUS CONNECTION ON:2 (Bool)", Value: float64(seq % 2)},
			},
		}))
	}

	tests := []struct {
		name   string
		filter string
		limit  int
		want   []Row
	}{
		{
			name:   "variable and value",
			filter: "variable=L:A32NX_ELEC_AC_1_BUS_IS_POWERED, value=1",
			want: []Row{
				{Seq: 1, Variable: "L:A32NX_ELEC_AC_1_BUS_IS_POWERED", Value: 1},
				{Seq: 3, Variable: "L:A32NX_ELEC_AC_1_BUS_IS_POWERED", Value: 1},
			},
		},
		{
			name:   "glob and seq range",
			filter: "variable~L:A32NX_ELEC_*, seq>=4",
			want: []Row{
				{Seq: 4, Variable: "L:A32NX_ELEC_AC_1_BUS_IS_POWERED", Value: 0},
				{Seq: 4, Variable: "L:A32NX_ELEC_DC_1_BUS_IS_POWERED", Value: 1},
			},
		},
		{
			name:  "limit keeps seq order",
			limit: 2,
			want: []Row{
				{Seq: 1, Variable: "A:BUS CONNECTION ON:2 (Bool)", Value: 1},
				{Seq: 1, Variable: "L:A32NX_ELEC_AC_1_BUS_IS_POWERED", Value: 1},
			},
		},
		{
			name:   "no match",
			filter: "value>5",
			want:   []Row{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := queryir.ParseFilter(tt.filter)
			require.NoError(t, err)
			rows, err := s.QuerySamples(ctx, queryir.Query{Session: "s1", Filter: filter, Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}

	_, err := s.QuerySamples(ctx, queryir.Query{Session: "missing"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.QuerySamples(ctx, queryir.Query{Session: "s1", Limit: -1})
	assert.ErrorContains(t, err, "invalid query")
}

func TestRecorder_NonFiniteHostValueFailsWithOrWithoutTracing(t *testing.T) {
	sw := ir.Aircraft("SWITCH", "Bool", 1)
	relay := ir.Aspect("RELAY")

	build := func(t *testing.T, h *host.Memory, opts ...simulation.Option) *simulation.Simulation {
		t.Helper()
		opts = append(opts, simulation.WithLogger(testutil.DiscardLogger()))
		sim, err := simulation.New("A32NX_", h, opts...).
			WithAspect("relay", func(a *simulation.AspectBuilder) error {
				a.Copy(sw, relay)
				return nil
			}).
			Build(testutil.NopFactory())
		require.NoError(t, err)
		return sim
	}

	t.Run("untraced", func(t *testing.T) {
		h := host.NewMemory()
		h.Set(sw, math.NaN())
		err := build(t, h).Tick(context.Background(), 16*time.Millisecond)
		assert.True(t, engine.IsRuntimeError(err, engine.ErrCodeNonFiniteValue), "got %v", err)
	})

	t.Run("traced", func(t *testing.T) {
		ctx := context.Background()
		s := createTestStore(t)
		h := host.NewMemory()
		sim := build(t, h,
			simulation.WithRecorder(s.Recorder()),
			simulation.WithSessionIDGenerator(engine.NewFixedGenerator("nan")),
		)

		h.Set(sw, 1)
		require.NoError(t, sim.Tick(ctx, 16*time.Millisecond))

		h.Set(sw, math.NaN())
		err := sim.Tick(ctx, 16*time.Millisecond)
		assert.True(t, engine.IsRuntimeError(err, engine.ErrCodeNonFiniteValue), "got %v", err)
		assert.False(t, engine.IsRuntimeError(err, engine.ErrCodeRecordFailed))

		got, ok := sim.Value(relay)
		require.True(t, ok)
		assert.Equal(t, 1.0, got)

		ticks, err := s.ReadTicks(ctx, "nan")
		require.NoError(t, err)
		require.Len(t, ticks, 1, "the rejected tick is not recorded")
		assert.Equal(t, int64(1), ticks[0].Seq)
	})
}

func TestOpen_MemoryPath(t *testing.T) {
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	rec := s.Recorder()
	require.NoError(t, rec.BeginSession(context.Background(), testSession("mem")))
	sessions, err := s.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
