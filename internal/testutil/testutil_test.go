package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/ir"
)

type mapIO map[ir.Variable]float64

func (m mapIO) Read(v ir.Variable) (float64, error) { return m[v], nil }

func (m mapIO) Write(v ir.Variable, value float64) error {
	m[v] = value
	return nil
}

func TestScriptedModel(t *testing.T) {
	in, out := ir.Aspect("IN"), ir.Aspect("OUT")
	m := &ScriptedModel{
		Copies: []Copy{{From: in, To: out, Scale: 2}},
		Writes: map[ir.Variable]float64{ir.Aspect("K"): 7},
	}
	io := mapIO{in: 3}

	require.NoError(t, m.Step(time.Second, io, io))
	assert.Equal(t, 6.0, io[out])
	assert.Equal(t, 7.0, io[ir.Aspect("K")])
	assert.Equal(t, 1, m.Steps)
	assert.Equal(t, 3.0, m.Seen[in])

	m.Err = errors.New("boom")
	assert.Error(t, m.Step(time.Second, io, io))
}

func TestFactoryCountsCalls(t *testing.T) {
	calls := 0
	f := Factory(&ScriptedModel{}, &calls)
	_, err := f(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMemoryRecorder(t *testing.T) {
	r := &MemoryRecorder{}
	ctx := context.Background()
	require.NoError(t, r.BeginSession(ctx, engine.Session{ID: "s"}))
	require.NoError(t, r.RecordTick(ctx, engine.TickRecord{Seq: 1, Samples: []engine.Sample{{Variable: "L:A", Value: 1}}}))

	v, ok := r.Sample(1, "L:A")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	_, ok = r.Sample(2, "L:A")
	assert.False(t, ok)

	r.Err = errors.New("disk full")
	assert.Error(t, r.RecordFailure(ctx, engine.FailureRecord{}))
}
