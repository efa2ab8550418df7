package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
)

func ptr[T any](v T) *T { return &v }

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 tick events",
		Actual:   "1 tick events",
		Trace: []TraceEvent{
			{Type: EventTick, Seq: 1, DeltaMS: 16},
			{Type: EventFailure, Seq: 2, Code: 24000, Failure: "TransformerRectifier(1)", Active: true},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 tick events")
	assert.Contains(t, msg, "Actual: 1 tick events")
	assert.Contains(t, msg, "[1] tick 16ms")
	assert.Contains(t, msg, "[2] failure 24000 TransformerRectifier(1) active=true")
}

func TestAssertHost_Tolerance(t *testing.T) {
	h := &Harness{host: host.NewMemory()}
	v := ir.Aircraft("HYDRAULIC RESERVOIR PERCENT", "Percent", 1)
	h.host.Set(v, 93.103)

	assert.NoError(t, assertHost(h, Assertion{Type: AssertHost, Variable: &v, Value: ptr(93.1), Tolerance: 0.01}))
	assert.Error(t, assertHost(h, Assertion{Type: AssertHost, Variable: &v, Value: ptr(93.1)}))
}

func TestAssertions_WithoutSimulation(t *testing.T) {
	h := &Harness{host: host.NewMemory()}
	v := ir.Aspect("X")

	err := assertValue(h, Assertion{Type: AssertValue, Variable: &v, Value: ptr(1.0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build failed")

	err = assertFailureActive(h, Assertion{Type: AssertFailureActive, Failure: "TransformerRectifier(1)", Active: ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build failed")

	err = assertFailureActive(h, Assertion{Type: AssertFailureActive, Failure: "Nonsense", Active: ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_active")
}

func TestEvaluateAssertions_ErrorCode(t *testing.T) {
	h := &Harness{host: host.NewMemory()}
	result := NewResult()
	result.ErrorCode = "HOST_READ_FAILED"

	errs := EvaluateAssertions(result, []Assertion{{Type: AssertError, Code: "HOST_READ_FAILED"}}, h)
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{{Type: AssertError, Code: "HOST_WRITE_FAILED"}}, h)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Actual: HOST_READ_FAILED")

	errs = EvaluateAssertions(result, []Assertion{{Type: AssertTraceCount, Event: EventTick, Count: ptr(0)}}, h)
	assert.Equal(t, []string{"unexpected error HOST_READ_FAILED"}, errs)
}

func TestResult_Count(t *testing.T) {
	r := NewResult()
	r.Trace = []TraceEvent{{Type: EventTick}, {Type: EventFailure}, {Type: EventTick}}
	assert.Equal(t, 2, r.Count(EventTick))
	assert.Equal(t, 1, r.Count(EventFailure))

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
