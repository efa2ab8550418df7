package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/engine"
)

// runWithTrace runs the built-in configuration on external power with
// TR 1 failed, recording into a trace database in a temp dir.
func runWithTrace(t *testing.T, format string) (dbPath, out string, err error) {
	t.Helper()
	dbPath = filepath.Join(t.TempDir(), "trace.db")

	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		SessionIDs:  engine.NewFixedGenerator("session-1"),
	})
	out, err = execute(cmd,
		"--trace", dbPath,
		"--frames", "2",
		"--set", "A:EXTERNAL POWER AVAILABLE:1 (Bool)=1",
		"--set", "A:EXTERNAL POWER ON:1 (Bool)=1",
		"--activate", "24000",
		"--watch", "A:BUS CONNECTION ON:7 (Bool)",
		"--watch", "A:BUS CONNECTION ON:8 (Bool)",
		"--watch", "L:ELEC_DC_2_BUS_IS_POWERED",
	)
	return dbPath, out, err
}

func TestRun_BuiltInJSON(t *testing.T) {
	_, out, err := runWithTrace(t, "json")
	require.NoError(t, err)

	var result RunResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "session-1", result.SessionID)
	assert.NotEmpty(t, result.ConfigHash)
	assert.Equal(t, int64(3), result.Seq, "failure request and two frames")
	assert.Equal(t, int64(3), result.Events)
	assert.Equal(t, []string{"TransformerRectifier(1)"}, result.ActiveFailures)
	assert.Equal(t, map[string]float64{
		"A:BUS CONNECTION ON:7 (Bool)": 0,
		"A:BUS CONNECTION ON:8 (Bool)": 1,
		"L:ELEC_DC_2_BUS_IS_POWERED":   1,
	}, result.Values)
}

func TestRun_Text(t *testing.T) {
	_, out, err := runWithTrace(t, "text")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Ran 3 event(s), seq 3")
	assert.Contains(t, out, "Session: session-1")
	assert.Contains(t, out, "Active failures: TransformerRectifier(1)")
	assert.Contains(t, out, "VARIABLE")
	assert.Contains(t, out, "L:ELEC_DC_2_BUS_IS_POWERED")
}

func TestRun_WithoutTraceHasNoSession(t *testing.T) {
	out, err := execute(NewRunCommand(&RootOptions{Format: "json"}), "--frames", "1")
	require.NoError(t, err)

	var result RunResult
	decodeData(t, out, &result)
	assert.Empty(t, result.SessionID)
	assert.Equal(t, int64(1), result.Seq)
	assert.Empty(t, result.ActiveFailures)
}

func TestRun_ConfigFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.cue", relayConfig)

	out, err := execute(NewRunCommand(&RootOptions{Format: "json"}),
		"--config", path,
		"--frames", "1",
		"--set", "A:GEAR HANDLE POSITION:0 (Bool)=1",
		"--watch", "L:GEAR_HANDLE",
		"--watch", "A:BUS CONNECTION ON:7 (Bool)",
	)
	require.NoError(t, err)

	var result RunResult
	decodeData(t, out, &result)
	assert.Equal(t, map[string]float64{
		"L:GEAR_HANDLE":                1,
		"A:BUS CONNECTION ON:7 (Bool)": 0,
	}, result.Values)
}

func TestRun_UnknownFailureCodeIsNotFatal(t *testing.T) {
	out, err := execute(NewRunCommand(&RootOptions{Format: "json"}), "--frames", "1", "--activate", "99999")
	require.NoError(t, err)

	var result RunResult
	decodeData(t, out, &result)
	assert.Equal(t, int64(2), result.Seq)
	assert.Empty(t, result.ActiveFailures)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		code    int
		wantErr string
	}{
		{"bad assignment", []string{"--set", "L:X"}, ExitCommandError, "expected VARIABLE=VALUE"},
		{"bad value", []string{"--set", "L:X=abc"}, ExitCommandError, "invalid value"},
		{"bad variable", []string{"--set", "X:Y=1"}, ExitCommandError, "invalid --set"},
		{"bad watch", []string{"--watch", "GEAR"}, ExitCommandError, "invalid --watch"},
		{"negative frames", []string{"--frames", "-1"}, ExitCommandError, "frames must be non-negative"},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "nope.cue")}, ExitCommandError, "failed to load configuration"},
		{"positional args", []string{"extra"}, ExitFailure, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(NewRunCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.code, GetExitCode(err))
		})
	}
}

func TestRun_RuntimeErrorFails(t *testing.T) {
	path := writeFile(t, t.TempDir(), "overflow.cue", `
prefix: "A32NX_"
aspect: a: rules: [{from: "A:BIG:0 (Number)", to: "L:BIGGER", transform: {kind: "linear", scale: 10}}]
`)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--config", path,
		"--frames", "3",
		"--set", "A:BIG:0 (Number)=1e308",
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsRuntimeError(err, engine.ErrCodeNonFiniteValue), err)
	assert.Contains(t, out, "Error [NON_FINITE_VALUE]")
}

func TestParseAssignment(t *testing.T) {
	v, value, err := parseAssignment("A:EXTERNAL POWER ON:1 (Bool)= 1.5")
	require.NoError(t, err)
	assert.Equal(t, "A:EXTERNAL POWER ON:1 (Bool)", v.String())
	assert.Equal(t, 1.5, value)
}
