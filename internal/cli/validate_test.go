package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/compiler"
)

func TestValidate_ValidConfigReportsWarnings(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.cue", relayConfig)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Configuration valid (1 aspect(s), 2 rule(s))")
	assert.Contains(t, out, "warning:")
}

func TestValidate_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.cue", relayConfig)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, "A32NX_", result.Prefix)
	assert.Equal(t, 2, result.Rules)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "warning", result.Warnings[0].Level)
}

func TestValidate_ReportsEveryError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.cue", `
prefix: "A32NX_"
electrical_bus: {AC_1: 2, AC_2: 99}
failures: [
	{code: 1, type: "TransformerRectifier(1)"},
	{code: 1, type: "TransformerRectifier(2)"},
]
aspect: a: rules: [
	{from: "L:X", to: "L:Y"},
	{from: "L:Z", to: "L:Y"},
]
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 3 error(s)")

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, compiler.ErrInvalidHostIndex, result.Errors[0].Code)
	assert.Equal(t, compiler.ErrDuplicateFailure, result.Errors[1].Code)
	assert.Equal(t, compiler.ErrConflictingDestination, result.Errors[2].Code)
	assert.Equal(t, compiler.ErrInvalidHostIndex, resp.Error.Code)
}

func TestValidate_CompileErrorHasLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", "prefix: \"A32NX_\"\nelectrical_bus: 5\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, ErrCodeCompileFailed)
}

func TestValidate_MissingConfig(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidate_RequiresPath(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
