package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/testutil"
)

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "relay.cue", relayConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "A32NX_", cfg.Prefix)
	require.Len(t, cfg.Aspects, 1)
	assert.Len(t, cfg.Aspects[0].Rules, 2)
}

func TestLoadConfig_DirectoryUnifiesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "wiring.cue", `
package aircraft

prefix: "A32NX_"
electrical_bus: {AC_1: 2}
`)
	writeFile(t, dir, "aspects.cue", `
package aircraft

aspect: relay: rules: [{from: "A:SWITCH:1 (Bool)", to: "L:RELAY"}]
`)
	writeFile(t, dir, "nested/ignored.cue", `package other`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "A32NX_", cfg.Prefix)
	assert.Equal(t, []ir.ElectricalBusBinding{{Name: "AC_1", HostIndex: 2}}, cfg.Buses)
	require.Len(t, cfg.Aspects, 1)
	assert.Equal(t, "relay", cfg.Aspects[0].Name)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	emptyDir := filepath.Join(dir, "empty")
	writeFile(t, emptyDir, "README.md", "nothing here")
	yamlFile := writeFile(t, dir, "config.yaml", "prefix: A32NX_")
	badFile := writeFile(t, dir, "bad.cue", "electrical_bus: 5\n")

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", filepath.Join(dir, "missing.cue"), ErrCodeNotFound},
		{"no cue files", emptyDir, ErrCodeNoFiles},
		{"not a cue file", yamlFile, ErrCodeNoFiles},
		{"does not compile", badFile, ErrCodeCompileFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.path)
			require.Error(t, err)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr), err)
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadError_Error(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())
}

func TestBuildSimulation(t *testing.T) {
	logger := testutil.DiscardLogger()

	t.Run("built-in", func(t *testing.T) {
		sim, err := buildSimulation("", host.NewMemory(), logger)
		require.NoError(t, err)
		assert.Equal(t, "A32NX_", sim.Prefix())
		assert.Contains(t, sim.Aspects(), "overhead")
	})

	t.Run("configuration with idle model", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "relay.cue", relayConfig)
		mem := host.NewMemory()
		mem.Set(ir.Aircraft("GEAR HANDLE POSITION", "Bool", 0), 1)

		sim, err := buildSimulation(path, mem, logger)
		require.NoError(t, err)
		assert.Equal(t, []string{"relay"}, sim.Aspects())
		assert.NotEmpty(t, sim.Warnings())
	})

	t.Run("load error", func(t *testing.T) {
		_, err := buildSimulation(filepath.Join(t.TempDir(), "nope.cue"), host.NewMemory(), logger)
		var loadErr *LoadError
		assert.True(t, errors.As(err, &loadErr))
	})
}
