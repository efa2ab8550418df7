package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/wpine215/a32nx/internal/a32nx"
	"github.com/wpine215/a32nx/internal/compiler"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/model"
	"github.com/wpine215/a32nx/internal/simulation"
)

// Error code constants, shared by all commands.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No CUE files found
	ErrCodeLoadFailed     = "E004" // CUE load failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeBuildFailed    = "E006" // CUE build failed
	ErrCodeCompileFailed  = "E007" // Configuration does not compile
	ErrCodeSimulation     = "E008" // Simulation build or runtime error
	ErrCodeSessionMissing = "E009" // Trace session not found
)

// LoadError represents an error that occurred while loading a configuration.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadConfig compiles a configuration from a single .cue file or from every
// .cue file of a directory loaded as one CUE instance.
func LoadConfig(path string) (*compiler.Config, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("configuration not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing configuration: %v", err)}
	}

	if !info.IsDir() {
		if filepath.Ext(path) != ".cue" {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}
		}
		cfg, err := compiler.CompileFile(path)
		if err != nil {
			return nil, convertCompileError(err)
		}
		return cfg, nil
	}

	cueFiles, err := FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	cfg, err := compiler.CompileConfig(value)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return cfg, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// belong to other CUE packages and are not loaded.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message)
		for _, more := range compileErr.More {
			msg += "\n" + more.Error()
		}
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: msg,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// idleModel is used for configurations that come without a systems model:
// the aspects still run around a step that changes nothing.
func idleModel(*model.Context) (model.Model, error) {
	return model.StepFunc(func(time.Duration, model.Inputs, model.Outputs) error {
		return nil
	}), nil
}

// buildSimulation builds the simulation for configPath, or the built-in
// A32NX configuration with its systems model when configPath is empty.
func buildSimulation(configPath string, h host.Host, logger *slog.Logger, opts ...simulation.Option) (*simulation.Simulation, error) {
	opts = append([]simulation.Option{simulation.WithLogger(logger)}, opts...)
	if configPath == "" {
		logger.Debug("using built-in configuration", "prefix", a32nx.Prefix)
		return a32nx.New(h, opts...)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "path", configPath, "aspects", len(cfg.Aspects))
	opts = append(cfg.Options(), opts...)
	return cfg.Apply(simulation.New(cfg.Prefix, h, opts...)).Build(idleModel)
}
