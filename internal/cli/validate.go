package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wpine215/a32nx/internal/compiler"
	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/simulation"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Prefix   string                     `json:"prefix"`
	Aspects  int                        `json:"aspects"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []engine.DependencyWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a CUE configuration",
		Long: `Validate a CUE configuration file or directory.

Reports every wiring, failure, provided-variable and aspect error instead of
stopping at the first one, then builds the configuration to report rules
that read a destination written in the same phase.

Exit codes:
  0 - Configuration valid
  1 - Validation errors
  2 - Configuration could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := LoadConfig(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		if loadErr.Code != ErrCodeCompileFailed {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		line := 0
		if loadErr.Pos.IsValid() {
			line = loadErr.Pos.Line()
		}
		return outputValidationErrors(formatter, ValidationResult{
			Errors: []compiler.ValidationError{{Field: "cue", Message: loadErr.Message, Code: loadErr.Code, Line: line}},
		})
	}

	result := ValidationResult{Prefix: cfg.Prefix, Aspects: len(cfg.Aspects)}
	for _, a := range cfg.Aspects {
		result.Rules += len(a.Rules)
	}
	formatter.VerboseLog("Loaded %d aspect(s) with %d rule(s) from %s", result.Aspects, result.Rules, path)

	result.Errors = compiler.Validate(cfg, host.DefaultLimits)
	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	sim, err := cfg.Apply(simulation.New(cfg.Prefix, host.NewMemory(),
		simulation.WithLogger(opts.Logger(formatter.GetErrWriter())),
	)).Build(idleModel)
	if err != nil {
		code := ErrCodeSimulation
		var cfgErr *ir.ConfigError
		if errors.As(err, &cfgErr) {
			code = cfgErr.Code
		}
		result.Errors = []compiler.ValidationError{{Field: "build", Message: err.Error(), Code: code}}
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	result.Warnings = sim.Warnings()
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Configuration valid (%d aspect(s), %d rule(s))\n", result.Aspects, result.Rules)
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "  %s: %s\n", warn.Level, warn.Message)
	}
	return nil
}

// outputValidateError reports a configuration that could not be loaded.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(w, "line %d\n", err.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
