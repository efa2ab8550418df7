package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/simulation"
	"github.com/wpine215/a32nx/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Trace    string
	Frames   int
	Delta    time.Duration
	Seed     uint64
	Set      []string // "VARIABLE=VALUE"
	Activate []int    // failure codes activated before the first frame
	Watch    []string

	// SessionIDs overrides the UUIDv7 session ID generator (for testing).
	SessionIDs engine.SessionIDGenerator
}

// RunResult summarizes a finished run.
type RunResult struct {
	SessionID      string             `json:"session_id,omitempty"`
	ConfigHash     string             `json:"config_hash"`
	Seq            int64              `json:"seq"`
	Events         int64              `json:"events"`
	ActiveFailures []string           `json:"active_failures"`
	Values         map[string]float64 `json:"values,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation against an in-memory host",
		Long: `Run a fixed number of frames against an in-memory host.

Without --config the built-in A32NX configuration and reference systems
model are used. A configuration given with --config runs its aspects around
an idle model. With --trace every tick is recorded into a SQLite database.

Examples:
  a32nx-systems run --frames 120 --set "A:EXTERNAL POWER AVAILABLE:1 (Bool)=1"
  a32nx-systems run --activate 24000 --watch "L:ELEC_DC_1_BUS_IS_POWERED"
  a32nx-systems run --config ./aircraft --trace ./trace.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE configuration file or directory (default: built-in A32NX)")
	cmd.Flags().StringVar(&opts.Trace, "trace", "", "path to SQLite trace database")
	cmd.Flags().IntVar(&opts.Frames, "frames", 60, "number of frames to run")
	cmd.Flags().DurationVar(&opts.Delta, "delta", 16*time.Millisecond, "frame delta")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "model random seed")
	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "initial host value VARIABLE=VALUE (repeatable)")
	cmd.Flags().IntSliceVar(&opts.Activate, "activate", nil, "failure codes to activate before the first frame")
	cmd.Flags().StringArrayVar(&opts.Watch, "watch", nil, "variable to report after the run (repeatable)")

	return cmd
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	if opts.Frames < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("frames must be non-negative, got %d", opts.Frames))
	}
	if opts.Delta < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("delta must be non-negative, got %s", opts.Delta))
	}

	mem := host.NewMemory()
	for _, assignment := range opts.Set {
		v, value, err := parseAssignment(assignment)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --set", err)
		}
		mem.Set(v, value)
	}
	watch := make([]ir.Variable, 0, len(opts.Watch))
	for _, s := range opts.Watch {
		v, err := ir.ParseVariable(s)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --watch", err)
		}
		watch = append(watch, v)
	}

	simOpts := []simulation.Option{simulation.WithSeed(opts.Seed)}
	if opts.SessionIDs != nil {
		simOpts = append(simOpts, simulation.WithSessionIDGenerator(opts.SessionIDs))
	}
	if opts.Trace != "" {
		logger.Info("opening trace database", "path", opts.Trace)
		st, err := store.Open(opts.Trace)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing trace database", "error", closeErr)
			}
		}()
		simOpts = append(simOpts, simulation.WithRecorder(st.Recorder()))
	}

	sim, err := buildSimulation(opts.Config, mem, logger, simOpts...)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		return WrapExitError(ExitFailure, "failed to build simulation", err)
	}
	for _, w := range sim.Warnings() {
		logger.Warn("rule dependency", "level", w.Level, "message", w.Message)
	}

	queue := host.NewQueue()
	for _, code := range opts.Activate {
		queue.Enqueue(host.ActivateFailure(code))
	}
	for range opts.Frames {
		queue.Enqueue(host.Frame(opts.Delta))
	}
	queue.Close()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	handler := simulation.NewHandler(simulation.WithHandlerLogger(logger))
	err = handler.Run(ctx, queue, sim)
	if err != nil && !errors.Is(err, context.Canceled) {
		code := ErrCodeSimulation
		var rtErr *engine.RuntimeError
		if errors.As(err, &rtErr) {
			code = string(rtErr.Code)
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	result := RunResult{
		SessionID:      sim.SessionID(),
		ConfigHash:     sim.ConfigHash(),
		Seq:            sim.Seq(),
		Events:         handler.Events(),
		ActiveFailures: []string{},
	}
	for _, ft := range sim.ActiveFailures() {
		result.ActiveFailures = append(result.ActiveFailures, ft.String())
	}
	if len(watch) > 0 {
		result.Values = make(map[string]float64, len(watch))
		for _, v := range watch {
			if value, ok := watchedValue(sim, mem, v); ok {
				result.Values[v.String()] = value
			}
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputRunText(formatter, result, opts.Watch)
}

// parseAssignment parses "VARIABLE=VALUE". The last '=' separates the value
// so variable names may contain '='.
func parseAssignment(s string) (ir.Variable, float64, error) {
	i := strings.LastIndex(s, "=")
	if i < 0 {
		return ir.Variable{}, 0, fmt.Errorf("expected VARIABLE=VALUE, got %q", s)
	}
	v, err := ir.ParseVariable(s[:i])
	if err != nil {
		return ir.Variable{}, 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
	if err != nil {
		return ir.Variable{}, 0, fmt.Errorf("invalid value in %q: %w", s, err)
	}
	return v, value, nil
}

// watchedValue reads aspect variables from simulation storage and aircraft
// variables from the host.
func watchedValue(sim *simulation.Simulation, mem *host.Memory, v ir.Variable) (float64, bool) {
	if v.IsAspect() {
		return sim.Value(v)
	}
	return mem.Get(v)
}

func outputRunText(formatter *OutputFormatter, result RunResult, watched []string) error {
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Ran %d event(s), seq %d\n", result.Events, result.Seq)
	if result.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", result.SessionID)
	}
	fmt.Fprintf(w, "Config hash: %s\n", result.ConfigHash)
	if len(result.ActiveFailures) > 0 {
		fmt.Fprintf(w, "Active failures: %s\n", strings.Join(result.ActiveFailures, ", "))
	}
	if len(watched) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(watched))
	for _, s := range watched {
		v, _ := ir.ParseVariable(s)
		value, ok := result.Values[v.String()]
		cell := "unknown"
		if ok {
			cell = strconv.FormatFloat(value, 'g', -1, 64)
		}
		rows = append(rows, []string{v.String(), cell})
	}
	fmt.Fprintln(w)
	return formatter.Table([]string{"VARIABLE", "VALUE"}, rows)
}
