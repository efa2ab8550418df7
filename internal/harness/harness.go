package harness

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/wpine215/a32nx/internal/a32nx"
	"github.com/wpine215/a32nx/internal/compiler"
	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
	"github.com/wpine215/a32nx/internal/simulation"
	"github.com/wpine215/a32nx/internal/store"
	"github.com/wpine215/a32nx/internal/testutil"
)

// Harness executes one scenario against a fresh simulation.
type Harness struct {
	store   *store.Store
	host    *host.Memory
	sim     *simulation.Simulation
	handler *simulation.Handler
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger handed to the simulation. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// SessionID returns the session ID recorded for a scenario.
func SessionID(scenario *Scenario) string {
	return "scenario-" + scenario.Name
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh memory host and an in-memory trace
// store. The session ID is fixed, so identical scenarios produce identical
// traces.
//
// Execution flow:
// 1. Build the simulation from the aircraft or configuration
// 2. Seed the host with the initial values
// 3. Apply events until the list ends or a runtime error stops the run
// 4. Read the trace back from the store
// 5. Evaluate assertions
//
// A configuration error from the build is a result, not an error, when the
// scenario asserts its code.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		host:    host.NewMemory(),
		handler: simulation.NewHandler(simulation.WithHandlerLogger(o.logger)),
		logger:  o.logger,
	}
	for _, hv := range scenario.Host {
		h.host.Set(hv.Variable, hv.Value)
	}

	ctx := context.Background()
	result := NewResult()

	h.sim, err = h.build(scenario)
	if err != nil {
		var cfgErr *ir.ConfigError
		if !errors.As(err, &cfgErr) || !expectsErrorCode(scenario.Assertions) {
			return nil, fmt.Errorf("failed to build simulation: %w", err)
		}
		result.ErrorCode = cfgErr.Code
	} else {
		if err := h.execute(ctx, scenario.Events); err != nil {
			var rtErr *engine.RuntimeError
			if !errors.As(err, &rtErr) {
				return nil, fmt.Errorf("failed to execute events: %w", err)
			}
			result.ErrorCode = string(rtErr.Code)
		}

		trace, err := h.readTrace(ctx, scenario.Record)
		if err != nil {
			return nil, fmt.Errorf("failed to read trace: %w", err)
		}
		result.Trace = trace
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) build(scenario *Scenario) (*simulation.Simulation, error) {
	var (
		cfg *compiler.Config
		err error
	)
	switch {
	case scenario.Config != "":
		cfg, err = compiler.CompileString(scenario.Config, scenario.Name+".cue")
	case scenario.ConfigFile != "":
		cfg, err = compiler.CompileFile(scenario.ConfigFile)
	}
	if err != nil {
		return nil, fmt.Errorf("compile configuration: %w", err)
	}

	settings := model.Settings{}
	if cfg != nil {
		maps.Copy(settings, cfg.Settings)
	}
	maps.Copy(settings, scenario.Settings)

	opts := []simulation.Option{
		simulation.WithLogger(h.logger),
		simulation.WithSeed(scenario.Seed),
		simulation.WithSettings(settings),
		simulation.WithRecorder(h.store.Recorder()),
		simulation.WithSessionIDGenerator(engine.NewFixedGenerator(SessionID(scenario))),
	}

	factory := scriptedFactory(scenario.Model)
	if cfg == nil {
		if factory == nil {
			factory = a32nx.NewSystems
		}
		return a32nx.Configure(simulation.New(a32nx.Prefix, h.host, opts...)).Build(factory)
	}
	if factory == nil {
		factory = testutil.NopFactory()
	}
	return cfg.Apply(simulation.New(cfg.Prefix, h.host, opts...)).Build(factory)
}

func scriptedFactory(spec *ModelSpec) model.Factory {
	if spec == nil {
		return nil
	}
	m := &testutil.ScriptedModel{}
	for _, c := range spec.Copies {
		m.Copies = append(m.Copies, testutil.Copy{From: c.From, To: c.To, Scale: c.Scale})
	}
	if len(spec.Writes) > 0 {
		m.Writes = make(map[ir.Variable]float64, len(spec.Writes))
		for _, w := range spec.Writes {
			m.Writes[w.Variable] = w.Value
		}
	}
	return testutil.Factory(m, nil)
}

// execute applies the events through the simulation handler, the same path
// host events take in production.
func (h *Harness) execute(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		switch {
		case step.Frame != 0:
			for n := 0; n < max(step.Repeat, 1); n++ {
				if err := h.handler.Handle(ctx, host.Frame(time.Duration(step.Frame)), h.sim); err != nil {
					return err
				}
			}
		case len(step.Set) > 0:
			for _, hv := range step.Set {
				h.host.Set(hv.Variable, hv.Value)
			}
		case step.ActivateFailure != nil:
			if err := h.handler.Handle(ctx, host.ActivateFailure(*step.ActivateFailure), h.sim); err != nil {
				return err
			}
		case step.DeactivateFailure != nil:
			if err := h.handler.Handle(ctx, host.DeactivateFailure(*step.DeactivateFailure), h.sim); err != nil {
				return err
			}
		}
		h.logger.Debug("scenario step applied", "step", i, "seq", h.sim.Seq())
	}
	return nil
}

// readTrace merges the recorded ticks and failure requests by seq. Only
// the variables in record are kept when record is non-empty.
func (h *Harness) readTrace(ctx context.Context, record []string) ([]TraceEvent, error) {
	sessionID := h.sim.SessionID()
	if sessionID == "" {
		return []TraceEvent{}, nil
	}

	ticks, err := h.store.ReadTicks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	failureRecords, err := h.store.ReadFailures(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	keep := func(string) bool { return true }
	if len(record) > 0 {
		keep = func(name string) bool { return slices.Contains(record, name) }
	}

	trace := make([]TraceEvent, 0, len(ticks)+len(failureRecords))
	for _, t := range ticks {
		event := TraceEvent{
			Type:    EventTick,
			Seq:     t.Seq,
			DeltaMS: t.Delta.Milliseconds(),
			Values:  make(map[string]float64),
		}
		for _, s := range t.Samples {
			if keep(s.Variable) {
				event.Values[s.Variable] = s.Value
			}
		}
		trace = append(trace, event)
	}
	for _, f := range failureRecords {
		trace = append(trace, TraceEvent{
			Type:    EventFailure,
			Seq:     f.Seq,
			Code:    f.Code,
			Failure: f.Type,
			Active:  f.Active,
			Changed: f.Changed,
		})
	}
	slices.SortFunc(trace, func(a, b TraceEvent) int { return cmp.Compare(a.Seq, b.Seq) })
	return trace, nil
}
