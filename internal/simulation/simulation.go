package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
)

// Simulation owns the model, the variable storage, the compiled rule
// programs and the failure state. It is driven from a single goroutine.
type Simulation struct {
	prefix string
	host   host.Host
	logger *slog.Logger

	storage   *engine.Storage
	programs  [len(ir.Phases)]*engine.Program
	readSlots []int
	provided  map[ir.Variable]bool

	table  *failures.Table
	active *failures.Set

	model model.Model
	io    stepIO
	clock *engine.Clock

	wiring     ir.Wiring
	warnings   []engine.DependencyWarning
	configHash string
	aspects    []string

	recorder   engine.Recorder
	sessionIDs engine.SessionIDGenerator
	sessionID  string
}

// Tick runs one frame: host reads, PreTick, model step, PostTick, host
// writes. The first error aborts the tick and is returned as a
// *engine.RuntimeError carrying the tick sequence number.
func (s *Simulation) Tick(ctx context.Context, delta time.Duration) error {
	seq := s.clock.Tick(delta)
	s.logger.Debug("tick", "seq", seq, "delta", delta)

	if err := s.storage.ReadFrom(s.host, s.readSlots); err != nil {
		return stamp(err, seq)
	}

	if err := s.runPhase(ir.PreTick); err != nil {
		return stamp(err, seq)
	}

	s.io.violation = nil
	stepErr := s.model.Step(delta, &s.io, &s.io)
	if s.io.violation != nil {
		return stamp(s.io.violation, seq)
	}
	if stepErr != nil {
		return &engine.RuntimeError{
			Code:    engine.ErrCodeModelStepFailed,
			Message: "model step failed",
			Seq:     seq,
			Stage:   engine.StageStep,
			Err:     stepErr,
		}
	}

	if err := s.runPhase(ir.PostTick); err != nil {
		return stamp(err, seq)
	}

	if s.recorder != nil {
		if err := s.recordTick(ctx, seq, delta); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) runPhase(phase ir.Phase) error {
	p := s.programs[phase]
	if err := p.Run(s.storage); err != nil {
		return err
	}
	if err := s.storage.WriteTo(s.host, p.HostDestinations()); err != nil {
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			re.Stage = engine.PhaseStage(phase)
		}
		return err
	}
	return nil
}

// stamp sets the tick sequence number on a RuntimeError.
func stamp(err error, seq int64) error {
	var re *engine.RuntimeError
	if errors.As(err, &re) && re.Seq == 0 {
		re.Seq = seq
	}
	return err
}

// ActivateFailure activates the failure bound to code. An unknown code
// returns an error matching failures.ErrUnknownFailureCode and leaves the
// active set unchanged.
func (s *Simulation) ActivateFailure(code int) (failures.Type, error) {
	ft, _, err := s.setFailure(code, true)
	return ft, err
}

// DeactivateFailure deactivates the failure bound to code.
func (s *Simulation) DeactivateFailure(code int) (failures.Type, error) {
	ft, _, err := s.setFailure(code, false)
	return ft, err
}

func (s *Simulation) setFailure(code int, active bool) (failures.Type, bool, error) {
	ft, err := s.table.Lookup(code)
	if err != nil {
		return failures.Type{}, false, err
	}
	var changed bool
	if active {
		changed = s.active.Activate(ft)
	} else {
		changed = s.active.Deactivate(ft)
	}
	if changed {
		s.logger.Info("failure state changed", "code", code, "failure", ft.String(), "active", active)
	}
	return ft, changed, nil
}

// IsFailureActive reports whether ft is active.
func (s *Simulation) IsFailureActive(ft failures.Type) bool {
	return s.active.IsActive(ft)
}

// ActiveFailures returns the active failures in a stable order.
func (s *Simulation) ActiveFailures() []failures.Type {
	return s.active.Active()
}

// Failures returns the failure table.
func (s *Simulation) Failures() *failures.Table { return s.table }

// Value returns the stored value of v and whether the simulation knows v.
func (s *Simulation) Value(v ir.Variable) (float64, bool) {
	return s.storage.Value(v)
}

// Variables returns every variable the simulation stores, in slot order.
func (s *Simulation) Variables() []ir.Variable {
	return s.storage.Variables()
}

// IsProvided reports whether the model may read the host variable v.
func (s *Simulation) IsProvided(v ir.Variable) bool {
	return s.provided[v]
}

// QualifiedName returns the host-facing name of v: "L:<prefix><NAME>" for
// aspect variables, the address for host variables.
func (s *Simulation) QualifiedName(v ir.Variable) string {
	return v.Qualified(s.prefix)
}

// Prefix returns the aspect variable prefix.
func (s *Simulation) Prefix() string { return s.prefix }

// Rules returns the rules of phase in execution order.
func (s *Simulation) Rules(phase ir.Phase) []ir.Rule {
	return s.programs[phase].Rules()
}

// Aspects returns the configured aspect names in registration order.
func (s *Simulation) Aspects() []string {
	out := make([]string, len(s.aspects))
	copy(out, s.aspects)
	return out
}

// Wiring returns the electrical bus and APU wiring.
func (s *Simulation) Wiring() ir.Wiring { return s.wiring }

// Warnings returns the rule dependency warnings found at build time.
func (s *Simulation) Warnings() []engine.DependencyWarning {
	out := make([]engine.DependencyWarning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// ConfigHash returns the content hash of the build configuration.
func (s *Simulation) ConfigHash() string { return s.configHash }

// Seq returns the sequence number of the last tick or failure event.
func (s *Simulation) Seq() int64 { return s.clock.Current() }

// Elapsed returns the simulated time of every tick so far.
func (s *Simulation) Elapsed() time.Duration { return s.clock.Elapsed() }

// SessionID returns the recording session id, empty until the first record.
func (s *Simulation) SessionID() string { return s.sessionID }

func (s *Simulation) beginSession(ctx context.Context) error {
	if s.sessionID != "" {
		return nil
	}
	id := s.sessionIDs.Generate()
	err := s.recorder.BeginSession(ctx, engine.Session{
		ID:         id,
		Prefix:     s.prefix,
		ConfigHash: s.configHash,
		Version:    ir.BridgeVersion,
	})
	if err != nil {
		return err
	}
	s.sessionID = id
	return nil
}

func (s *Simulation) recordTick(ctx context.Context, seq int64, delta time.Duration) error {
	if err := s.beginSession(ctx); err != nil {
		return recordError(seq, err)
	}
	samples := make([]engine.Sample, s.storage.Len())
	for slot := range samples {
		samples[slot] = engine.Sample{
			Variable: s.QualifiedName(s.storage.Variable(slot)),
			Value:    s.storage.Load(slot),
		}
	}
	if err := s.recorder.RecordTick(ctx, engine.TickRecord{Seq: seq, Delta: delta, Samples: samples}); err != nil {
		return recordError(seq, err)
	}
	return nil
}

func (s *Simulation) recordFailure(ctx context.Context, seq int64, code int, ft failures.Type, active, changed bool) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.beginSession(ctx); err != nil {
		return recordError(seq, err)
	}
	rec := engine.FailureRecord{Seq: seq, Code: code, Active: active, Changed: changed}
	if !ft.IsZero() {
		rec.Type = ft.String()
	}
	if err := s.recorder.RecordFailure(ctx, rec); err != nil {
		return recordError(seq, err)
	}
	return nil
}

func recordError(seq int64, err error) *engine.RuntimeError {
	return &engine.RuntimeError{
		Code:    engine.ErrCodeRecordFailed,
		Message: "trace recorder failed",
		Seq:     seq,
		Stage:   engine.StageRecord,
		Err:     err,
	}
}

// stepIO is the model's view of storage during one step.
type stepIO struct {
	sim       *Simulation
	violation *engine.RuntimeError
}

func (io *stepIO) Read(v ir.Variable) (float64, error) {
	if v.IsAircraft() && !io.sim.provided[v] {
		return 0, io.violate(&engine.RuntimeError{
			Code:     engine.ErrCodeNotProvided,
			Message:  "model read a host variable that is not provided",
			Stage:    engine.StageStep,
			Variable: v,
		})
	}
	value, ok := io.sim.storage.Value(v)
	if !ok {
		return 0, io.violate(&engine.RuntimeError{
			Code:     engine.ErrCodeUnknownVariable,
			Message:  "model read an undeclared variable",
			Stage:    engine.StageStep,
			Variable: v,
		})
	}
	return value, nil
}

func (io *stepIO) Write(v ir.Variable, value float64) error {
	slot, ok := io.sim.storage.Slot(v)
	if !ok || !v.IsAspect() {
		return io.violate(&engine.RuntimeError{
			Code:     engine.ErrCodeUnknownVariable,
			Message:  "model wrote a variable that is not a declared aspect variable",
			Stage:    engine.StageStep,
			Variable: v,
		})
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return io.violate(&engine.RuntimeError{
			Code:     engine.ErrCodeNonFiniteValue,
			Message:  fmt.Sprintf("model wrote %v", value),
			Stage:    engine.StageStep,
			Variable: v,
		})
	}
	io.sim.storage.Store(slot, value)
	return nil
}

func (io *stepIO) violate(err *engine.RuntimeError) error {
	if io.violation == nil {
		io.violation = err
	}
	return err
}
