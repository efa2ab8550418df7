package simulation

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/wpine215/a32nx/internal/engine"
	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
)

// Builder assembles a Simulation. Every method returns the receiver so calls
// can be chained; the first error is retained and later calls do nothing.
type Builder struct {
	prefix string
	host   host.Host
	opts   options
	err    error

	buses    []ir.ElectricalBusBinding
	busNames map[string]bool
	apu      *ir.AuxiliaryPowerUnitBinding

	failureBindings []failures.Binding
	failureCodes    map[int]bool

	provided      []ir.ProvidedVariable
	providedIndex map[ir.Variable]bool

	rules   []ir.Rule
	aspects []string

	built bool
}

// New creates a Builder for the given host. prefix is prepended to aspect
// variable names when they are exposed on the host ("A32NX_").
func New(prefix string, h host.Host, opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Builder{
		prefix:        prefix,
		host:          h,
		opts:          o,
		busNames:      make(map[string]bool),
		failureCodes:  make(map[int]bool),
		providedIndex: make(map[ir.Variable]bool),
	}
	if h == nil {
		b.err = ir.NewConfigError(ir.ErrCodeInvalidHostIndex, "no host given")
	}
	return b
}

// Err returns the first configuration error, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
		b.opts.logger.Debug("builder error", "error", err)
	}
	return b
}

// WithElectricalBus binds the named bus to a host bus connection index.
func (b *Builder) WithElectricalBus(name string, hostIndex int) *Builder {
	if b.err != nil {
		return b
	}
	binding := ir.ElectricalBusBinding{Name: strings.TrimSpace(name), HostIndex: hostIndex}
	if binding.Name == "" {
		return b.fail(ir.NewConfigError(ir.ErrCodeInvalidVariable, "electrical bus with empty name"))
	}
	if b.busNames[binding.Name] {
		return b.fail(ir.NewConfigError(ir.ErrCodeDuplicateBus, "electrical bus %q already bound", name))
	}
	if err := b.host.CheckIndex(host.IndexElectricalBus, hostIndex); err != nil {
		return b.fail(&ir.ConfigError{
			Code:    ir.ErrCodeInvalidHostIndex,
			Message: fmt.Sprintf("electrical bus %q", name),
			Err:     err,
		})
	}
	b.busNames[binding.Name] = true
	b.buses = append(b.buses, binding)
	return b
}

// WithElectricalBuses binds every bus in order.
func (b *Builder) WithElectricalBuses(buses []ir.ElectricalBusBinding) *Builder {
	for _, bus := range buses {
		b.WithElectricalBus(bus.Name, bus.HostIndex)
	}
	return b
}

// WithAuxiliaryPowerUnit binds the APU availability variable to the fuel
// valve feeding the APU. At most one APU may be bound.
func (b *Builder) WithAuxiliaryPowerUnit(isAvailableVariable string, fuelValveNumber int) *Builder {
	if b.err != nil {
		return b
	}
	if b.apu != nil {
		return b.fail(ir.NewConfigError(ir.ErrCodeDuplicateAPU,
			"auxiliary power unit already bound to %q", b.apu.IsAvailableVariable))
	}
	binding := ir.AuxiliaryPowerUnitBinding{IsAvailableVariable: isAvailableVariable, FuelValveNumber: fuelValveNumber}
	if !binding.AvailableVariable().Valid() {
		return b.fail(ir.NewConfigError(ir.ErrCodeInvalidVariable, "auxiliary power unit availability variable is empty"))
	}
	if err := b.host.CheckIndex(host.IndexFuelValve, fuelValveNumber); err != nil {
		return b.fail(&ir.ConfigError{
			Code:    ir.ErrCodeInvalidHostIndex,
			Message: "auxiliary power unit fuel valve",
			Err:     err,
		})
	}
	b.apu = &binding
	return b
}

// WithFailures appends failure bindings. Codes must be unique across calls.
func (b *Builder) WithFailures(bindings []failures.Binding) *Builder {
	for _, fb := range bindings {
		b.WithFailure(fb.Code, fb.Type)
	}
	return b
}

// WithFailure binds one external failure code.
func (b *Builder) WithFailure(code int, ft failures.Type) *Builder {
	if b.err != nil {
		return b
	}
	if ft.IsZero() {
		return b.fail(ir.NewConfigError(ir.ErrCodeInvalidFailureType, "failure code %d has no failure type", code))
	}
	if b.failureCodes[code] {
		return b.fail(ir.NewConfigError(ir.ErrCodeDuplicateFailureCode, "failure code %d already bound", code))
	}
	b.failureCodes[code] = true
	b.failureBindings = append(b.failureBindings, failures.Binding{Code: code, Type: ft})
	return b
}

// ProvidesAircraftVariable lets the model read the host variable
// (name, unit, index). Registering the same triple twice is an error; the
// first registration stands.
func (b *Builder) ProvidesAircraftVariable(name, unit string, index int) *Builder {
	return b.ProvidesVariable(ir.ProvidedVariable{Variable: ir.Aircraft(name, unit, index)})
}

// ProvidesVariable registers p, whose Initial value seeds the variable until
// the first host read.
func (b *Builder) ProvidesVariable(p ir.ProvidedVariable) *Builder {
	if b.err != nil {
		return b
	}
	v := p.Variable
	if !v.IsAircraft() || !v.Valid() {
		return b.fail(&ir.ConfigError{
			Code:     ir.ErrCodeInvalidVariable,
			Message:  fmt.Sprintf("provided variable %s must be a host variable with name and unit", v),
			Variable: v,
		})
	}
	if math.IsNaN(p.Initial) || math.IsInf(p.Initial, 0) {
		return b.fail(&ir.ConfigError{
			Code:     ir.ErrCodeInvalidVariable,
			Message:  fmt.Sprintf("provided variable %s has non-finite initial value", v),
			Variable: v,
		})
	}
	if b.providedIndex[v] {
		return b.fail(&ir.ConfigError{
			Code:     ir.ErrCodeDuplicateVariable,
			Message:  fmt.Sprintf("variable %s already provided", v),
			Variable: v,
		})
	}
	b.providedIndex[v] = true
	b.provided = append(b.provided, p)
	return b
}

// WithAspect runs fn against a fresh AspectBuilder and keeps its rules.
// An error returned by fn or recorded by the handle fails the build with
// ASPECT_FAILED.
func (b *Builder) WithAspect(name string, fn AspectFunc) *Builder {
	if b.err != nil {
		return b
	}
	a := &AspectBuilder{name: name}
	if err := fn(a); err != nil {
		return b.fail(errAspectFailed(name, err))
	}
	if a.err != nil {
		return b.fail(errAspectFailed(name, a.err))
	}
	for _, p := range a.provided {
		if b.ProvidesVariable(p); b.err != nil {
			var cfgErr *ir.ConfigError
			if errors.As(b.err, &cfgErr) && cfgErr.Aspect == "" {
				cfgErr.Aspect = name
			}
			return b
		}
	}
	b.rules = append(b.rules, a.rules...)
	b.aspects = append(b.aspects, name)
	b.opts.logger.Debug("aspect configured", "aspect", name, "rules", len(a.rules))
	return b
}

// wiringRules derives the PostTick copies implied by the wiring table.
func (b *Builder) wiringRules() []ir.Rule {
	rules := make([]ir.Rule, 0, len(b.buses)+1)
	for _, bus := range b.buses {
		rules = append(rules, ir.Rule{
			Kind:        ir.RuleCopy,
			Phase:       ir.PostTick,
			Source:      bus.PoweredVariable(),
			Destination: bus.HostVariable(),
			Aspect:      "electrical",
		})
	}
	if b.apu != nil {
		rules = append(rules, ir.Rule{
			Kind:        ir.RuleCopy,
			Phase:       ir.PostTick,
			Source:      b.apu.AvailableVariable(),
			Destination: b.apu.HostVariable(),
			Aspect:      "auxiliary_power_unit",
		})
	}
	return rules
}

// Build validates the configuration and constructs the Simulation. The
// factory is not invoked when any configuration error exists, and is invoked
// exactly once otherwise. Build is terminal: later calls fail with
// ALREADY_BUILT.
func (b *Builder) Build(factory model.Factory) (*Simulation, error) {
	if b.built {
		return nil, ir.NewConfigError(ir.ErrCodeAlreadyBuilt, "builder already built a simulation")
	}
	b.built = true
	if b.err != nil {
		return nil, b.err
	}
	if factory == nil {
		return nil, ir.NewConfigError(ir.ErrCodeMissingModelFactory, "no model factory given")
	}
	logger := b.opts.logger

	rules := slices.Concat(b.rules, b.wiringRules())
	storage := engine.NewStorage()

	var programs [len(ir.Phases)]*engine.Program
	for _, phase := range ir.Phases {
		var phaseRules []ir.Rule
		for _, r := range rules {
			if r.Phase == phase {
				phaseRules = append(phaseRules, r)
			}
		}
		p, err := engine.Compile(phase, phaseRules, storage)
		if err != nil {
			return nil, err
		}
		programs[phase] = p
	}

	provided := make(map[ir.Variable]bool, len(b.provided))
	var readSlots []int
	seen := make(map[int]bool)
	addRead := func(slot int) {
		if !seen[slot] {
			seen[slot] = true
			readSlots = append(readSlots, slot)
		}
	}
	for _, p := range b.provided {
		slot := storage.Intern(p.Variable)
		storage.Store(slot, p.Initial)
		provided[p.Variable] = true
		addRead(slot)
	}
	for _, p := range programs {
		for _, slot := range p.HostSources() {
			addRead(slot)
		}
	}

	table, err := failures.NewTable(b.failureBindings)
	if err != nil {
		return nil, err
	}

	wiring := ir.Wiring{Buses: slices.Clone(b.buses)}
	if b.apu != nil {
		apu := *b.apu
		wiring.APU = &apu
	}

	doc := ir.ConfigDocument{
		Prefix:   b.prefix,
		Wiring:   wiring,
		Provided: slices.Clone(b.provided),
		Rules:    rules,
	}
	for _, fb := range b.failureBindings {
		doc.Failures = append(doc.Failures, ir.FailureEntry{Code: fb.Code, Type: fb.Type.String()})
	}
	configHash, err := ir.ConfigHash(doc)
	if err != nil {
		return nil, &ir.ConfigError{Code: ir.ErrCodeInvalidVariable, Message: "configuration is not hashable", Err: err}
	}

	warnings := engine.AnalyzeDependencies(rules)
	for _, w := range warnings {
		if w.Level == "warning" {
			logger.Warn("rule dependency", "message", w.Message)
		} else {
			logger.Debug("rule dependency", "message", w.Message)
		}
	}

	sim := &Simulation{
		prefix:     b.prefix,
		host:       b.host,
		logger:     logger,
		storage:    storage,
		programs:   programs,
		readSlots:  readSlots,
		provided:   provided,
		table:      table,
		active:     failures.NewSet(),
		clock:      engine.NewClock(),
		wiring:     wiring,
		warnings:   warnings,
		configHash: configHash,
		recorder:   b.opts.recorder,
		sessionIDs: b.opts.sessionIDs,
		aspects:    slices.Clone(b.aspects),
	}
	sim.io = stepIO{sim: sim}

	m, err := factory(&model.Context{
		Rand:     model.NewRand(b.opts.seed),
		Logger:   logger,
		Settings: b.opts.settings.Clone(),
		Prefix:   b.prefix,
		Wiring:   wiring,
		Failures: sim.active,
	})
	if err != nil {
		return nil, &ir.ConfigError{Code: ir.ErrCodeModelFactoryFailed, Message: "model factory failed", Err: err}
	}
	if m == nil {
		return nil, ir.NewConfigError(ir.ErrCodeModelFactoryFailed, "model factory returned no model")
	}
	sim.model = m

	logger.Info("simulation built",
		"prefix", b.prefix,
		"aspects", len(b.aspects),
		"pre_tick_rules", programs[ir.PreTick].Len(),
		"post_tick_rules", programs[ir.PostTick].Len(),
		"provided", len(b.provided),
		"failures", table.Len(),
		"config_hash", configHash,
	)
	return sim, nil
}
