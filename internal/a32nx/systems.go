package a32nx

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
)

// ReservoirCapacityGallons is the nominal fluid quantity of each hydraulic
// reservoir.
const ReservoirCapacityGallons = 14.5

// Model settings read by NewSystems.
const (
	SettingAPUStartSeconds      = "apu_start_seconds"
	SettingAPUStartJitter       = "apu_start_jitter_seconds"
	SettingReservoirLeakRate    = "reservoir_leak_gallons_per_second"
	SettingFlapsRate            = "flaps_rate_percent_per_second"
	SettingEngineGeneratorMinN2 = "engine_generator_min_n2"
)

const (
	defaultAPUStartSeconds      = 45
	defaultAPUStartJitter       = 5
	defaultReservoirLeakRate    = 0.05
	defaultFlapsRate            = 10
	defaultEngineGeneratorMinN2 = 50
)

// flapsDetents maps the flaps handle index to the trailing edge flap
// extension in percent.
var flapsDetents = [...]float64{0, 33, 50, 75, 100}

var (
	simOnGround = ir.Aircraft("SIM ON GROUND", "Bool", 0)
	engineN2    = [2]ir.Variable{ir.Aircraft("TURB ENG CORRECTED N2", "Percent", 1), ir.Aircraft("TURB ENG CORRECTED N2", "Percent", 2)}
)

// Systems is the reference A320 systems model. It covers the APU start
// sequence, bus power, hydraulic reservoir leaks and flap travel.
type Systems struct {
	logger   *slog.Logger
	wiring   ir.Wiring
	failures failures.View

	apuStart    time.Duration
	leakRate    float64
	flapsRate   float64
	generatorN2 float64

	apuRunning   time.Duration
	apuAvailable bool
	reservoirs   map[failures.HydraulicColor]float64
	flaps        float64
}

// NewSystems is the model.Factory for Systems.
func NewSystems(ctx *model.Context) (model.Model, error) {
	start := ctx.Settings.Get(SettingAPUStartSeconds, defaultAPUStartSeconds)
	jitter := ctx.Settings.Get(SettingAPUStartJitter, defaultAPUStartJitter)
	if start < 0 || jitter < 0 {
		return nil, fmt.Errorf("%s and %s must not be negative", SettingAPUStartSeconds, SettingAPUStartJitter)
	}
	start += jitter * ctx.Rand.Float64()

	s := &Systems{
		logger:      ctx.Logger,
		wiring:      ctx.Wiring,
		failures:    ctx.Failures,
		apuStart:    time.Duration(start * float64(time.Second)),
		leakRate:    ctx.Settings.Get(SettingReservoirLeakRate, defaultReservoirLeakRate),
		flapsRate:   ctx.Settings.Get(SettingFlapsRate, defaultFlapsRate),
		generatorN2: ctx.Settings.Get(SettingEngineGeneratorMinN2, defaultEngineGeneratorMinN2),
		reservoirs: map[failures.HydraulicColor]float64{
			failures.Green:  ReservoirCapacityGallons,
			failures.Blue:   ReservoirCapacityGallons,
			failures.Yellow: ReservoirCapacityGallons,
		},
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger.Debug("systems model created", "apu_start", s.apuStart)
	return s, nil
}

// APUStartTime is the time from master switch on to APU available.
func (s *Systems) APUStartTime() time.Duration { return s.apuStart }

// Step implements model.Model.
func (s *Systems) Step(delta time.Duration, in model.Inputs, out model.Outputs) error {
	io := &stepIO{in: in, out: out}

	s.stepAPU(delta, io)
	s.stepElectrical(io)
	s.stepHydraulic(delta, io)
	s.stepFlaps(delta, io)

	return io.err
}

func (s *Systems) stepAPU(delta time.Duration, io *stepIO) {
	if io.bool(apuMasterSwitchOn) {
		s.apuRunning += delta
	} else {
		s.apuRunning = 0
	}
	available := s.apuRunning >= s.apuStart && s.apuRunning > 0
	if available != s.apuAvailable {
		s.logger.Debug("apu availability changed", "available", available)
		s.apuAvailable = available
	}
	if s.wiring.APU != nil {
		io.writeBool(s.wiring.APU.AvailableVariable(), available)
	}
}

func (s *Systems) stepElectrical(io *stepIO) {
	external := io.bool(extPowerAvailable) && io.bool(extPowerOn)
	apu := s.apuAvailable && io.bool(apuGenPushButtonOn)
	var engine [2]bool
	for i := range engine {
		engine[i] = io.bool(engGenPushButtonOn[i]) && io.read(engineN2[i]) > s.generatorN2
	}
	ac := external || apu || engine[0] || engine[1]
	onGround := io.bool(simOnGround)

	for _, bus := range s.wiring.Buses {
		io.writeBool(bus.PoweredVariable(), s.busPowered(bus.Name, ac, external, onGround))
	}
}

func (s *Systems) busPowered(name string, ac, external, onGround bool) bool {
	tr := func(n int) bool { return ac && !s.failures.IsActive(failures.TransformerRectifier(n)) }
	switch name {
	case "DC_HOT_1", "DC_HOT_2", "DC_BAT":
		return true
	case "AC_GND_FLT_SVC", "DC_GND_FLT_SVC":
		return external && onGround
	case "DC_1":
		return tr(1)
	case "DC_2":
		return tr(2)
	case "DC_ESS", "DC_ESS_SHED":
		return tr(3)
	default:
		return ac
	}
}

func (s *Systems) stepHydraulic(delta time.Duration, io *stepIO) {
	for _, c := range []failures.HydraulicColor{failures.Green, failures.Blue, failures.Yellow} {
		level := s.reservoirs[c]
		if s.failures.IsActive(failures.ReservoirLeak(c)) {
			level = math.Max(0, level-s.leakRate*delta.Seconds())
			s.reservoirs[c] = level
		}
		io.write(reservoirLevel(c), level)
	}
}

func (s *Systems) stepFlaps(delta time.Duration, io *stepIO) {
	index := int(math.Round(io.read(flapsHandleIndex)))
	index = min(max(index, 0), len(flapsDetents)-1)
	target := flapsDetents[index]

	travel := s.flapsRate * delta.Seconds()
	switch {
	case s.flaps < target:
		s.flaps = math.Min(target, s.flaps+travel)
	case s.flaps > target:
		s.flaps = math.Max(target, s.flaps-travel)
	}
	io.write(leftFlapsPosition, s.flaps)
	io.write(rightFlapsPosition, s.flaps)
}

// stepIO keeps the first read or write error of a step so the system
// functions can stay linear.
type stepIO struct {
	in  model.Inputs
	out model.Outputs
	err error
}

func (io *stepIO) read(v ir.Variable) float64 {
	if io.err != nil {
		return 0
	}
	value, err := io.in.Read(v)
	if err != nil {
		io.err = err
		return 0
	}
	return value
}

func (io *stepIO) bool(v ir.Variable) bool { return io.read(v) > 0 }

func (io *stepIO) write(v ir.Variable, value float64) {
	if io.err != nil {
		return
	}
	io.err = io.out.Write(v, value)
}

func (io *stepIO) writeBool(v ir.Variable, on bool) {
	if on {
		io.write(v, 1)
	} else {
		io.write(v, 0)
	}
}
