package simulation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
	"github.com/wpine215/a32nx/internal/testutil"
)

func newBuilder(h host.Host) *Builder {
	return New("A32NX_", h, WithLogger(testutil.DiscardLogger()))
}

func TestBuild_DuplicateProvidedVariableSkipsFactory(t *testing.T) {
	calls := 0
	_, err := newBuilder(host.NewMemory()).
		ProvidesAircraftVariable("AIRSPEED INDICATED", "Knots", 0).
		ProvidesAircraftVariable("AIRSPEED INDICATED", "Knots", 0).
		Build(testutil.Factory(&testutil.ScriptedModel{}, &calls))

	require.Error(t, err)
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateVariable))
	assert.Zero(t, calls, "factory must not run after a configuration error")
}

func TestBuild_SameNameDifferentIndexIsDistinct(t *testing.T) {
	b := newBuilder(host.NewMemory()).
		ProvidesAircraftVariable("BLEED AIR ENGINE", "Bool", 1).
		ProvidesAircraftVariable("BLEED AIR ENGINE", "Bool", 2).
		ProvidesAircraftVariable("BLEED AIR ENGINE", "Percent", 1)
	assert.NoError(t, b.Err())
}

func TestBuild_ConflictingDestination(t *testing.T) {
	calls := 0
	d := ir.Aspect("D")
	_, err := newBuilder(host.NewMemory()).
		WithAspect("a", func(a *AspectBuilder) error {
			a.Map(ir.PreTick, ir.Aircraft("S1", "Number", 0), func(v float64) float64 { return v }, d)
			return nil
		}).
		WithAspect("b", func(a *AspectBuilder) error {
			a.Copy(ir.Aircraft("S2", "Number", 0), d)
			return nil
		}).
		Build(testutil.Factory(&testutil.ScriptedModel{}, &calls))

	require.Error(t, err)
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeConflictingDestination))
	assert.Zero(t, calls)
}

func TestBuild_SameDestinationDifferentPhasesIsAllowed(t *testing.T) {
	d := ir.Aspect("D")
	_, err := newBuilder(host.NewMemory()).
		WithAspect("a", func(a *AspectBuilder) error {
			a.CopyOn(ir.PreTick, ir.Aircraft("S", "Number", 0), d)
			a.CopyOn(ir.PostTick, ir.Aspect("T"), d)
			return nil
		}).
		Build(testutil.NopFactory())
	assert.NoError(t, err)
}

func TestBuild_InvalidHostIndex(t *testing.T) {
	limits := host.Limits{ElectricalBuses: 15, FuelValves: 8}

	_, err := newBuilder(host.NewMemory(host.WithLimits(limits))).
		WithElectricalBus("AC_1", 16).
		Build(testutil.NopFactory())
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidHostIndex))
	assert.ErrorIs(t, err, host.ErrIndexOutOfRange)

	_, err = newBuilder(host.NewMemory(host.WithLimits(limits))).
		WithAuxiliaryPowerUnit("OVHD_APU_START_PB_IS_AVAILABLE", 9).
		Build(testutil.NopFactory())
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidHostIndex))
}

func TestBuild_DuplicateBusAndAPU(t *testing.T) {
	err := newBuilder(host.NewMemory()).
		WithElectricalBus("AC_1", 2).
		WithElectricalBus("AC_1", 3).
		Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateBus))

	err = newBuilder(host.NewMemory()).
		WithAuxiliaryPowerUnit("APU_A", 8).
		WithAuxiliaryPowerUnit("APU_B", 8).
		Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateAPU))

	err = newBuilder(host.NewMemory()).WithElectricalBus("  ", 2).Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidVariable))
}

func TestBuild_DuplicateFailureCode(t *testing.T) {
	_, err := newBuilder(host.NewMemory()).
		WithFailures([]failures.Binding{
			{Code: 29000, Type: failures.ReservoirLeak(failures.Green)},
			{Code: 29000, Type: failures.ReservoirLeak(failures.Blue)},
		}).
		Build(testutil.NopFactory())
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateFailureCode))

	err = newBuilder(host.NewMemory()).WithFailure(1, failures.Type{}).Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidFailureType))
}

func TestBuild_FirstErrorWins(t *testing.T) {
	b := newBuilder(host.NewMemory()).
		ProvidesAircraftVariable("A", "Bool", 0).
		ProvidesAircraftVariable("A", "Bool", 0).
		WithElectricalBus("AC_1", 999).
		WithAuxiliaryPowerUnit("X", 1).
		WithAuxiliaryPowerUnit("Y", 1)

	assert.True(t, ir.IsConfigError(b.Err(), ir.ErrCodeDuplicateVariable))
	_, err := b.Build(testutil.NopFactory())
	assert.Equal(t, b.Err(), err)
}

func TestBuild_InvalidProvidedVariable(t *testing.T) {
	err := newBuilder(host.NewMemory()).ProvidesVariable(ir.ProvidedVariable{Variable: ir.Aspect("X")}).Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidVariable))

	err = newBuilder(host.NewMemory()).ProvidesAircraftVariable("", "Bool", 0).Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidVariable))
}

func TestBuild_AspectErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := newBuilder(host.NewMemory()).
		WithAspect("brakes", func(a *AspectBuilder) error { return boom }).
		Build(testutil.NopFactory())
	require.Error(t, err)
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeAspectFailed))
	assert.ErrorIs(t, err, boom)

	var cfgErr *ir.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "brakes", cfgErr.Aspect)

	err = newBuilder(host.NewMemory()).
		WithAspect("flaps", func(a *AspectBuilder) error {
			a.Copy(ir.Variable{}, ir.Aspect("X"))
			return nil
		}).Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeAspectFailed))

	err = newBuilder(host.NewMemory()).
		WithAspect("nil map", func(a *AspectBuilder) error {
			a.Map(ir.PreTick, ir.Aspect("X"), nil, ir.Aspect("Y"))
			return nil
		}).Err()
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeAspectFailed))
}

func TestBuild_AspectProvidedVariableDuplicate(t *testing.T) {
	err := newBuilder(host.NewMemory()).
		ProvidesAircraftVariable("GEAR HANDLE POSITION", "Bool", 0).
		WithAspect("gear", func(a *AspectBuilder) error {
			a.ProvidesAircraftVariable("GEAR HANDLE POSITION", "Bool", 0)
			return nil
		}).Err()

	require.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateVariable))
	var cfgErr *ir.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "gear", cfgErr.Aspect)
}

func TestBuild_FactoryContract(t *testing.T) {
	_, err := newBuilder(host.NewMemory()).Build(nil)
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeMissingModelFactory))

	boom := errors.New("boom")
	_, err = newBuilder(host.NewMemory()).Build(func(*model.Context) (model.Model, error) { return nil, boom })
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeModelFactoryFailed))
	assert.ErrorIs(t, err, boom)

	_, err = newBuilder(host.NewMemory()).Build(func(*model.Context) (model.Model, error) { return nil, nil })
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeModelFactoryFailed))
}

func TestBuild_FactoryContext(t *testing.T) {
	var got *model.Context
	sim, err := New("A32NX_", host.NewMemory(),
		WithLogger(testutil.DiscardLogger()),
		WithSeed(42),
		WithSettings(model.Settings{"CONFIG_USING_METRIC_UNIT": 1}),
	).
		WithElectricalBus("AC_1", 2).
		WithAuxiliaryPowerUnit("OVHD_APU_START_PB_IS_AVAILABLE", 8).
		WithFailure(29000, failures.ReservoirLeak(failures.Green)).
		Build(func(ctx *model.Context) (model.Model, error) {
			got = ctx
			return &testutil.ScriptedModel{}, nil
		})
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "A32NX_", got.Prefix)
	assert.Equal(t, 1.0, got.Settings.Get("CONFIG_USING_METRIC_UNIT", 0))
	assert.Equal(t, []ir.ElectricalBusBinding{{Name: "AC_1", HostIndex: 2}}, got.Wiring.Buses)
	require.NotNil(t, got.Wiring.APU)
	assert.Equal(t, 8, got.Wiring.APU.FuelValveNumber)
	assert.Equal(t, model.NewRand(42).Uint64(), got.Rand.Uint64())

	_, err = sim.ActivateFailure(29000)
	require.NoError(t, err)
	assert.True(t, got.Failures.IsActive(failures.ReservoirLeak(failures.Green)), "failure view is live")
}

func TestBuild_WiringRules(t *testing.T) {
	sim, err := newBuilder(host.NewMemory()).
		WithElectricalBuses([]ir.ElectricalBusBinding{{Name: "AC_1", HostIndex: 2}, {Name: "DC_BAT", HostIndex: 11}}).
		WithAuxiliaryPowerUnit("OVHD_APU_START_PB_IS_AVAILABLE", 8).
		Build(testutil.NopFactory())
	require.NoError(t, err)

	rules := sim.Rules(ir.PostTick)
	require.Len(t, rules, 3)
	assert.Equal(t, ir.Aspect("ELEC_AC_1_BUS_IS_POWERED"), rules[0].Source)
	assert.Equal(t, ir.Aircraft("BUS CONNECTION ON", "Bool", 2), rules[0].Destination)
	assert.Equal(t, ir.Aircraft("BUS CONNECTION ON", "Bool", 11), rules[1].Destination)
	assert.Equal(t, ir.Aspect("OVHD_APU_START_PB_IS_AVAILABLE"), rules[2].Source)
	assert.Equal(t, ir.Aircraft("FUELSYSTEM VALVE OPEN", "Bool", 8), rules[2].Destination)
	assert.Empty(t, sim.Rules(ir.PreTick))
}

func TestBuild_ConfigHash(t *testing.T) {
	build := func(extra bool) *Simulation {
		b := newBuilder(host.NewMemory()).
			WithElectricalBus("AC_1", 2).
			ProvidesAircraftVariable("AIRSPEED INDICATED", "Knots", 0).
			WithAspect("overhead", func(a *AspectBuilder) error {
				a.Copy(ir.Aircraft("EXTERNAL POWER ON", "Bool", 1), ir.Aspect("OVHD_ELEC_EXT_PWR_PB_IS_ON"))
				return nil
			})
		if extra {
			b.ProvidesAircraftVariable("AIRSPEED MACH", "Mach", 0)
		}
		sim, err := b.Build(testutil.NopFactory())
		require.NoError(t, err)
		return sim
	}

	assert.Equal(t, build(false).ConfigHash(), build(false).ConfigHash())
	assert.NotEqual(t, build(false).ConfigHash(), build(true).ConfigHash())
	assert.Len(t, build(false).ConfigHash(), 64)
}

func TestBuild_Warnings(t *testing.T) {
	sim, err := newBuilder(host.NewMemory()).
		WithAspect("chain", func(a *AspectBuilder) error {
			a.Copy(ir.Aircraft("X", "Number", 0), ir.Aspect("Y"))
			a.Copy(ir.Aspect("Y"), ir.Aspect("Z"))
			return nil
		}).
		Build(testutil.NopFactory())
	require.NoError(t, err)

	warnings := sim.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, []string{"chain"}, sim.Aspects())
}

func TestBuild_NilHost(t *testing.T) {
	_, err := New("A32NX_", nil).Build(testutil.NopFactory())
	assert.True(t, ir.IsConfigError(err, ""))
}

func TestBuild_FactoryInvokedOnce(t *testing.T) {
	calls := 0
	m := &testutil.ScriptedModel{}
	b := newBuilder(host.NewMemory())
	sim, err := b.Build(testutil.Factory(m, &calls))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	require.NoError(t, sim.Tick(t.Context(), 16*time.Millisecond))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, m.Steps)

	again, err := b.Build(testutil.Factory(m, &calls))
	assert.Nil(t, again)
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeAlreadyBuilt), "got %v", err)
	assert.Equal(t, 1, calls)
}

func TestBuild_TerminalAfterConfigError(t *testing.T) {
	calls := 0
	b := newBuilder(host.NewMemory()).WithElectricalBus("DC_1", 1).WithElectricalBus("DC_1", 2)
	_, err := b.Build(testutil.Factory(&testutil.ScriptedModel{}, &calls))
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateBus), "got %v", err)

	_, err = b.Build(testutil.Factory(&testutil.ScriptedModel{}, &calls))
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeAlreadyBuilt), "got %v", err)
	assert.Zero(t, calls)
}
