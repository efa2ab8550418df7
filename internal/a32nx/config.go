package a32nx

import (
	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/simulation"
)

// Prefix is prepended to aspect variable names on the host.
const Prefix = "A32NX_"

// APUAvailableVariable is written by the model while the APU is available.
const APUAvailableVariable = "OVHD_APU_START_PB_IS_AVAILABLE"

// APUFuelValve is the host fuel valve feeding the APU.
const APUFuelValve = 8

// Buses returns the electrical buses and their host connection indices.
func Buses() []ir.ElectricalBusBinding {
	return []ir.ElectricalBusBinding{
		{Name: "AC_1", HostIndex: 2},
		{Name: "AC_2", HostIndex: 3},
		{Name: "AC_ESS", HostIndex: 4},
		{Name: "AC_ESS_SHED", HostIndex: 5},
		{Name: "AC_STAT_INV", HostIndex: 6},
		{Name: "AC_GND_FLT_SVC", HostIndex: 14},
		{Name: "DC_1", HostIndex: 7},
		{Name: "DC_2", HostIndex: 8},
		{Name: "DC_ESS", HostIndex: 9},
		{Name: "DC_ESS_SHED", HostIndex: 10},
		{Name: "DC_BAT", HostIndex: 11},
		{Name: "DC_HOT_1", HostIndex: 12},
		{Name: "DC_HOT_2", HostIndex: 13},
		{Name: "DC_GND_FLT_SVC", HostIndex: 15},
	}
}

// FailureBindings returns the failure codes the host may send.
func FailureBindings() []failures.Binding {
	return []failures.Binding{
		{Code: 24000, Type: failures.TransformerRectifier(1)},
		{Code: 24001, Type: failures.TransformerRectifier(2)},
		{Code: 24002, Type: failures.TransformerRectifier(3)},
		{Code: 29000, Type: failures.ReservoirLeak(failures.Green)},
		{Code: 29001, Type: failures.ReservoirLeak(failures.Blue)},
		{Code: 29002, Type: failures.ReservoirLeak(failures.Yellow)},
		{Code: 29003, Type: failures.ReservoirAirLeak(failures.Green)},
		{Code: 29004, Type: failures.ReservoirAirLeak(failures.Blue)},
		{Code: 29005, Type: failures.ReservoirAirLeak(failures.Yellow)},
		{Code: 29006, Type: failures.ReservoirReturnLeak(failures.Green)},
		{Code: 29007, Type: failures.ReservoirReturnLeak(failures.Blue)},
		{Code: 29008, Type: failures.ReservoirReturnLeak(failures.Yellow)},
	}
}

// ProvidedVariables returns the host variables the systems model reads.
func ProvidedVariables() []ir.Variable {
	return []ir.Variable{
		ir.Aircraft("ACCELERATION BODY X", "feet per second squared", 0),
		ir.Aircraft("ACCELERATION BODY Y", "feet per second squared", 0),
		ir.Aircraft("ACCELERATION BODY Z", "feet per second squared", 0),
		ir.Aircraft("AIRSPEED INDICATED", "Knots", 0),
		ir.Aircraft("AIRSPEED MACH", "Mach", 0),
		ir.Aircraft("AIRSPEED TRUE", "Knots", 0),
		ir.Aircraft("AMBIENT PRESSURE", "inHg", 0),
		ir.Aircraft("AMBIENT TEMPERATURE", "celsius", 0),
		ir.Aircraft("AMBIENT WIND DIRECTION", "Degrees", 0),
		ir.Aircraft("AMBIENT WIND VELOCITY", "Knots", 0),
		ir.Aircraft("ANTISKID BRAKES ACTIVE", "Bool", 0),
		ir.Aircraft("EXTERNAL POWER AVAILABLE", "Bool", 1),
		ir.Aircraft("FUEL TANK LEFT MAIN QUANTITY", "Pounds", 0),
		ir.Aircraft("GEAR ANIMATION POSITION", "Percent", 0),
		ir.Aircraft("GEAR ANIMATION POSITION", "Percent", 1),
		ir.Aircraft("GEAR ANIMATION POSITION", "Percent", 2),
		ir.Aircraft("GEAR CENTER POSITION", "Percent", 0),
		ir.Aircraft("GEAR LEFT POSITION", "Percent", 0),
		ir.Aircraft("GEAR RIGHT POSITION", "Percent", 0),
		ir.Aircraft("GEAR HANDLE POSITION", "Bool", 0),
		ir.Aircraft("GENERAL ENG STARTER ACTIVE", "Bool", 1),
		ir.Aircraft("GENERAL ENG STARTER ACTIVE", "Bool", 2),
		ir.Aircraft("GPS GROUND SPEED", "Knots", 0),
		ir.Aircraft("GPS GROUND MAGNETIC TRACK", "Degrees", 0),
		ir.Aircraft("INDICATED ALTITUDE", "Feet", 0),
		ir.Aircraft("PLANE PITCH DEGREES", "Degrees", 0),
		ir.Aircraft("PLANE BANK DEGREES", "Degrees", 0),
		ir.Aircraft("PLANE HEADING DEGREES MAGNETIC", "Degrees", 0),
		ir.Aircraft("PLANE LATITUDE", "degree latitude", 0),
		ir.Aircraft("PLANE LONGITUDE", "degree longitude", 0),
		ir.Aircraft("PUSHBACK STATE", "Enum", 0),
		ir.Aircraft("PUSHBACK ANGLE", "Radians", 0),
		ir.Aircraft("SEA LEVEL PRESSURE", "Millibars", 0),
		ir.Aircraft("SIM ON GROUND", "Bool", 0),
		ir.Aircraft("TOTAL AIR TEMPERATURE", "celsius", 0),
		ir.Aircraft("TRAILING EDGE FLAPS LEFT PERCENT", "Percent", 0),
		ir.Aircraft("TRAILING EDGE FLAPS RIGHT PERCENT", "Percent", 0),
		ir.Aircraft("TURB ENG CORRECTED N1", "Percent", 1),
		ir.Aircraft("TURB ENG CORRECTED N1", "Percent", 2),
		ir.Aircraft("TURB ENG CORRECTED N2", "Percent", 1),
		ir.Aircraft("TURB ENG CORRECTED N2", "Percent", 2),
		ir.Aircraft("UNLIMITED FUEL", "Bool", 0),
		ir.Aircraft("VELOCITY WORLD Y", "feet per minute", 0),
	}
}

// Configure registers the A320 wiring, failures, provided variables and
// aspects on b.
func Configure(b *simulation.Builder) *simulation.Builder {
	b.WithElectricalBuses(Buses()).
		WithAuxiliaryPowerUnit(APUAvailableVariable, APUFuelValve).
		WithFailures(FailureBindings())
	for _, v := range ProvidedVariables() {
		b.ProvidesVariable(ir.ProvidedVariable{Variable: v})
	}
	for _, a := range Aspects() {
		b.WithAspect(a.Name, a.Func)
	}
	return b
}

// New builds the A320 simulation with the reference systems model.
func New(h host.Host, opts ...simulation.Option) (*simulation.Simulation, error) {
	return Configure(simulation.New(Prefix, h, opts...)).Build(NewSystems)
}
