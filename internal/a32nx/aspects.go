package a32nx

import (
	"fmt"
	"strings"

	"github.com/wpine215/a32nx/internal/compiler"
	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/simulation"
)

// Aspect is a named A320 aspect.
type Aspect struct {
	Name string
	Func simulation.AspectFunc
}

// Aspects returns the A320 aspects in registration order.
func Aspects() []Aspect {
	return []Aspect{
		{Name: "overhead", Func: overhead},
		{Name: "auxiliary_power_unit_controls", Func: apuControls},
		{Name: "hydraulic", Func: hydraulic},
		{Name: "brakes", Func: brakes},
		{Name: "autobrakes", Func: autobrakes},
		{Name: "nose_wheel_steering", Func: noseWheelSteering},
		{Name: "flaps", Func: flaps},
	}
}

// Cockpit variables shared by the aspects and the systems model.
var (
	apuGenPushButtonOn   = ir.Aspect("OVHD_ELEC_APU_GEN_PB_IS_ON")
	apuMasterSwitchOn    = ir.Aspect("OVHD_APU_MASTER_SW_PB_IS_ON")
	extPowerAvailable    = ir.Aspect("OVHD_ELEC_EXT_PWR_PB_IS_AVAILABLE")
	extPowerOn           = ir.Aspect("OVHD_ELEC_EXT_PWR_PB_IS_ON")
	engGenPushButtonOn   = [2]ir.Variable{ir.Aspect("OVHD_ELEC_ENG_GEN_1_PB_IS_ON"), ir.Aspect("OVHD_ELEC_ENG_GEN_2_PB_IS_ON")}
	flapsHandleIndex     = ir.Aspect("FLAPS_HANDLE_INDEX")
	leftFlapsPosition    = ir.Aspect("LEFT_FLAPS_POSITION_PERCENT")
	rightFlapsPosition   = ir.Aspect("RIGHT_FLAPS_POSITION_PERCENT")
	cargoDoorOpenRequest = ir.Aspect("FWD_DOOR_CARGO_OPEN_REQ")
)

// reservoirLevel is the aspect variable holding a reservoir's fluid
// quantity in gallons.
func reservoirLevel(c failures.HydraulicColor) ir.Variable {
	return ir.Aspect(fmt.Sprintf("HYD_%s_RESERVOIR_LEVEL", strings.ToUpper(c.String())))
}

func transform(a *simulation.AspectBuilder, phase ir.Phase, src ir.Variable, spec compiler.TransformSpec, dst ir.Variable) error {
	fn, err := spec.Build()
	if err != nil {
		return fmt.Errorf("%s -> %s: %w", src, dst, err)
	}
	a.MapNamed(phase, src, spec.Name(), fn, dst)
	return nil
}

func num(f float64) *float64 { return &f }

// overhead mirrors the overhead panel push buttons and the forward cargo
// door request.
func overhead(a *simulation.AspectBuilder) error {
	a.Copy(ir.Aircraft("APU GENERATOR SWITCH", "Bool", 0), apuGenPushButtonOn)

	a.Copy(ir.Aircraft("BLEED AIR ENGINE", "Bool", 1), ir.Aspect("OVHD_PNEU_ENG_1_BLEED_PB_IS_AUTO"))
	a.Copy(ir.Aircraft("BLEED AIR ENGINE", "Bool", 2), ir.Aspect("OVHD_PNEU_ENG_2_BLEED_PB_IS_AUTO"))

	a.Copy(ir.Aircraft("EXTERNAL POWER AVAILABLE", "Bool", 1), extPowerAvailable)
	a.Copy(ir.Aircraft("EXTERNAL POWER ON", "Bool", 1), extPowerOn)

	a.Copy(ir.Aircraft("GENERAL ENG MASTER ALTERNATOR", "Bool", 1), engGenPushButtonOn[0])
	a.Copy(ir.Aircraft("GENERAL ENG MASTER ALTERNATOR", "Bool", 2), engGenPushButtonOn[1])

	return transform(a, ir.PreTick,
		ir.Aircraft("INTERACTIVE POINT OPEN", "Position", 5),
		compiler.TransformSpec{Kind: compiler.TransformStep},
		cargoDoorOpenRequest)
}

func apuControls(a *simulation.AspectBuilder) error {
	a.Copy(ir.Aircraft("APU SWITCH", "Bool", 0), apuMasterSwitchOn)
	return nil
}

// hydraulic reports reservoir quantities to the host as a percentage of
// the nominal capacity.
func hydraulic(a *simulation.AspectBuilder) error {
	for i, c := range []failures.HydraulicColor{failures.Green, failures.Blue, failures.Yellow} {
		err := transform(a, ir.PostTick,
			reservoirLevel(c),
			compiler.TransformSpec{Kind: compiler.TransformLinear, Scale: num(100 / ReservoirCapacityGallons)},
			ir.Aircraft("HYDRAULIC RESERVOIR PERCENT", "Percent", i+1))
		if err != nil {
			return err
		}
	}
	return nil
}

func brakes(a *simulation.AspectBuilder) error {
	pedal := compiler.TransformSpec{Kind: compiler.TransformClamp, Min: num(0), Max: num(100)}
	if err := transform(a, ir.PreTick,
		ir.Aircraft("BRAKE LEFT POSITION", "Percent", 0), pedal,
		ir.Aspect("LEFT_BRAKE_PEDAL_INPUT")); err != nil {
		return err
	}
	if err := transform(a, ir.PreTick,
		ir.Aircraft("BRAKE RIGHT POSITION", "Percent", 0), pedal,
		ir.Aspect("RIGHT_BRAKE_PEDAL_INPUT")); err != nil {
		return err
	}
	a.Copy(ir.Aircraft("BRAKE PARKING INDICATOR", "Bool", 0), ir.Aspect("PARK_BRAKE_LEVER_POS"))
	return nil
}

func autobrakes(a *simulation.AspectBuilder) error {
	mode := ir.Aspect("AUTOBRAKES_SELECTED_MODE")
	if err := transform(a, ir.PreTick,
		ir.Aircraft("AUTO BRAKE SWITCH CB", "Number", 0),
		compiler.TransformSpec{Kind: compiler.TransformClamp, Min: num(0), Max: num(3)},
		mode); err != nil {
		return err
	}
	return transform(a, ir.PostTick,
		mode,
		compiler.TransformSpec{Kind: compiler.TransformStep},
		ir.Aircraft("AUTOBRAKES ACTIVE", "Bool", 0))
}

// noseWheelSteering turns rudder pedal deflection into the +-6 degree pedal
// steering authority and mirrors the pushback state.
func noseWheelSteering(a *simulation.AspectBuilder) error {
	if err := transform(a, ir.PreTick,
		ir.Aircraft("RUDDER PEDAL POSITION", "Position", 0),
		compiler.TransformSpec{Kind: compiler.TransformLinear, Scale: num(6)},
		ir.Aspect("NOSE_WHEEL_PEDAL_STEERING_ANGLE")); err != nil {
		return err
	}
	a.Copy(ir.Aircraft("PUSHBACK STATE", "Enum", 0), ir.Aspect("PUSHBACK_STATE"))
	return nil
}

func flaps(a *simulation.AspectBuilder) error {
	a.Copy(ir.Aircraft("FLAPS HANDLE INDEX", "Number", 0), flapsHandleIndex)
	a.CopyOn(ir.PostTick, leftFlapsPosition, ir.Aircraft("TRAILING EDGE FLAPS LEFT PERCENT", "Percent", 0))
	a.CopyOn(ir.PostTick, rightFlapsPosition, ir.Aircraft("TRAILING EDGE FLAPS RIGHT PERCENT", "Percent", 0))
	return nil
}
