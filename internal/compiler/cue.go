package compiler

import (
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
)

// CompileConfig parses a CUE value into a Config.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a configuration file:
//
//	prefix: "A32NX_"
//	electrical_bus: { AC_1: 2, DC_BAT: 10 }
//	auxiliary_power_unit: { is_available_variable: "OVHD_APU_START_PB_IS_AVAILABLE", fuel_valve_number: 8 }
//	failures: [{ code: 24000, type: "TransformerRectifier(1)" }]
//	provides: [{ name: "AMBIENT TEMPERATURE", unit: "celsius" }]
//	aspect: overhead: rules: [{ from: "A:APU GENERATOR SWITCH:0 (Bool)", to: "L:OVHD_ELEC_APU_GEN_PB_IS_ON" }]
//
// Variables are written as strings ("L:NAME", "A:NAME:index (unit)") or as
// structs ({aspect: NAME} or {aircraft: NAME, unit: UNIT, index: N}).
func CompileConfig(v cue.Value) (*Config, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(err)
	}

	cfg := &Config{}
	var err error

	if p := v.LookupPath(cue.ParsePath("prefix")); p.Exists() {
		if cfg.Prefix, err = p.String(); err != nil {
			return nil, cueError(err)
		}
	}
	if cfg.Buses, err = parseBuses(v); err != nil {
		return nil, err
	}
	if cfg.APU, err = parseAPU(v); err != nil {
		return nil, err
	}
	if cfg.Failures, err = parseFailures(v); err != nil {
		return nil, err
	}
	if cfg.Provided, err = parseProvided(v.LookupPath(cue.ParsePath("provides")), "provides"); err != nil {
		return nil, err
	}
	if cfg.Settings, err = parseSettings(v); err != nil {
		return nil, err
	}
	if cfg.Aspects, err = parseAspects(v); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CompileString compiles CUE source text. filename is used in error
// positions only.
func CompileString(src, filename string) (*Config, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return CompileConfig(v)
}

// CompileFile reads and compiles a single CUE file.
func CompileFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return CompileString(string(data), path)
}

// parseBuses reads electrical_bus in declaration order.
func parseBuses(v cue.Value) ([]ir.ElectricalBusBinding, error) {
	busVal := v.LookupPath(cue.ParsePath("electrical_bus"))
	if !busVal.Exists() {
		return nil, nil
	}
	iter, err := busVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "electrical_bus", Message: "must be a struct of bus name to host index", Pos: busVal.Pos()}
	}
	var buses []ir.ElectricalBusBinding
	for iter.Next() {
		name := strings.Trim(iter.Label(), `"`)
		idx, err := iter.Value().Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   "electrical_bus." + name,
				Message: "host index must be an integer",
				Pos:     iter.Value().Pos(),
			}
		}
		buses = append(buses, ir.ElectricalBusBinding{Name: name, HostIndex: int(idx)})
	}
	return buses, nil
}

func parseAPU(v cue.Value) (*ir.AuxiliaryPowerUnitBinding, error) {
	apuVal := v.LookupPath(cue.ParsePath("auxiliary_power_unit"))
	if !apuVal.Exists() {
		return nil, nil
	}
	name, err := requireString(apuVal, "is_available_variable", "auxiliary_power_unit")
	if err != nil {
		return nil, err
	}
	valve, err := requireInt(apuVal, "fuel_valve_number", "auxiliary_power_unit")
	if err != nil {
		return nil, err
	}
	return &ir.AuxiliaryPowerUnitBinding{IsAvailableVariable: name, FuelValveNumber: valve}, nil
}

func parseFailures(v cue.Value) ([]failures.Binding, error) {
	listVal := v.LookupPath(cue.ParsePath("failures"))
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, &CompileError{Field: "failures", Message: "must be a list", Pos: listVal.Pos()}
	}
	var out []failures.Binding
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		field := fmt.Sprintf("failures[%d]", i)
		code, err := requireInt(elem, "code", field)
		if err != nil {
			return nil, err
		}
		typeStr, err := requireString(elem, "type", field)
		if err != nil {
			return nil, err
		}
		ft, err := failures.ParseType(typeStr)
		if err != nil {
			return nil, &CompileError{Field: field + ".type", Message: err.Error(), Pos: elem.Pos()}
		}
		out = append(out, failures.Binding{Code: code, Type: ft})
	}
	return out, nil
}

// parseProvided accepts a list whose elements are either variable strings or
// {name, unit, index?, initial?} structs.
func parseProvided(listVal cue.Value, field string) ([]ir.ProvidedVariable, error) {
	if !listVal.Exists() {
		return nil, nil
	}
	iter, err := listVal.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list", Pos: listVal.Pos()}
	}
	var out []ir.ProvidedVariable
	for i := 0; iter.Next(); i++ {
		elem := iter.Value()
		elemField := fmt.Sprintf("%s[%d]", field, i)

		if s, err := elem.String(); err == nil {
			variable, err := ir.ParseVariable(s)
			if err != nil {
				return nil, &CompileError{Field: elemField, Message: err.Error(), Pos: elem.Pos()}
			}
			out = append(out, ir.ProvidedVariable{Variable: variable})
			continue
		}

		name, err := requireString(elem, "name", elemField)
		if err != nil {
			return nil, err
		}
		unit, err := requireString(elem, "unit", elemField)
		if err != nil {
			return nil, err
		}
		index, err := optionalInt(elem, "index", elemField)
		if err != nil {
			return nil, err
		}
		initial, err := optionalFloat(elem, "initial", elemField)
		if err != nil {
			return nil, err
		}
		out = append(out, ir.ProvidedVariable{Variable: ir.Aircraft(name, unit, index), Initial: initial})
	}
	return out, nil
}

func parseSettings(v cue.Value) (model.Settings, error) {
	setVal := v.LookupPath(cue.ParsePath("settings"))
	if !setVal.Exists() {
		return nil, nil
	}
	iter, err := setVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "settings", Message: "must be a struct", Pos: setVal.Pos()}
	}
	settings := model.Settings{}
	for iter.Next() {
		name := strings.Trim(iter.Label(), `"`)
		val := iter.Value()
		if b, err := val.Bool(); err == nil {
			settings[name] = boolFloat(b)
			continue
		}
		f, err := val.Float64()
		if err != nil {
			return nil, &CompileError{Field: "settings." + name, Message: "must be a number or bool", Pos: val.Pos()}
		}
		settings[name] = f
	}
	return settings, nil
}

// parseAspects reads aspect: <name>: {...} in declaration order.
func parseAspects(v cue.Value) ([]AspectConfig, error) {
	aspectsVal := v.LookupPath(cue.ParsePath("aspect"))
	if !aspectsVal.Exists() {
		return nil, nil
	}
	iter, err := aspectsVal.Fields()
	if err != nil {
		return nil, &CompileError{Field: "aspect", Message: "must be a struct of aspect name to aspect", Pos: aspectsVal.Pos()}
	}
	var out []AspectConfig
	for iter.Next() {
		a, err := CompileAspect(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// CompileAspect parses a single aspect struct. The aspect name is taken from
// the struct label.
func CompileAspect(v cue.Value) (*AspectConfig, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	a := &AspectConfig{Pos: v.Pos()}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		a.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	field := "aspect." + a.Name

	var err error
	if a.Provided, err = parseProvided(v.LookupPath(cue.ParsePath("provides")), field+".provides"); err != nil {
		return nil, err
	}

	rulesVal := v.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return a, nil
	}
	iter, err := rulesVal.List()
	if err != nil {
		return nil, &CompileError{Field: field + ".rules", Message: "must be a list", Pos: rulesVal.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		r, err := parseRule(iter.Value(), fmt.Sprintf("%s.rules[%d]", field, i))
		if err != nil {
			return nil, err
		}
		a.Rules = append(a.Rules, r)
	}
	return a, nil
}

func parseRule(v cue.Value, field string) (RuleConfig, error) {
	r := RuleConfig{Pos: v.Pos()}
	var err error
	if r.From, err = parseVariableField(v, "from", field); err != nil {
		return r, err
	}
	if r.To, err = parseVariableField(v, "to", field); err != nil {
		return r, err
	}
	if phaseVal := v.LookupPath(cue.ParsePath("phase")); phaseVal.Exists() {
		s, err := phaseVal.String()
		if err != nil {
			return r, cueError(err)
		}
		if r.Phase, err = ir.ParsePhase(s); err != nil {
			return r, &CompileError{Field: field + ".phase", Message: err.Error(), Pos: phaseVal.Pos()}
		}
	}
	if tVal := v.LookupPath(cue.ParsePath("transform")); tVal.Exists() {
		spec, err := parseTransform(tVal, field+".transform")
		if err != nil {
			return r, err
		}
		r.Transform = spec
	}
	return r, nil
}

func parseTransform(v cue.Value, field string) (*TransformSpec, error) {
	if s, err := v.String(); err == nil {
		return &TransformSpec{Kind: s}, nil
	}
	kind, err := requireString(v, "kind", field)
	if err != nil {
		return nil, err
	}
	spec := &TransformSpec{Kind: kind}
	if spec.Threshold, err = optionalFloat(v, "threshold", field); err != nil {
		return nil, err
	}
	if spec.Offset, err = optionalFloat(v, "offset", field); err != nil {
		return nil, err
	}
	if spec.Scale, err = optionalFloatPtr(v, "scale", field); err != nil {
		return nil, err
	}
	if spec.Min, err = optionalFloatPtr(v, "min", field); err != nil {
		return nil, err
	}
	if spec.Max, err = optionalFloatPtr(v, "max", field); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseVariableField(v cue.Value, name, field string) (ir.Variable, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return ir.Variable{}, &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	return parseVariable(val, field+"."+name)
}

// parseVariable accepts "L:NAME", "A:NAME:index (unit)", {aspect: NAME} or
// {aircraft: NAME, unit: UNIT, index?: N}.
func parseVariable(v cue.Value, field string) (ir.Variable, error) {
	if s, err := v.String(); err == nil {
		variable, err := ir.ParseVariable(s)
		if err != nil {
			return ir.Variable{}, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return variable, nil
	}
	if aspectVal := v.LookupPath(cue.ParsePath("aspect")); aspectVal.Exists() {
		name, err := aspectVal.String()
		if err != nil {
			return ir.Variable{}, cueError(err)
		}
		return ir.Aspect(name), nil
	}
	if v.LookupPath(cue.ParsePath("aircraft")).Exists() {
		name, err := requireString(v, "aircraft", field)
		if err != nil {
			return ir.Variable{}, err
		}
		unit, err := requireString(v, "unit", field)
		if err != nil {
			return ir.Variable{}, err
		}
		index, err := optionalInt(v, "index", field)
		if err != nil {
			return ir.Variable{}, err
		}
		return ir.Aircraft(name, unit, index), nil
	}
	return ir.Variable{}, &CompileError{
		Field:   field,
		Message: "variable must be a string or a struct with an aspect or aircraft field",
		Pos:     v.Pos(),
	}
}

func requireString(v cue.Value, name, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return "", &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	s, err := val.String()
	if err != nil {
		return "", &CompileError{Field: field + "." + name, Message: "must be a string", Pos: val.Pos()}
	}
	return s, nil
}

func requireInt(v cue.Value, name, field string) (int, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return 0, &CompileError{Field: field + "." + name, Message: name + " is required", Pos: v.Pos()}
	}
	n, err := val.Int64()
	if err != nil {
		return 0, &CompileError{Field: field + "." + name, Message: "must be an integer", Pos: val.Pos()}
	}
	return int(n), nil
}

func optionalInt(v cue.Value, name, field string) (int, error) {
	if !v.LookupPath(cue.ParsePath(name)).Exists() {
		return 0, nil
	}
	return requireInt(v, name, field)
}

func optionalFloat(v cue.Value, name, field string) (float64, error) {
	p, err := optionalFloatPtr(v, name, field)
	if p == nil || err != nil {
		return 0, err
	}
	return *p, nil
}

func optionalFloatPtr(v cue.Value, name, field string) (*float64, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return nil, nil
	}
	f, err := val.Float64()
	if err != nil {
		return nil, &CompileError{Field: field + "." + name, Message: "must be a number", Pos: val.Pos()}
	}
	return &f, nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
