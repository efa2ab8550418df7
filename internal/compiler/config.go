package compiler

import (
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
	"github.com/wpine215/a32nx/internal/simulation"
)

// Config is a compiled simulation configuration. Applying it to a
// simulation.Builder registers everything it declares in declaration order.
type Config struct {
	Prefix   string                        `json:"prefix" yaml:"prefix"`
	Buses    []ir.ElectricalBusBinding     `json:"electrical_bus,omitempty" yaml:"electrical_bus,omitempty"`
	APU      *ir.AuxiliaryPowerUnitBinding `json:"auxiliary_power_unit,omitempty" yaml:"auxiliary_power_unit,omitempty"`
	Failures []failures.Binding            `json:"failures,omitempty" yaml:"failures,omitempty"`
	Provided []ir.ProvidedVariable         `json:"provides,omitempty" yaml:"provides,omitempty"`
	Settings model.Settings                `json:"settings,omitempty" yaml:"settings,omitempty"`
	Aspects  []AspectConfig                `json:"aspects,omitempty" yaml:"aspects,omitempty"`
}

// AspectConfig is a named group of rules and provided variables.
type AspectConfig struct {
	Name     string                `json:"name" yaml:"name"`
	Rules    []RuleConfig          `json:"rules,omitempty" yaml:"rules,omitempty"`
	Provided []ir.ProvidedVariable `json:"provides,omitempty" yaml:"provides,omitempty"`

	Pos token.Pos `json:"-" yaml:"-"`
}

// RuleConfig is one copy, or a map when Transform is set.
type RuleConfig struct {
	Phase     ir.Phase       `json:"phase" yaml:"phase"`
	From      ir.Variable    `json:"from" yaml:"from"`
	To        ir.Variable    `json:"to" yaml:"to"`
	Transform *TransformSpec `json:"transform,omitempty" yaml:"transform,omitempty"`

	Pos token.Pos `json:"-" yaml:"-"`
}

// Func returns the aspect as a simulation.AspectFunc.
func (a AspectConfig) Func() simulation.AspectFunc {
	return func(b *simulation.AspectBuilder) error {
		for _, p := range a.Provided {
			b.ProvidesVariable(p)
		}
		for i, r := range a.Rules {
			if r.Transform == nil {
				b.CopyOn(r.Phase, r.From, r.To)
				continue
			}
			fn, err := r.Transform.Build()
			if err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
			b.MapNamed(r.Phase, r.From, r.Transform.Name(), fn, r.To)
		}
		return nil
	}
}

// Apply registers the configuration on b. Errors surface from b.Build.
func (c *Config) Apply(b *simulation.Builder) *simulation.Builder {
	b.WithElectricalBuses(c.Buses)
	if c.APU != nil {
		b.WithAuxiliaryPowerUnit(c.APU.IsAvailableVariable, c.APU.FuelValveNumber)
	}
	b.WithFailures(c.Failures)
	for _, p := range c.Provided {
		b.ProvidesVariable(p)
	}
	for _, a := range c.Aspects {
		b.WithAspect(a.Name, a.Func())
	}
	return b
}

// Options returns the builder options implied by the configuration.
func (c *Config) Options() []simulation.Option {
	if len(c.Settings) == 0 {
		return nil
	}
	return []simulation.Option{simulation.WithSettings(c.Settings.Clone())}
}

// Merge appends other's declarations to c. Settings in other override
// settings in c. Conflicting prefixes or a second APU are errors.
func (c *Config) Merge(other *Config) error {
	switch {
	case c.Prefix == "":
		c.Prefix = other.Prefix
	case other.Prefix != "" && other.Prefix != c.Prefix:
		return ir.NewConfigError(ir.ErrCodeInvalidVariable, "conflicting prefixes %q and %q", c.Prefix, other.Prefix)
	}
	if other.APU != nil {
		if c.APU != nil {
			return ir.NewConfigError(ir.ErrCodeDuplicateAPU, "auxiliary power unit declared twice")
		}
		c.APU = other.APU
	}
	c.Buses = append(c.Buses, other.Buses...)
	c.Failures = append(c.Failures, other.Failures...)
	c.Provided = append(c.Provided, other.Provided...)
	if len(other.Settings) > 0 {
		if c.Settings == nil {
			c.Settings = model.Settings{}
		}
		for k, v := range other.Settings {
			c.Settings[k] = v
		}
	}
	c.Aspects = append(c.Aspects, other.Aspects...)
	return nil
}
