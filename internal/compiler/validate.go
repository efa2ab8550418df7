package compiler

import (
	"fmt"
	"math"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidPrefix = "E100" // prefix contains whitespace or a colon

	// Wiring errors (E101-E109)
	ErrDuplicateBus      = "E101" // bus name declared twice
	ErrInvalidHostIndex  = "E102" // bus index or fuel valve out of range
	ErrInvalidAPU        = "E103" // APU availability variable empty
	ErrEmptyBusName      = "E104" // bus name is empty
	ErrDuplicateFailure  = "E105" // failure code bound twice
	ErrInvalidFailure    = "E106" // failure type is zero
	ErrDuplicateProvided = "E107" // provided variable declared twice
	ErrInvalidProvided   = "E108" // provided variable is not a valid host variable

	// Aspect errors (E110-E119)
	ErrDuplicateAspect        = "E110" // aspect name declared twice
	ErrEmptyAspect            = "E111" // aspect declares nothing
	ErrInvalidRuleVariable    = "E112" // rule source or destination invalid
	ErrConflictingDestination = "E113" // destination written twice in a phase
	ErrUnknownTransform       = "E114" // transform cannot be built
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled configuration against the index policy
// (host.DefaultLimits when nil). Returns all errors found (does not fail-fast);
// the simulation builder stops at the first.
func Validate(cfg *Config, policy host.IndexPolicy) []ValidationError {
	if policy == nil {
		policy = host.DefaultLimits
	}
	v := &validator{}

	if strings.ContainsAny(cfg.Prefix, " \t:") {
		v.add("prefix", ErrInvalidPrefix, token.NoPos, "prefix %q must not contain whitespace or ':'", cfg.Prefix)
	}

	v.validateWiring(cfg, policy)
	v.validateFailures(cfg.Failures)

	provided := make(map[ir.Variable]bool)
	v.validateProvided("provides", cfg.Provided, provided)

	written := [len(ir.Phases)]map[ir.Variable]string{{}, {}}
	for _, bus := range cfg.Buses {
		written[ir.PostTick][bus.HostVariable()] = "electrical"
	}
	if cfg.APU != nil {
		written[ir.PostTick][cfg.APU.HostVariable()] = "auxiliary_power_unit"
	}

	aspects := make(map[string]bool)
	for i, a := range cfg.Aspects {
		field := fmt.Sprintf("aspects[%d]", i)
		if a.Name == "" {
			v.add(field+".name", ErrEmptyAspect, a.Pos, "aspect name is required")
		} else if aspects[a.Name] {
			v.add(field+".name", ErrDuplicateAspect, a.Pos, "duplicate aspect %q", a.Name)
		}
		aspects[a.Name] = true

		if len(a.Rules) == 0 && len(a.Provided) == 0 {
			v.add(field, ErrEmptyAspect, a.Pos, "aspect %q declares no rules or provided variables", a.Name)
		}
		v.validateProvided(field+".provides", a.Provided, provided)

		for j, r := range a.Rules {
			v.validateRule(fmt.Sprintf("%s.rules[%d]", field, j), a.Name, r, written)
		}
	}
	return v.errs
}

type validator struct {
	errs []ValidationError
}

func (v *validator) add(field, code string, pos token.Pos, format string, args ...any) {
	e := ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
	if pos.IsValid() {
		e.Line = pos.Line()
	}
	v.errs = append(v.errs, e)
}

func (v *validator) validateWiring(cfg *Config, policy host.IndexPolicy) {
	names := make(map[string]bool)
	for i, bus := range cfg.Buses {
		field := fmt.Sprintf("electrical_bus[%d]", i)
		name := strings.TrimSpace(bus.Name)
		if name == "" {
			v.add(field, ErrEmptyBusName, token.NoPos, "bus name is required")
			continue
		}
		if names[name] {
			v.add(field, ErrDuplicateBus, token.NoPos, "duplicate bus %q", name)
		}
		names[name] = true
		if err := policy.CheckIndex(host.IndexElectricalBus, bus.HostIndex); err != nil {
			v.add(field, ErrInvalidHostIndex, token.NoPos, "bus %q: %v", name, err)
		}
	}
	if cfg.APU == nil {
		return
	}
	if !cfg.APU.AvailableVariable().Valid() {
		v.add("auxiliary_power_unit.is_available_variable", ErrInvalidAPU, token.NoPos, "availability variable is required")
	}
	if err := policy.CheckIndex(host.IndexFuelValve, cfg.APU.FuelValveNumber); err != nil {
		v.add("auxiliary_power_unit.fuel_valve_number", ErrInvalidHostIndex, token.NoPos, "%v", err)
	}
}

func (v *validator) validateFailures(bindings []failures.Binding) {
	codes := make(map[int]bool)
	for i, b := range bindings {
		field := fmt.Sprintf("failures[%d]", i)
		if b.Type.IsZero() {
			v.add(field+".type", ErrInvalidFailure, token.NoPos, "failure type is required")
		}
		if codes[b.Code] {
			v.add(field+".code", ErrDuplicateFailure, token.NoPos, "failure code %d bound twice", b.Code)
		}
		codes[b.Code] = true
	}
}

func (v *validator) validateProvided(field string, list []ir.ProvidedVariable, seen map[ir.Variable]bool) {
	for i, p := range list {
		f := fmt.Sprintf("%s[%d]", field, i)
		if !p.Variable.IsAircraft() || !p.Variable.Valid() {
			v.add(f, ErrInvalidProvided, token.NoPos, "%s is not a valid host variable", p.Variable)
			continue
		}
		if math.IsNaN(p.Initial) || math.IsInf(p.Initial, 0) {
			v.add(f+".initial", ErrInvalidProvided, token.NoPos, "initial value of %s must be finite", p.Variable)
		}
		if seen[p.Variable] {
			v.add(f, ErrDuplicateProvided, token.NoPos, "variable %s already provided", p.Variable)
		}
		seen[p.Variable] = true
	}
}

func (v *validator) validateRule(field, aspect string, r RuleConfig, written [len(ir.Phases)]map[ir.Variable]string) {
	if !r.From.Valid() {
		v.add(field+".from", ErrInvalidRuleVariable, r.Pos, "invalid source variable")
	}
	if !r.To.Valid() {
		v.add(field+".to", ErrInvalidRuleVariable, r.Pos, "invalid destination variable")
		return
	}
	if r.Phase != ir.PreTick && r.Phase != ir.PostTick {
		v.add(field+".phase", ErrInvalidRuleVariable, r.Pos, "unknown phase %s", r.Phase)
		return
	}
	if r.Transform != nil {
		if _, err := r.Transform.Build(); err != nil {
			v.add(field+".transform", ErrUnknownTransform, r.Pos, "%v", err)
		}
	}
	if prev, ok := written[r.Phase][r.To]; ok {
		v.add(field+".to", ErrConflictingDestination, r.Pos,
			"%s is already written in %s by aspect %q", r.To, r.Phase, prev)
		return
	}
	written[r.Phase][r.To] = aspect
}
