package engine

import (
	"fmt"
	"math"

	"github.com/wpine215/a32nx/internal/ir"
)

type compiledRule struct {
	rule ir.Rule
	src  int
	dst  int
}

// Program is the compiled form of one phase's rules.
type Program struct {
	phase   ir.Phase
	rules   []compiledRule
	scratch []float64

	hostSources      []int
	hostDestinations []int
}

// Compile interns every variable the rules touch into s and returns the
// program for phase. Rules keep their order. Two rules writing the same
// destination are a CONFLICTING_DESTINATION configuration error.
func Compile(phase ir.Phase, rules []ir.Rule, s *Storage) (*Program, error) {
	p := &Program{
		phase:   phase,
		rules:   make([]compiledRule, 0, len(rules)),
		scratch: make([]float64, len(rules)),
	}

	writers := make(map[ir.Variable]ir.Rule, len(rules))
	seenSource := make(map[int]bool)
	seenDestination := make(map[int]bool)

	for _, r := range rules {
		if r.Phase != phase {
			return nil, fmt.Errorf("rule %q compiled into %s program", r.String(), phase)
		}
		if err := checkRule(r); err != nil {
			return nil, err
		}
		if prev, ok := writers[r.Destination]; ok {
			return nil, &ir.ConfigError{
				Code: ir.ErrCodeConflictingDestination,
				Message: fmt.Sprintf("%s is written by both %q (aspect %q) and %q in %s",
					r.Destination, prev.String(), prev.Aspect, r.String(), phase),
				Variable: r.Destination,
				Aspect:   r.Aspect,
			}
		}
		writers[r.Destination] = r

		cr := compiledRule{rule: r, src: s.Intern(r.Source), dst: s.Intern(r.Destination)}
		p.rules = append(p.rules, cr)

		if r.Source.IsAircraft() && !seenSource[cr.src] {
			seenSource[cr.src] = true
			p.hostSources = append(p.hostSources, cr.src)
		}
		if r.Destination.IsAircraft() && !seenDestination[cr.dst] {
			seenDestination[cr.dst] = true
			p.hostDestinations = append(p.hostDestinations, cr.dst)
		}
	}
	return p, nil
}

func checkRule(r ir.Rule) error {
	for _, v := range []ir.Variable{r.Source, r.Destination} {
		if !v.Valid() {
			return &ir.ConfigError{
				Code:     ir.ErrCodeInvalidVariable,
				Message:  fmt.Sprintf("rule %q references an invalid variable", r.String()),
				Variable: v,
				Aspect:   r.Aspect,
			}
		}
	}
	switch r.Kind {
	case ir.RuleCopy:
	case ir.RuleMap:
		if r.Transform == nil {
			return &ir.ConfigError{
				Code:    ir.ErrCodeInvalidRule,
				Message: fmt.Sprintf("map rule %q has no transform", r.String()),
				Aspect:  r.Aspect,
			}
		}
	default:
		return &ir.ConfigError{
			Code:    ir.ErrCodeInvalidRule,
			Message: fmt.Sprintf("rule %q has unknown kind %s", r.String(), r.Kind),
			Aspect:  r.Aspect,
		}
	}
	return nil
}

// Run executes the program against s. Every source is read before any
// destination is written. If a transform yields NaN or an infinity no
// destination is written and a NON_FINITE_VALUE RuntimeError is returned.
func (p *Program) Run(s *Storage) error {
	for i := range p.rules {
		p.scratch[i] = s.values[p.rules[i].src]
	}
	for i := range p.rules {
		r := &p.rules[i].rule
		if r.Kind != ir.RuleMap {
			continue
		}
		value := r.Transform(p.scratch[i])
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return NewNonFiniteError(*r, value)
		}
		p.scratch[i] = value
	}
	for i := range p.rules {
		s.values[p.rules[i].dst] = p.scratch[i]
	}
	return nil
}

// Phase returns the phase the program was compiled for.
func (p *Program) Phase() ir.Phase { return p.phase }

// Len returns the number of rules.
func (p *Program) Len() int { return len(p.rules) }

// Rules returns the rules in execution order.
func (p *Program) Rules() []ir.Rule {
	out := make([]ir.Rule, len(p.rules))
	for i, cr := range p.rules {
		out[i] = cr.rule
	}
	return out
}

// HostSources returns the slots of host variables the program reads, in
// first-use order.
func (p *Program) HostSources() []int { return p.hostSources }

// HostDestinations returns the slots of host variables the program writes,
// in first-use order.
func (p *Program) HostDestinations() []int { return p.hostDestinations }

// Writes reports whether the program writes v.
func (p *Program) Writes(s *Storage, v ir.Variable) bool {
	slot, ok := s.Slot(v)
	if !ok {
		return false
	}
	for _, cr := range p.rules {
		if cr.dst == slot {
			return true
		}
	}
	return false
}
