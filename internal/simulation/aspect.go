package simulation

import (
	"errors"
	"fmt"

	"github.com/wpine215/a32nx/internal/ir"
)

// AspectFunc declares the rules of one aspect. Returning an error aborts the
// build.
type AspectFunc func(a *AspectBuilder) error

// AspectBuilder is the write-only handle an aspect uses to declare rules.
// It cannot observe rules declared by other aspects. The first error is kept
// and later calls are ignored.
type AspectBuilder struct {
	name     string
	rules    []ir.Rule
	provided []ir.ProvidedVariable
	err      error
}

// Name returns the aspect name.
func (a *AspectBuilder) Name() string { return a.name }

// Err returns the first error recorded by the handle.
func (a *AspectBuilder) Err() error { return a.err }

// Copy copies src to dst before the model step.
func (a *AspectBuilder) Copy(src, dst ir.Variable) *AspectBuilder {
	return a.CopyOn(ir.PreTick, src, dst)
}

// CopyOn copies src to dst in the given phase.
func (a *AspectBuilder) CopyOn(phase ir.Phase, src, dst ir.Variable) *AspectBuilder {
	return a.add(ir.Rule{Kind: ir.RuleCopy, Phase: phase, Source: src, Destination: dst})
}

// Map writes fn(src) to dst in the given phase.
func (a *AspectBuilder) Map(phase ir.Phase, src ir.Variable, fn ir.Transform, dst ir.Variable) *AspectBuilder {
	return a.MapNamed(phase, src, "fn", fn, dst)
}

// MapNamed is Map with a transform name recorded in traces and the
// configuration hash.
func (a *AspectBuilder) MapNamed(phase ir.Phase, src ir.Variable, name string, fn ir.Transform, dst ir.Variable) *AspectBuilder {
	if fn == nil {
		return a.fail(fmt.Errorf("map %s -> %s: nil transform", src, dst))
	}
	return a.add(ir.Rule{
		Kind:          ir.RuleMap,
		Phase:         phase,
		Source:        src,
		Destination:   dst,
		Transform:     fn,
		TransformName: name,
	})
}

// ProvidesAircraftVariable registers a host variable the model may read.
func (a *AspectBuilder) ProvidesAircraftVariable(name, unit string, index int) *AspectBuilder {
	return a.ProvidesVariable(ir.ProvidedVariable{Variable: ir.Aircraft(name, unit, index)})
}

// ProvidesVariable registers a host variable with an initial value.
func (a *AspectBuilder) ProvidesVariable(p ir.ProvidedVariable) *AspectBuilder {
	if a.err != nil {
		return a
	}
	a.provided = append(a.provided, p)
	return a
}

func (a *AspectBuilder) add(r ir.Rule) *AspectBuilder {
	if a.err != nil {
		return a
	}
	if r.Phase != ir.PreTick && r.Phase != ir.PostTick {
		return a.fail(fmt.Errorf("rule %s: unknown phase", r))
	}
	for _, v := range []ir.Variable{r.Source, r.Destination} {
		if !v.Valid() {
			return a.fail(&ir.ConfigError{
				Code:     ir.ErrCodeInvalidVariable,
				Message:  fmt.Sprintf("rule %s references an invalid variable", r),
				Variable: v,
			})
		}
	}
	r.Aspect = a.name
	a.rules = append(a.rules, r)
	return a
}

func (a *AspectBuilder) fail(err error) *AspectBuilder {
	if a.err == nil {
		a.err = err
	}
	return a
}

// errAspectFailed wraps the error of a failed aspect.
func errAspectFailed(name string, err error) *ir.ConfigError {
	msg := "aspect configuration failed"
	var cfgErr *ir.ConfigError
	if errors.As(err, &cfgErr) {
		msg = fmt.Sprintf("aspect configuration failed with %s", cfgErr.Code)
	}
	return &ir.ConfigError{Code: ir.ErrCodeAspectFailed, Message: msg, Aspect: name, Err: err}
}
