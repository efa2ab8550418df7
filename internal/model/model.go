// Package model defines the contract between the bridge and the aircraft
// systems model it steps once per host frame.
package model

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/wpine215/a32nx/internal/failures"
	"github.com/wpine215/a32nx/internal/ir"
)

// Inputs is the model's read view for one step. Aspect variables are read
// by name; aircraft variables only if they were registered as provided.
type Inputs interface {
	Read(v ir.Variable) (float64, error)
}

// Outputs is the model's write view for one step. Only aspect variables
// declared by a rule or wiring binding can be written.
type Outputs interface {
	Write(v ir.Variable, value float64) error
}

// Model is an aircraft systems model. Step advances it by delta of simulated
// time. A returned error stops the simulation.
type Model interface {
	Step(delta time.Duration, in Inputs, out Outputs) error
}

// StepFunc adapts a function to Model.
type StepFunc func(delta time.Duration, in Inputs, out Outputs) error

// Step implements Model.
func (f StepFunc) Step(delta time.Duration, in Inputs, out Outputs) error {
	return f(delta, in, out)
}

// Factory constructs the model. It is invoked exactly once per successful
// build, after every configuration check has passed.
type Factory func(ctx *Context) (Model, error)

// Context is what the builder hands the factory.
type Context struct {
	// Rand is a deterministic source seeded from the build options.
	Rand *rand.Rand
	// Logger is the simulation logger.
	Logger *slog.Logger
	// Settings are read-only model settings.
	Settings Settings
	// Prefix is prepended to aspect variable names on the host ("A32NX_").
	Prefix string
	// Wiring is the electrical bus and APU wiring of this build.
	Wiring ir.Wiring
	// Failures reports which failures are active. It changes between steps.
	Failures failures.View
}

// NewRand returns the deterministic random source used for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Settings is a set of named numeric model settings.
type Settings map[string]float64

// Get returns the setting or def when it is absent.
func (s Settings) Get(name string, def float64) float64 {
	if v, ok := s[name]; ok {
		return v
	}
	return def
}

// Bool returns the setting as a boolean (non-zero is true).
func (s Settings) Bool(name string, def bool) bool {
	v, ok := s[name]
	if !ok {
		return def
	}
	return v != 0
}

// Clone returns a copy of s.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ReadBool reads v from in as a boolean (value > 0).
func ReadBool(in Inputs, v ir.Variable) (bool, error) {
	value, err := in.Read(v)
	if err != nil {
		return false, err
	}
	return value > 0, nil
}

// WriteBool writes 1 or 0 to v.
func WriteBool(out Outputs, v ir.Variable, on bool) error {
	if on {
		return out.Write(v, 1)
	}
	return out.Write(v, 0)
}
