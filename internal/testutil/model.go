// Package testutil provides deterministic models, recorders and loggers for
// tests across packages.
package testutil

import (
	"io"
	"log/slog"
	"time"

	"github.com/wpine215/a32nx/internal/ir"
	"github.com/wpine215/a32nx/internal/model"
)

// Copy is one read-then-write performed by a ScriptedModel step.
type Copy struct {
	From ir.Variable
	To   ir.Variable
	// Scale multiplies the value read; zero means 1.
	Scale float64
}

// ScriptedModel performs a fixed list of copies on every step and records
// how it was called.
type ScriptedModel struct {
	Copies []Copy
	// Writes are constant writes applied after the copies.
	Writes map[ir.Variable]float64
	// Err, when set, is returned by every step after the copies.
	Err error

	Steps  int
	Deltas []time.Duration
	// Seen holds the value of every From variable on the last step.
	Seen map[ir.Variable]float64
}

// Step implements model.Model.
func (m *ScriptedModel) Step(delta time.Duration, in model.Inputs, out model.Outputs) error {
	m.Steps++
	m.Deltas = append(m.Deltas, delta)
	if m.Seen == nil {
		m.Seen = make(map[ir.Variable]float64)
	}
	for _, c := range m.Copies {
		v, err := in.Read(c.From)
		if err != nil {
			return err
		}
		m.Seen[c.From] = v
		scale := c.Scale
		if scale == 0 {
			scale = 1
		}
		if err := out.Write(c.To, v*scale); err != nil {
			return err
		}
	}
	for v, value := range m.Writes {
		if err := out.Write(v, value); err != nil {
			return err
		}
	}
	return m.Err
}

// Factory returns a model.Factory handing out m and counting invocations.
func Factory(m model.Model, calls *int) model.Factory {
	return func(*model.Context) (model.Model, error) {
		if calls != nil {
			*calls++
		}
		return m, nil
	}
}

// NopFactory returns a factory for a model that does nothing.
func NopFactory() model.Factory {
	return Factory(model.StepFunc(func(time.Duration, model.Inputs, model.Outputs) error {
		return nil
	}), nil)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
