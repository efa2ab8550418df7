// Package host defines the bridge's view of the simulation host: variable
// access, index validation and the event stream, plus an in-memory host used
// by the harness, the CLI and tests.
package host

import (
	"errors"
	"fmt"

	"github.com/wpine215/a32nx/internal/ir"
)

// Variables reads and writes host variables addressed by (name, unit, index).
type Variables interface {
	Read(v ir.Variable) (float64, error)
	Write(v ir.Variable, value float64) error
}

// IndexKind names a family of host indices the builder validates.
type IndexKind uint8

const (
	// IndexElectricalBus is a "BUS CONNECTION ON" index.
	IndexElectricalBus IndexKind = iota + 1
	// IndexFuelValve is a "FUELSYSTEM VALVE OPEN" index.
	IndexFuelValve
)

func (k IndexKind) String() string {
	switch k {
	case IndexElectricalBus:
		return "electrical bus"
	case IndexFuelValve:
		return "fuel valve"
	default:
		return fmt.Sprintf("IndexKind(%d)", k)
	}
}

// IndexPolicy validates host indices at build time.
type IndexPolicy interface {
	CheckIndex(kind IndexKind, index int) error
}

// Host is everything the builder and simulation need from the host.
type Host interface {
	Variables
	IndexPolicy
}

// ErrIndexOutOfRange is matched by errors returned from Limits.CheckIndex.
var ErrIndexOutOfRange = errors.New("host index out of range")

// ErrUnknownVariable is returned by a strict Memory host for variables it
// was never given.
var ErrUnknownVariable = errors.New("unknown host variable")

// Limits is an IndexPolicy accepting indices 1..Max per kind.
type Limits struct {
	ElectricalBuses int
	FuelValves      int
}

// DefaultLimits covers the bus connection and fuel valve ranges of the
// A320 host configuration.
var DefaultLimits = Limits{ElectricalBuses: 32, FuelValves: 16}

// CheckIndex implements IndexPolicy.
func (l Limits) CheckIndex(kind IndexKind, index int) error {
	var maxIndex int
	switch kind {
	case IndexElectricalBus:
		maxIndex = l.ElectricalBuses
	case IndexFuelValve:
		maxIndex = l.FuelValves
	default:
		return fmt.Errorf("%w: unsupported index kind %s", ErrIndexOutOfRange, kind)
	}
	if index < 1 || index > maxIndex {
		return fmt.Errorf("%w: %s index %d not in [1, %d]", ErrIndexOutOfRange, kind, index, maxIndex)
	}
	return nil
}
