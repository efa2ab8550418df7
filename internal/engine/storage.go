package engine

import (
	"math"

	"github.com/wpine215/a32nx/internal/host"
	"github.com/wpine215/a32nx/internal/ir"
)

// Storage holds the current value of every variable known to a simulation,
// one float64 slot per variable. Slots are assigned by Intern during build
// and never move afterwards.
type Storage struct {
	index  map[ir.Variable]int
	vars   []ir.Variable
	values []float64
}

// NewStorage creates an empty storage.
func NewStorage() *Storage {
	return &Storage{index: make(map[ir.Variable]int)}
}

// Intern returns the slot of v, allocating one initialized to zero if v is
// new.
func (s *Storage) Intern(v ir.Variable) int {
	if slot, ok := s.index[v]; ok {
		return slot
	}
	slot := len(s.vars)
	s.index[v] = slot
	s.vars = append(s.vars, v)
	s.values = append(s.values, 0)
	return slot
}

// Slot returns the slot of v.
func (s *Storage) Slot(v ir.Variable) (int, bool) {
	slot, ok := s.index[v]
	return slot, ok
}

// Load returns the value in slot.
func (s *Storage) Load(slot int) float64 {
	return s.values[slot]
}

// Store sets the value in slot.
func (s *Storage) Store(slot int, value float64) {
	s.values[slot] = value
}

// Value returns the value of v and whether v has a slot.
func (s *Storage) Value(v ir.Variable) (float64, bool) {
	slot, ok := s.index[v]
	if !ok {
		return 0, false
	}
	return s.values[slot], true
}

// Variable returns the variable stored in slot.
func (s *Storage) Variable(slot int) ir.Variable {
	return s.vars[slot]
}

// Len returns the number of slots.
func (s *Storage) Len() int {
	return len(s.vars)
}

// Variables returns every interned variable in slot order.
func (s *Storage) Variables() []ir.Variable {
	out := make([]ir.Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

// ReadFrom loads the given slots from the host. A NaN or infinite host
// value fails with NON_FINITE_VALUE, like a rule producing one.
func (s *Storage) ReadFrom(h host.Variables, slots []int) error {
	for _, slot := range slots {
		v := s.vars[slot]
		value, err := h.Read(v)
		if err != nil {
			return NewHostReadError(v, err)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return NewNonFiniteReadError(v, value)
		}
		s.values[slot] = value
	}
	return nil
}

// WriteTo stores the given slots to the host.
func (s *Storage) WriteTo(h host.Variables, slots []int) error {
	for _, slot := range slots {
		v := s.vars[slot]
		if err := h.Write(v, s.values[slot]); err != nil {
			return NewHostWriteError(v, err)
		}
	}
	return nil
}
