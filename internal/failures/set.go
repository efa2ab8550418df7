package failures

import (
	"cmp"
	"slices"
)

// View is read-only access to the active failures.
type View interface {
	IsActive(Type) bool
	Active() []Type
}

// Set holds the currently active failures. Not safe for concurrent use; it is
// owned by the simulation and mutated only between ticks.
type Set struct {
	active map[Type]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{active: make(map[Type]struct{})}
}

// Activate marks ft active. It reports whether the set changed.
func (s *Set) Activate(ft Type) bool {
	if _, ok := s.active[ft]; ok {
		return false
	}
	s.active[ft] = struct{}{}
	return true
}

// Deactivate clears ft. It reports whether the set changed.
func (s *Set) Deactivate(ft Type) bool {
	if _, ok := s.active[ft]; !ok {
		return false
	}
	delete(s.active, ft)
	return true
}

// IsActive reports whether ft is active.
func (s *Set) IsActive(ft Type) bool {
	_, ok := s.active[ft]
	return ok
}

// Len returns the number of active failures.
func (s *Set) Len() int { return len(s.active) }

// Active returns the active failures in a stable order (kind, index, color).
func (s *Set) Active() []Type {
	out := make([]Type, 0, len(s.active))
	for ft := range s.active {
		out = append(out, ft)
	}
	slices.SortFunc(out, func(a, b Type) int {
		if c := cmp.Compare(a.kind, b.kind); c != 0 {
			return c
		}
		if c := cmp.Compare(a.index, b.index); c != 0 {
			return c
		}
		return cmp.Compare(a.color, b.color)
	})
	return out
}
