package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// VariableKind distinguishes host-addressed variables from aspect-local ones.
type VariableKind uint8

const (
	// KindAircraft is a host variable addressed by (name, unit, index).
	KindAircraft VariableKind = iota + 1
	// KindAspect is a named variable in the intermediate aspect space.
	KindAspect
)

// String returns the kind name.
func (k VariableKind) String() string {
	switch k {
	case KindAircraft:
		return "aircraft"
	case KindAspect:
		return "aspect"
	default:
		return fmt.Sprintf("VariableKind(%d)", k)
	}
}

// Variable is a handle to either a host variable or an aspect-local variable.
//
// Variable is comparable: two handles with the same kind, name, unit and
// index denote the same cell. The zero Variable is invalid.
type Variable struct {
	kind  VariableKind
	name  string
	unit  string
	index int
}

// Aircraft returns a handle to the host variable (name, unit, index).
func Aircraft(name, unit string, index int) Variable {
	return Variable{
		kind:  KindAircraft,
		name:  normalize(name),
		unit:  normalize(unit),
		index: index,
	}
}

// Aspect returns a handle to the aspect-local variable with the given name.
func Aspect(name string) Variable {
	return Variable{kind: KindAspect, name: normalize(name)}
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Kind returns the variable kind.
func (v Variable) Kind() VariableKind { return v.kind }

// Name returns the variable name.
func (v Variable) Name() string { return v.name }

// Unit returns the host unit. Empty for aspect variables.
func (v Variable) Unit() string { return v.unit }

// Index returns the host occurrence index. Zero for aspect variables.
func (v Variable) Index() int { return v.index }

// IsAircraft reports whether v addresses a host variable.
func (v Variable) IsAircraft() bool { return v.kind == KindAircraft }

// IsAspect reports whether v is aspect-local.
func (v Variable) IsAspect() bool { return v.kind == KindAspect }

// Valid reports whether v was built by Aircraft or Aspect with a non-empty
// name, and a non-negative index for host variables.
func (v Variable) Valid() bool {
	switch v.kind {
	case KindAircraft:
		return v.name != "" && v.unit != "" && v.index >= 0
	case KindAspect:
		return v.name != ""
	default:
		return false
	}
}

// String renders the handle as "A:NAME:index (unit)" or "L:NAME".
func (v Variable) String() string {
	switch v.kind {
	case KindAircraft:
		return fmt.Sprintf("A:%s:%d (%s)", v.name, v.index, v.unit)
	case KindAspect:
		return "L:" + v.name
	default:
		return "<invalid variable>"
	}
}

// Qualified renders aspect variables with the given prefix ("L:A32NX_NAME").
// Aircraft variables are rendered as by String.
func (v Variable) Qualified(prefix string) string {
	if v.kind == KindAspect {
		return "L:" + prefix + v.name
	}
	return v.String()
}

// canonical returns the variable as a canonical JSON object.
func (v Variable) canonical() map[string]any {
	if v.kind == KindAspect {
		return map[string]any{"aspect": v.name}
	}
	return map[string]any{
		"aircraft": v.name,
		"unit":     v.unit,
		"index":    v.index,
	}
}

var aircraftPattern = regexp.MustCompile(`^A:(.+):(\d+) \((.+)\)$`)

// ParseVariable parses the String form of a variable: "L:NAME" or
// "A:NAME:index (unit)".
func ParseVariable(s string) (Variable, error) {
	s = strings.TrimSpace(s)
	if name, ok := strings.CutPrefix(s, "L:"); ok {
		v := Aspect(name)
		if !v.Valid() {
			return Variable{}, fmt.Errorf("invalid aspect variable %q", s)
		}
		return v, nil
	}
	m := aircraftPattern.FindStringSubmatch(s)
	if m == nil {
		return Variable{}, fmt.Errorf("invalid variable %q, expected \"L:NAME\" or \"A:NAME:index (unit)\"", s)
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return Variable{}, fmt.Errorf("invalid variable %q: %w", s, err)
	}
	v := Aircraft(m[1], m[3], index)
	if !v.Valid() {
		return Variable{}, fmt.Errorf("invalid aircraft variable %q", s)
	}
	return v, nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Variable) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid variable")
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variable) UnmarshalText(text []byte) error {
	parsed, err := ParseVariable(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
