// Package failures maps the host's numeric failure codes onto the aircraft
// systems model's failure types and tracks which failures are active.
package failures

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a family of failures.
type Kind uint8

const (
	// KindTransformerRectifier is a transformer rectifier unit failure,
	// identified by unit number.
	KindTransformerRectifier Kind = iota + 1
	// KindReservoirLeak is a hydraulic reservoir fluid leak.
	KindReservoirLeak
	// KindReservoirAirLeak is a hydraulic reservoir air pressurization leak.
	KindReservoirAirLeak
	// KindReservoirReturnLeak is a hydraulic reservoir return line leak.
	KindReservoirReturnLeak
)

var kindNames = map[Kind]string{
	KindTransformerRectifier: "TransformerRectifier",
	KindReservoirLeak:        "ReservoirLeak",
	KindReservoirAirLeak:     "ReservoirAirLeak",
	KindReservoirReturnLeak:  "ReservoirReturnLeak",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// colored reports whether the kind is parameterized by a hydraulic circuit.
func (k Kind) colored() bool {
	return k == KindReservoirLeak || k == KindReservoirAirLeak || k == KindReservoirReturnLeak
}

// HydraulicColor names one of the three hydraulic circuits.
type HydraulicColor uint8

const (
	Green HydraulicColor = iota + 1
	Blue
	Yellow
)

func (c HydraulicColor) String() string {
	switch c {
	case Green:
		return "Green"
	case Blue:
		return "Blue"
	case Yellow:
		return "Yellow"
	default:
		return fmt.Sprintf("HydraulicColor(%d)", c)
	}
}

// ParseHydraulicColor parses "Green", "Blue" or "Yellow" (case-insensitive).
func ParseHydraulicColor(s string) (HydraulicColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "green":
		return Green, nil
	case "blue":
		return Blue, nil
	case "yellow":
		return Yellow, nil
	default:
		return 0, fmt.Errorf("unknown hydraulic color %q", s)
	}
}

// Type is an internal failure identifier. Type is comparable and can be used
// as a map key. Indexed kinds carry a unit number; colored kinds carry a
// hydraulic circuit.
type Type struct {
	kind  Kind
	index int
	color HydraulicColor
}

// TransformerRectifier returns the failure of transformer rectifier n.
func TransformerRectifier(n int) Type {
	return Type{kind: KindTransformerRectifier, index: n}
}

// ReservoirLeak returns the reservoir leak failure of circuit c.
func ReservoirLeak(c HydraulicColor) Type {
	return Type{kind: KindReservoirLeak, color: c}
}

// ReservoirAirLeak returns the reservoir air leak failure of circuit c.
func ReservoirAirLeak(c HydraulicColor) Type {
	return Type{kind: KindReservoirAirLeak, color: c}
}

// ReservoirReturnLeak returns the reservoir return leak failure of circuit c.
func ReservoirReturnLeak(c HydraulicColor) Type {
	return Type{kind: KindReservoirReturnLeak, color: c}
}

// Kind returns the failure family.
func (t Type) Kind() Kind { return t.kind }

// Index returns the unit number of indexed kinds, zero otherwise.
func (t Type) Index() int { return t.index }

// Color returns the hydraulic circuit of colored kinds, zero otherwise.
func (t Type) Color() HydraulicColor { return t.color }

// IsZero reports whether t is the zero Type.
func (t Type) IsZero() bool { return t == Type{} }

// String renders the type as "TransformerRectifier(1)" or "ReservoirLeak(Green)".
// ParseType accepts the same form.
func (t Type) String() string {
	if t.kind.colored() {
		return fmt.Sprintf("%s(%s)", t.kind, t.color)
	}
	return fmt.Sprintf("%s(%d)", t.kind, t.index)
}

// ParseType parses the String form of a Type.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return Type{}, fmt.Errorf("invalid failure type %q, expected Kind(arg)", s)
	}
	name, arg := s[:open], strings.TrimSpace(s[open+1:len(s)-1])

	var kind Kind
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			kind = k
			break
		}
	}
	if kind == 0 {
		return Type{}, fmt.Errorf("unknown failure kind %q", name)
	}

	if kind.colored() {
		c, err := ParseHydraulicColor(arg)
		if err != nil {
			return Type{}, fmt.Errorf("failure type %q: %w", s, err)
		}
		return Type{kind: kind, color: c}, nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return Type{}, fmt.Errorf("failure type %q: unit number must be a positive integer", s)
	}
	return Type{kind: kind, index: n}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
