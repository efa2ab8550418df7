package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wpine215/a32nx/internal/ir"
)

// Transform kinds understood by configuration files.
const (
	TransformIdentity = "identity"
	TransformPositive = "positive" // v if v > 0, else 0
	TransformStep     = "step"     // 1 if v > threshold, else 0
	TransformLinear   = "linear"   // scale*v + offset
	TransformInvert   = "invert"   // 1 - v
	TransformClamp    = "clamp"    // min(max(v, min), max)
	TransformAbs      = "abs"
)

// TransformSpec describes a Map transform in configuration.
//
// In CUE and YAML a transform is either a bare kind ("positive") or a struct
// carrying the kind and its parameters.
type TransformSpec struct {
	Kind      string   `json:"kind" yaml:"kind"`
	Threshold float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Scale     *float64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Offset    float64  `json:"offset,omitempty" yaml:"offset,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// UnmarshalYAML accepts the scalar shorthand as well as the mapping form.
func (s *TransformSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = TransformSpec{Kind: node.Value}
		return nil
	}
	type plain TransformSpec
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = TransformSpec(p)
	return nil
}

// Name is the stable transform name recorded in traces and configuration
// hashes. Two specs with the same name compute the same function.
func (s TransformSpec) Name() string {
	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	switch kind {
	case TransformStep:
		return fmt.Sprintf("step(%s)", formatFloat(s.Threshold))
	case TransformLinear:
		return fmt.Sprintf("linear(%s,%s)", formatFloat(s.scale()), formatFloat(s.Offset))
	case TransformClamp:
		lo, hi := s.bounds()
		return fmt.Sprintf("clamp(%s,%s)", formatFloat(lo), formatFloat(hi))
	default:
		return kind
	}
}

func (s TransformSpec) scale() float64 {
	if s.Scale == nil {
		return 1
	}
	return *s.Scale
}

func (s TransformSpec) bounds() (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if s.Min != nil {
		lo = *s.Min
	}
	if s.Max != nil {
		hi = *s.Max
	}
	return lo, hi
}

// Build returns the function described by the spec.
func (s TransformSpec) Build() (ir.Transform, error) {
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case TransformIdentity:
		return func(v float64) float64 { return v }, nil
	case TransformPositive:
		return func(v float64) float64 {
			if v > 0 {
				return v
			}
			return 0
		}, nil
	case TransformStep:
		t := s.Threshold
		return func(v float64) float64 {
			if v > t {
				return 1
			}
			return 0
		}, nil
	case TransformLinear:
		scale, offset := s.scale(), s.Offset
		return func(v float64) float64 { return scale*v + offset }, nil
	case TransformInvert:
		return func(v float64) float64 { return 1 - v }, nil
	case TransformClamp:
		lo, hi := s.bounds()
		if lo > hi {
			return nil, fmt.Errorf("clamp: min %v is greater than max %v", lo, hi)
		}
		return func(v float64) float64 { return min(max(v, lo), hi) }, nil
	case TransformAbs:
		return math.Abs, nil
	case "":
		return nil, fmt.Errorf("transform kind is required")
	default:
		return nil, fmt.Errorf("unknown transform %q", s.Kind)
	}
}

// formatFloat renders the shortest representation, so 0.5 and 0.50 share a
// transform name.
func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
