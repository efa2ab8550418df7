package ir

import (
	"fmt"
	"strings"
)

// Phase orders a synchronization rule relative to the model step.
type Phase uint8

const (
	// PreTick rules run before the model is stepped.
	PreTick Phase = iota
	// PostTick rules run after the model is stepped.
	PostTick
)

// Phases lists every phase in execution order.
var Phases = [...]Phase{PreTick, PostTick}

// String returns the configuration spelling of the phase.
func (p Phase) String() string {
	switch p {
	case PreTick:
		return "pre_tick"
	case PostTick:
		return "post_tick"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// ParsePhase accepts "pre_tick"/"post_tick" (case-insensitive, "-" allowed).
func ParsePhase(s string) (Phase, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "pre_tick", "pretick", "":
		return PreTick, nil
	case "post_tick", "posttick":
		return PostTick, nil
	default:
		return PreTick, fmt.Errorf("invalid phase %q, must be \"pre_tick\" or \"post_tick\"", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RuleKind distinguishes verbatim copies from transformed ones.
type RuleKind uint8

const (
	// RuleCopy writes the source value verbatim to the destination.
	RuleCopy RuleKind = iota + 1
	// RuleMap writes Transform(source) to the destination.
	RuleMap
)

// String returns the rule kind name.
func (k RuleKind) String() string {
	switch k {
	case RuleCopy:
		return "copy"
	case RuleMap:
		return "map"
	default:
		return fmt.Sprintf("RuleKind(%d)", k)
	}
}

// Transform is a pure numeric function applied by a Map rule.
type Transform func(float64) float64

// Rule is a single synchronization between two variables.
//
// Rules within a phase must be independent: no rule may read another rule's
// destination in the same phase.
type Rule struct {
	Kind        RuleKind
	Phase       Phase
	Source      Variable
	Destination Variable
	// Transform is set for RuleMap only.
	Transform Transform
	// TransformName describes Transform in traces and configuration hashes.
	TransformName string
	// Aspect names the aspect that declared the rule.
	Aspect string
}

// String renders the rule for logs and error messages.
func (r Rule) String() string {
	if r.Kind == RuleMap {
		name := r.TransformName
		if name == "" {
			name = "fn"
		}
		return fmt.Sprintf("%s map %s -[%s]-> %s", r.Phase, r.Source, name, r.Destination)
	}
	return fmt.Sprintf("%s copy %s -> %s", r.Phase, r.Source, r.Destination)
}

func (r Rule) canonical() map[string]any {
	obj := map[string]any{
		"kind":        r.Kind.String(),
		"phase":       r.Phase.String(),
		"source":      r.Source.canonical(),
		"destination": r.Destination.canonical(),
		"aspect":      r.Aspect,
	}
	if r.Kind == RuleMap {
		obj["transform"] = r.TransformName
	}
	return obj
}
