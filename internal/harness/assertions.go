package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/wpine215/a32nx/internal/failures"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Trace for context, may be nil
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventTick:
				fmt.Fprintf(&buf, "  [%d] tick %dms\n", event.Seq, event.DeltaMS)
			case EventFailure:
				fmt.Fprintf(&buf, "  [%d] failure %d %s active=%t\n", event.Seq, event.Code, event.Failure, event.Active)
			}
		}
	}

	return buf.String()
}

func within(expected, actual, tolerance float64) bool {
	return math.Abs(expected-actual) <= tolerance
}

// assertValue checks a simulation storage value.
func assertValue(h *Harness, a Assertion) error {
	if h.sim == nil {
		return &AssertionError{Type: a.Type, Expected: "a built simulation", Actual: "build failed"}
	}
	actual, ok := h.sim.Value(*a.Variable)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", *a.Variable, *a.Value),
			Actual:   "variable is not declared",
		}
	}
	if !within(*a.Value, actual, a.Tolerance) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", *a.Variable, *a.Value),
			Actual:   fmt.Sprintf("%s = %v", *a.Variable, actual),
		}
	}
	return nil
}

// assertHost checks a host variable. A variable the simulation never wrote
// and the scenario never set fails.
func assertHost(h *Harness, a Assertion) error {
	actual, ok := h.host.Get(*a.Variable)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", *a.Variable, *a.Value),
			Actual:   "not present on the host",
		}
	}
	if !within(*a.Value, actual, a.Tolerance) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %v", *a.Variable, *a.Value),
			Actual:   fmt.Sprintf("%s = %v", *a.Variable, actual),
		}
	}
	return nil
}

func assertFailureActive(h *Harness, a Assertion) error {
	ft, err := failures.ParseType(a.Failure)
	if err != nil {
		return fmt.Errorf("failure_active: %w", err)
	}
	if h.sim == nil {
		return &AssertionError{Type: a.Type, Expected: "a built simulation", Actual: "build failed"}
	}
	if active := h.sim.IsFailureActive(ft); active != *a.Active {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s active=%t", ft, *a.Active),
			Actual:   fmt.Sprintf("%s active=%t", ft, active),
		}
	}
	return nil
}

func assertError(result *Result, a Assertion) error {
	if result.ErrorCode != a.Code {
		actual := result.ErrorCode
		if actual == "" {
			actual = "no error"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("error %s", a.Code),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceCount checks the number of trace events of one type.
func assertTraceCount(result *Result, a Assertion) error {
	if count := result.Count(a.Event); count != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s events", *a.Count, a.Event),
			Actual:   fmt.Sprintf("%d %s events", count, a.Event),
			Trace:    result.Trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result and the
// final simulation state. Returns a slice of error messages for failed
// assertions. A runtime error no assertion expects is reported as well.
func EvaluateAssertions(result *Result, assertions []Assertion, h *Harness) []string {
	var errs []string

	if result.ErrorCode != "" && !expectsErrorCode(assertions) {
		errs = append(errs, fmt.Sprintf("unexpected error %s", result.ErrorCode))
	}

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertValue:
			err = assertValue(h, assertion)
		case AssertHost:
			err = assertHost(h, assertion)
		case AssertFailureActive:
			err = assertFailureActive(h, assertion)
		case AssertError:
			err = assertError(result, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func expectsErrorCode(assertions []Assertion) bool {
	for _, a := range assertions {
		if a.Type == AssertError {
			return true
		}
	}
	return false
}
