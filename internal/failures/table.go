package failures

import (
	"errors"
	"fmt"

	"github.com/wpine215/a32nx/internal/ir"
)

// ErrUnknownFailureCode is matched by every UnknownCodeError.
var ErrUnknownFailureCode = errors.New("unknown failure code")

// UnknownCodeError is returned by Lookup for a code with no binding.
type UnknownCodeError struct {
	Code int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown failure code %d", e.Code)
}

// Is makes errors.Is(err, ErrUnknownFailureCode) succeed.
func (e *UnknownCodeError) Is(target error) bool {
	return target == ErrUnknownFailureCode
}

// Binding maps one external failure code to a failure type.
type Binding struct {
	Code int  `json:"code" yaml:"code"`
	Type Type `json:"type" yaml:"type"`
}

// Table is an immutable lookup from external code to failure type.
// Several codes may map to the same type.
type Table struct {
	byCode   map[int]Type
	bindings []Binding
}

// NewTable builds a table from bindings, preserving their order.
// A repeated code is a DUPLICATE_FAILURE_CODE configuration error.
func NewTable(bindings []Binding) (*Table, error) {
	t := &Table{
		byCode:   make(map[int]Type, len(bindings)),
		bindings: make([]Binding, 0, len(bindings)),
	}
	for _, b := range bindings {
		if err := t.add(b); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) add(b Binding) error {
	if b.Type.IsZero() {
		return ir.NewConfigError(ir.ErrCodeInvalidFailureType, "failure code %d has no failure type", b.Code)
	}
	if existing, ok := t.byCode[b.Code]; ok {
		return ir.NewConfigError(ir.ErrCodeDuplicateFailureCode,
			"failure code %d already bound to %s", b.Code, existing)
	}
	t.byCode[b.Code] = b.Type
	t.bindings = append(t.bindings, b)
	return nil
}

// Lookup returns the failure type bound to code.
func (t *Table) Lookup(code int) (Type, error) {
	if t != nil {
		if ft, ok := t.byCode[code]; ok {
			return ft, nil
		}
	}
	return Type{}, &UnknownCodeError{Code: code}
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bindings)
}

// Bindings returns a copy of the bindings in registration order.
func (t *Table) Bindings() []Binding {
	if t == nil {
		return nil
	}
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

// Codes returns every code bound to ft in registration order.
func (t *Table) Codes(ft Type) []int {
	var codes []int
	for _, b := range t.Bindings() {
		if b.Type == ft {
			codes = append(codes, b.Code)
		}
	}
	return codes
}
