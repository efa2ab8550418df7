package queryir

import (
	"errors"
	"fmt"
	"math"
)

// Validate checks a query before compilation and reports every problem
// found, joined into one error.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	if q.Session == "" {
		v.addError("session is required")
	}
	if q.Limit < 0 {
		v.addError("limit must be non-negative, got %d", q.Limit)
	}
	if q.Filter != nil {
		v.validatePredicate(q.Filter)
	}
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addError("nil predicate")
	case VariableIs:
		if pred.Name == "" {
			v.addError("variable name is empty")
		}
	case VariableMatch:
		if pred.Pattern == "" {
			v.addError("variable pattern is empty")
		}
	case Compare:
		if !pred.Op.Valid() {
			v.addError("unknown comparison operator %q", pred.Op)
		}
		if math.IsNaN(pred.Value) || math.IsInf(pred.Value, 0) {
			v.addError("value %v is not finite", pred.Value)
		}
	case SeqRange:
		if pred.From < 0 {
			v.addError("seq range start %d is negative", pred.From)
		}
		if pred.To != 0 && pred.To < pred.From {
			v.addError("seq range [%d, %d] is empty", pred.From, pred.To)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		if len(pred.Predicates) == 0 {
			v.addError("empty Or matches nothing")
		}
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addError("unknown predicate type %T", p)
	}
}
