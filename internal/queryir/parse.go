package queryir

import (
	"fmt"
	"strconv"
	"strings"
)

// Two-character operators come first so ">=" is not read as ">".
var operators = []string{">=", "<=", "!=", "=", "<", ">", "~"}

// ParseFilter parses comma-separated filter terms into a predicate. The
// terms are joined with And; an empty expression gives nil.
func ParseFilter(expr string) (Predicate, error) {
	var preds []Predicate
	for term := range strings.SplitSeq(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		p, err := parseTerm(term)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return All(preds...), nil
}

func parseTerm(term string) (Predicate, error) {
	field, op, operand, err := splitTerm(term)
	if err != nil {
		return nil, err
	}

	switch field {
	case "variable":
		switch op {
		case "=":
			return VariableIs{Name: operand}, nil
		case "~":
			return VariableMatch{Pattern: operand}, nil
		}
	case "value":
		if op == "~" {
			break
		}
		n, err := strconv.ParseFloat(operand, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: value must be a number", term)
		}
		return Compare{Op: Op(op), Value: n}, nil
	case "seq":
		n, err := strconv.ParseInt(operand, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%q: seq must be a non-negative integer", term)
		}
		return seqRange(term, op, n)
	}
	return nil, fmt.Errorf("%q: operator %s is not supported for %s", term, op, field)
}

// seqRange turns a seq comparison into a closed interval. seq starts at 1,
// so an upper bound below 1 can never match.
func seqRange(term, op string, n int64) (Predicate, error) {
	upper := func(to int64) (Predicate, error) {
		if to < 1 {
			return nil, fmt.Errorf("%q: no tick has seq below 1", term)
		}
		return SeqRange{From: 0, To: to}, nil
	}
	switch op {
	case "=":
		if n < 1 {
			return upper(n)
		}
		return SeqRange{From: n, To: n}, nil
	case ">=":
		return SeqRange{From: n}, nil
	case ">":
		return SeqRange{From: n + 1}, nil
	case "<=":
		return upper(n)
	case "<":
		return upper(n - 1)
	}
	return nil, fmt.Errorf("%q: operator %s is not supported for seq", term, op)
}

func splitTerm(term string) (field, op, operand string, err error) {
	for _, f := range []string{"variable", "value", "seq"} {
		rest, ok := strings.CutPrefix(term, f)
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, " ")
		for _, candidate := range operators {
			if after, ok := strings.CutPrefix(rest, candidate); ok {
				operand = strings.TrimSpace(after)
				if operand == "" {
					return "", "", "", fmt.Errorf("%q: missing operand", term)
				}
				return f, candidate, operand, nil
			}
		}
		return "", "", "", fmt.Errorf("%q: expected an operator after %s", term, f)
	}
	return "", "", "", fmt.Errorf("%q: field must be variable, value or seq", term)
}
