// Package querysql compiles queryir queries to parameterized SQLite
// statements over the samples table.
package querysql

import (
	"fmt"
	"strings"

	"github.com/wpine215/a32nx/internal/queryir"
)

// Columns are the selected columns, in scan order.
const Columns = "seq, variable, value"

// Compile converts a query to SQL and its parameters.
//
// Values are always bound as parameters, never interpolated. Every statement
// orders by seq and then variable so results are deterministic.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	var sb strings.Builder
	params := []any{q.Session}
	sb.WriteString("SELECT " + Columns + " FROM samples WHERE session_id = ?")

	if q.Filter != nil {
		where, filterParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" AND " + where)
		params = append(params, filterParams...)
	}

	sb.WriteString(" ORDER BY seq ASC, variable ASC COLLATE BINARY")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return sb.String(), params, nil
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.VariableIs:
		return "variable = ?", []any{pred.Name}, nil
	case queryir.VariableMatch:
		return "variable GLOB ?", []any{pred.Pattern}, nil
	case queryir.Compare:
		return "value " + string(pred.Op) + " ?", []any{pred.Value}, nil
	case queryir.SeqRange:
		if pred.To == 0 {
			return "seq >= ?", []any{pred.From}, nil
		}
		return "seq BETWEEN ? AND ?", []any{pred.From, pred.To}, nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		return compileJoined(pred.Predicates, " AND ")
	case queryir.Or:
		return compileJoined(pred.Predicates, " OR ")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileJoined parenthesizes the joined parts so nesting keeps its meaning.
func compileJoined(preds []queryir.Predicate, sep string) (string, []any, error) {
	parts := make([]string, 0, len(preds))
	var params []any
	for _, p := range preds {
		sql, ps, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}
