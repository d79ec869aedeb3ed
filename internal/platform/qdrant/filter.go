package qdrant

import (
	"errors"

	"github.com/yungbote/lexi-backend/internal/platform/vectorindex"
)

// translateFilter compiles a filter map into Qdrant's must/should/must_not form.
// An empty filter translates to nil so callers can omit the field.
func translateFilter(op string, filter map[string]any) (map[string]any, error) {
	parsed, err := vectorindex.ParseFilter(filter)
	if err != nil {
		code := OperationErrorValidation
		var fe *vectorindex.FilterError
		if errors.As(err, &fe) && fe.Code == vectorindex.FilterErrorUnsupported {
			code = OperationErrorUnsupportedFilter
		}
		return nil, opErr(op, code, "translate filter failed", err)
	}
	if parsed.Empty() {
		return nil, nil
	}
	return filterBody(parsed), nil
}

func filterBody(f vectorindex.Filter) map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = clauseBodies(f.Must)
	}
	if len(f.Should) > 0 {
		out["should"] = clauseBodies(f.Should)
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = clauseBodies(f.MustNot)
	}
	return out
}

func clauseBodies(clauses []vectorindex.Clause) []any {
	out := make([]any, 0, len(clauses))
	for _, c := range clauses {
		switch {
		case c.Sub != nil:
			out = append(out, filterBody(*c.Sub))
		case c.Cond != nil && c.Cond.Kind == vectorindex.ConditionIn:
			out = append(out, map[string]any{
				"key":   c.Cond.Field,
				"match": map[string]any{"any": c.Cond.Values},
			})
		case c.Cond != nil:
			out = append(out, matchCondition(c.Cond.Field, c.Cond.Values[0]))
		}
	}
	return out
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}
