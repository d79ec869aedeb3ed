package vectorindex

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Filter maps use a small Mongo-like language:
//
//	{"sensitivity": {"$in": ["public", "internal"]}, "matter_id": "m-1"}
//	{"$and": [...]}, {"$or": [...]}, {"$not": {...}}, {"field": {"$eq"|"$ne": v}}
const (
	OpAnd = "$and"
	OpOr  = "$or"
	OpNot = "$not"
	OpIn  = "$in"
	OpEq  = "$eq"
	OpNe  = "$ne"
)

type ConditionKind string

const (
	ConditionEq ConditionKind = "eq"
	ConditionIn ConditionKind = "in"
)

// Condition matches one payload field. Eq carries exactly one value.
type Condition struct {
	Field  string
	Kind   ConditionKind
	Values []any
}

// Clause is either a field condition or a nested filter.
type Clause struct {
	Cond *Condition
	Sub  *Filter
}

type Filter struct {
	Must    []Clause
	Should  []Clause
	MustNot []Clause
}

func (f Filter) Empty() bool {
	return len(f.Must) == 0 && len(f.Should) == 0 && len(f.MustNot) == 0
}

type FilterErrorCode string

const (
	FilterErrorInvalid     FilterErrorCode = "invalid"
	FilterErrorUnsupported FilterErrorCode = "unsupported"
)

type FilterError struct {
	Code    FilterErrorCode
	Message string
	Cause   error
}

func (e *FilterError) Error() string {
	if e == nil {
		return "invalid filter"
	}
	if e.Cause != nil {
		return fmt.Sprintf("filter %s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("filter %s: %s", e.Code, e.Message)
}

func (e *FilterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func invalid(msg string, cause error) error {
	return &FilterError{Code: FilterErrorInvalid, Message: msg, Cause: cause}
}

// Eq builds {field: value}.
func Eq(field string, value any) map[string]any {
	return map[string]any{field: value}
}

// In builds {field: {"$in": values}}.
func In(field string, values ...any) map[string]any {
	return map[string]any{field: map[string]any{OpIn: values}}
}

// And combines filters. Disjoint field sets are merged into one map; anything
// else is wrapped in $and.
func And(filters ...map[string]any) map[string]any {
	merged := map[string]any{}
	items := make([]any, 0, len(filters))
	disjoint := true
	for _, f := range filters {
		if len(f) == 0 {
			continue
		}
		items = append(items, f)
		for k, v := range f {
			if _, dup := merged[k]; dup || strings.HasPrefix(k, "$") {
				disjoint = false
			}
			merged[k] = v
		}
	}
	if disjoint || len(items) <= 1 {
		if len(items) == 1 {
			return items[0].(map[string]any)
		}
		return merged
	}
	return map[string]any{OpAnd: items}
}

// ParseFilter compiles a filter map. Keys are visited in sorted order so the
// compiled form is deterministic.
func ParseFilter(filter map[string]any) (Filter, error) {
	out := Filter{}
	if len(filter) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := filter[key]
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if !strings.HasPrefix(k, "$") {
			if err := parseField(&out, k, value); err != nil {
				return Filter{}, err
			}
			continue
		}
		switch strings.ToLower(k) {
		case OpAnd, OpOr:
			items, err := toObjectSlice(value)
			if err != nil {
				return Filter{}, invalid(fmt.Sprintf("operator %s expects array of objects", k), err)
			}
			for _, item := range items {
				sub, err := ParseFilter(item)
				if err != nil {
					return Filter{}, err
				}
				clause := Clause{Sub: &sub}
				if strings.ToLower(k) == OpAnd {
					out.Must = append(out.Must, clause)
				} else {
					out.Should = append(out.Should, clause)
				}
			}
		case OpNot:
			item, ok := value.(map[string]any)
			if !ok {
				return Filter{}, invalid(fmt.Sprintf("operator %s expects an object", OpNot), nil)
			}
			sub, err := ParseFilter(item)
			if err != nil {
				return Filter{}, err
			}
			out.MustNot = append(out.MustNot, Clause{Sub: &sub})
		default:
			return Filter{}, &FilterError{
				Code:    FilterErrorUnsupported,
				Message: fmt.Sprintf("unsupported top-level operator %q", k),
			}
		}
	}
	return out, nil
}

func parseField(out *Filter, field string, value any) error {
	ops, isOpMap := value.(map[string]any)
	if !isOpMap {
		scalar, ok := ScalarValue(value)
		if !ok {
			return invalid(fmt.Sprintf("field %q expects scalar value or operator object", field), nil)
		}
		out.Must = append(out.Must, eqClause(field, scalar))
		return nil
	}
	if len(ops) == 0 {
		return invalid(fmt.Sprintf("field %q has empty operator map", field), nil)
	}
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	for _, op := range names {
		opVal := ops[op]
		switch strings.ToLower(strings.TrimSpace(op)) {
		case OpEq, OpNe:
			scalar, ok := ScalarValue(opVal)
			if !ok {
				return invalid(fmt.Sprintf("operator %s for field %q expects scalar value", op, field), nil)
			}
			if strings.ToLower(op) == OpEq {
				out.Must = append(out.Must, eqClause(field, scalar))
			} else {
				out.MustNot = append(out.MustNot, eqClause(field, scalar))
			}
		case OpIn:
			values, err := scalarSlice(opVal)
			if err != nil {
				return invalid(fmt.Sprintf("operator %s for field %q expects scalar array", OpIn, field), err)
			}
			if len(values) == 0 {
				return invalid(fmt.Sprintf("operator %s for field %q cannot be empty", OpIn, field), nil)
			}
			out.Must = append(out.Must, Clause{Cond: &Condition{Field: field, Kind: ConditionIn, Values: values}})
		default:
			return &FilterError{
				Code:    FilterErrorUnsupported,
				Message: fmt.Sprintf("unsupported operator %q for field %q", op, field),
			}
		}
	}
	return nil
}

func eqClause(field string, value any) Clause {
	return Clause{Cond: &Condition{Field: field, Kind: ConditionEq, Values: []any{value}}}
}

// Matches evaluates the filter against a payload. A missing field never matches
// a condition.
func (f Filter) Matches(payload map[string]any) bool {
	for _, c := range f.Must {
		if !c.matches(payload) {
			return false
		}
	}
	if len(f.Should) > 0 {
		hit := false
		for _, c := range f.Should {
			if c.matches(payload) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, c := range f.MustNot {
		if c.matches(payload) {
			return false
		}
	}
	return true
}

func (c Clause) matches(payload map[string]any) bool {
	if c.Sub != nil {
		return c.Sub.Matches(payload)
	}
	if c.Cond == nil {
		return true
	}
	raw, ok := payload[c.Cond.Field]
	if !ok {
		return false
	}
	got, ok := ScalarValue(raw)
	if !ok {
		return false
	}
	for _, want := range c.Cond.Values {
		if scalarEqual(got, want) {
			return true
		}
	}
	return false
}

func scalarEqual(a, b any) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func toObjectSlice(value any) ([]map[string]any, error) {
	switch typed := value.(type) {
	case []map[string]any:
		return typed, nil
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected map[string]any in array, got %T", item)
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected []any, got %T", value)
	}
}

func scalarSlice(value any) ([]any, error) {
	switch typed := value.(type) {
	case []any:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			scalar, ok := ScalarValue(v)
			if !ok {
				return nil, fmt.Errorf("expected scalar, got %T", v)
			}
			out = append(out, scalar)
		}
		return out, nil
	case []string:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			out = append(out, v)
		}
		return out, nil
	case []int:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected scalar array, got %T", value)
	}
}

// ScalarValue normalizes payload and filter scalars: small ints widen to int,
// float32 to float64, and string-backed named types to string.
func ScalarValue(value any) (any, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, true
		}
		if f, err := typed.Float64(); err == nil {
			return f, true
		}
		return nil, false
	case bool:
		return typed, true
	case int:
		return typed, true
	case int8:
		return int(typed), true
	case int16:
		return int(typed), true
	case int32:
		return int(typed), true
	case int64:
		return typed, true
	case uint:
		return typed, true
	case uint8:
		return uint(typed), true
	case uint16:
		return uint(typed), true
	case uint32:
		return uint(typed), true
	case uint64:
		return typed, true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case fmt.Stringer:
		return typed.String(), true
	default:
		return nil, false
	}
}
