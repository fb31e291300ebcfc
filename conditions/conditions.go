// Package conditions implements the shared condition language used by
// smart-link redirect rules, conversion validation rules and webhook
// payload filters. Evaluation is pure: no shared state, safe for
// concurrent use.
package conditions

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

type Operator string

const (
	OpEquals      Operator = "EQUALS"
	OpNotEquals   Operator = "NOT_EQUALS"
	OpContains    Operator = "CONTAINS"
	OpIn          Operator = "IN"
	OpNotIn       Operator = "NOT_IN"
	OpGreaterThan Operator = "GREATER_THAN"
	OpLessThan    Operator = "LESS_THAN"
	OpRegex       Operator = "REGEX"
)

// Condition is a single (field, operator, value) clause. Field is a
// dotted path into the payload, e.g. "order.customer.country".
type Condition struct {
	Field    string      `json:"field"`
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

// Evaluate reports whether every condition matches the payload. An empty
// condition list matches everything.
func Evaluate(payload map[string]interface{}, conds []Condition) bool {
	for _, c := range conds {
		if !Matches(payload, c) {
			return false
		}
	}
	return true
}

// Matches evaluates a single condition against the payload. Unknown
// operators and evaluation failures are treated as non-match.
func Matches(payload map[string]interface{}, c Condition) bool {
	fieldValue, _ := Resolve(payload, c.Field)

	switch c.Operator {
	case OpEquals:
		return valuesEqual(fieldValue, c.Value)
	case OpNotEquals:
		return !valuesEqual(fieldValue, c.Value)
	case OpContains:
		return strings.Contains(stringify(fieldValue), stringify(c.Value))
	case OpIn:
		return membership(fieldValue, c.Value)
	case OpNotIn:
		return !membership(fieldValue, c.Value)
	case OpGreaterThan:
		fv, ok1 := toNumber(fieldValue)
		cv, ok2 := toNumber(c.Value)
		return ok1 && ok2 && fv > cv
	case OpLessThan:
		fv, ok1 := toNumber(fieldValue)
		cv, ok2 := toNumber(c.Value)
		return ok1 && ok2 && fv < cv
	case OpRegex:
		// Invalid patterns fail closed.
		re, err := regexp.Compile(stringify(c.Value))
		if err != nil {
			return false
		}
		return re.MatchString(stringify(fieldValue))
	default:
		return false
	}
}

// Resolve walks the payload along a dotted path. Missing intermediate
// keys resolve to (nil, false) rather than erroring.
func Resolve(payload map[string]interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	var current interface{} = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// valuesEqual compares without cross-type coercion. Numeric types are
// normalised first so 18 and 18.0 compare equal, matching JSON decoding.
func valuesEqual(a, b interface{}) bool {
	if na, ok1 := toStrictNumber(a); ok1 {
		if nb, ok2 := toStrictNumber(b); ok2 {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// membership reports whether fieldValue is an element of list. A
// non-slice list never matches.
func membership(fieldValue, list interface{}) bool {
	rv := reflect.ValueOf(list)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if valuesEqual(fieldValue, rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// toStrictNumber converts numeric Go types to float64 without parsing
// strings. Used for equality, where "18" must not equal 18.
func toStrictNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toNumber additionally parses numeric strings, mirroring Number()
// coercion for the ordering operators. Anything else is NaN-like and
// compares false.
func toNumber(v interface{}) (float64, bool) {
	if n, ok := toStrictNumber(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
