package conditions_test

import (
	"testing"

	"github.com/PayRam/go-affiliate/conditions"
	"github.com/stretchr/testify/assert"
)

func payload() map[string]interface{} {
	return map[string]interface{}{
		"country": "US",
		"device":  "mobile",
		"order": map[string]interface{}{
			"value":    float64(150),
			"currency": "USD",
			"customer": map[string]interface{}{
				"email": "buyer@example.com",
				"age":   float64(18),
			},
		},
		"tags": []interface{}{"vip", "beta"},
	}
}

func TestResolveDottedPath(t *testing.T) {
	v, ok := conditions.Resolve(payload(), "order.customer.email")
	assert.True(t, ok)
	assert.Equal(t, "buyer@example.com", v)

	_, ok = conditions.Resolve(payload(), "order.missing.email")
	assert.False(t, ok)

	_, ok = conditions.Resolve(payload(), "order.currency.nested")
	assert.False(t, ok, "descending through a scalar should not match")

	_, ok = conditions.Resolve(payload(), "")
	assert.False(t, ok)
}

func TestEquals(t *testing.T) {
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "country", Operator: conditions.OpEquals, Value: "US",
	}))
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "country", Operator: conditions.OpEquals, Value: "DE",
	}))
	// Missing field only equals nil.
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "missing", Operator: conditions.OpEquals, Value: "US",
	}))
}

func TestEqualsNumericNormalisation(t *testing.T) {
	// 18 configured as int must equal the JSON-decoded float64.
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.customer.age", Operator: conditions.OpEquals, Value: 18,
	}))
	// No string coercion for equality.
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.customer.age", Operator: conditions.OpEquals, Value: "18",
	}))
}

func TestNotEquals(t *testing.T) {
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "device", Operator: conditions.OpNotEquals, Value: "desktop",
	}))
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "device", Operator: conditions.OpNotEquals, Value: "mobile",
	}))
	// Missing field is not equal to any concrete value.
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "missing", Operator: conditions.OpNotEquals, Value: "anything",
	}))
}

func TestContains(t *testing.T) {
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.customer.email", Operator: conditions.OpContains, Value: "@example.com",
	}))
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.customer.email", Operator: conditions.OpContains, Value: "@other.com",
	}))
}

func TestInAndNotIn(t *testing.T) {
	in := conditions.Condition{
		Field: "country", Operator: conditions.OpIn, Value: []interface{}{"US", "CA"},
	}
	assert.True(t, conditions.Matches(payload(), in))

	in.Value = []interface{}{"DE", "FR"}
	assert.False(t, conditions.Matches(payload(), in))

	// Non-list value never matches IN and always matches NOT_IN.
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "country", Operator: conditions.OpIn, Value: "US",
	}))
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "country", Operator: conditions.OpNotIn, Value: "US",
	}))
}

func TestOrderingOperators(t *testing.T) {
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.value", Operator: conditions.OpGreaterThan, Value: 100,
	}))
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.value", Operator: conditions.OpGreaterThan, Value: 150,
	}))
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.value", Operator: conditions.OpLessThan, Value: "200",
	}), "numeric strings participate in ordering")
	// Non-numeric operand fails closed.
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "country", Operator: conditions.OpGreaterThan, Value: 1,
	}))
}

func TestRegex(t *testing.T) {
	assert.True(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.customer.email", Operator: conditions.OpRegex, Value: `^[^@]+@example\.com$`,
	}))
	// An invalid pattern is a non-match, never a panic.
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "order.customer.email", Operator: conditions.OpRegex, Value: `([`,
	}))
}

func TestUnknownOperatorFailsClosed(t *testing.T) {
	assert.False(t, conditions.Matches(payload(), conditions.Condition{
		Field: "country", Operator: "BETWEEN", Value: "US",
	}))
}

func TestEvaluateConjunction(t *testing.T) {
	conds := []conditions.Condition{
		{Field: "country", Operator: conditions.OpEquals, Value: "US"},
		{Field: "order.value", Operator: conditions.OpGreaterThan, Value: 100},
	}
	assert.True(t, conditions.Evaluate(payload(), conds))

	conds = append(conds, conditions.Condition{
		Field: "device", Operator: conditions.OpEquals, Value: "desktop",
	})
	assert.False(t, conditions.Evaluate(payload(), conds), "one failing condition fails the set")

	assert.True(t, conditions.Evaluate(payload(), nil), "empty condition list matches everything")
}
