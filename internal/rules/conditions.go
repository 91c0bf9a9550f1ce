package rules

import (
	"fmt"
	"strings"
)

// Context is the flat request-context map the engine evaluates
// criteria against (spec §4.5: customer_segment, customer_tier,
// currency_pair, currency_category, amount, amount_tier, office,
// time_of_day, ...).
type Context map[string]interface{}

// matches reports whether the rule's conditions hold against ctx,
// combining criteria with the rule's logical operator.
func (c Conditions) matches(ctx Context) bool {
	if len(c.Criteria) == 0 {
		return true
	}
	switch c.Operator {
	case LogicalOR:
		for _, crit := range c.Criteria {
			if crit.matches(ctx) {
				return true
			}
		}
		return false
	default: // AND is the default combinator
		for _, crit := range c.Criteria {
			if !crit.matches(ctx) {
				return false
			}
		}
		return true
	}
}

// matches evaluates a single criterion. A field missing from ctx
// evaluates to false for every operator except NOT_EQUALS/NOT_IN,
// which evaluate to true (spec §4.5: "standard three-valued logic
// collapsed to two").
func (crit Criterion) matches(ctx Context) bool {
	val, present := ctx[crit.Field]
	if !present {
		return crit.Operator == OpNotEquals || crit.Operator == OpNotIn
	}

	switch crit.Operator {
	case OpEquals:
		return fmt.Sprint(val) == fmt.Sprint(crit.Value)
	case OpNotEquals:
		return fmt.Sprint(val) != fmt.Sprint(crit.Value)
	case OpIn:
		return containsValue(crit.Values, val)
	case OpNotIn:
		return !containsValue(crit.Values, val)
	case OpGT, OpGE, OpLT, OpLE:
		return compareNumeric(val, crit.Value, crit.Operator)
	case OpBetween:
		return between(val, crit.Values)
	case OpContains:
		return strings.Contains(fmt.Sprint(val), fmt.Sprint(crit.Value))
	case OpStartsWith:
		return strings.HasPrefix(fmt.Sprint(val), fmt.Sprint(crit.Value))
	case OpEndsWith:
		return strings.HasSuffix(fmt.Sprint(val), fmt.Sprint(crit.Value))
	case OpOutsideHrs:
		return outsideHours(fmt.Sprint(val), crit.Values)
	default:
		return false
	}
}

func containsValue(values []interface{}, v interface{}) bool {
	target := fmt.Sprint(v)
	for _, c := range values {
		if fmt.Sprint(c) == target {
			return true
		}
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareNumeric(val, target interface{}, op CriterionOperator) bool {
	a, ok1 := asFloat(val)
	b, ok2 := asFloat(target)
	if !ok1 || !ok2 {
		return false
	}
	switch op {
	case OpGT:
		return a > b
	case OpGE:
		return a >= b
	case OpLT:
		return a < b
	case OpLE:
		return a <= b
	default:
		return false
	}
}

func between(val interface{}, values []interface{}) bool {
	if len(values) != 2 {
		return false
	}
	a, ok1 := asFloat(val)
	lo, ok2 := asFloat(values[0])
	hi, ok3 := asFloat(values[1])
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return lo <= a && a <= hi
}

// outsideHours returns true when timeOfDay (HH:MM) falls outside the
// half-open window [values[0], values[1]).
func outsideHours(timeOfDay string, values []interface{}) bool {
	if len(values) != 2 {
		return false
	}
	lo, ok1 := values[0].(string)
	hi, ok2 := values[1].(string)
	if !ok1 || !ok2 {
		return false
	}
	return timeOfDay < lo || timeOfDay >= hi
}
