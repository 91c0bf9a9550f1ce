package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriterion_Equals(t *testing.T) {
	c := Criterion{Field: "customer_segment", Operator: OpEquals, Value: "RETAIL"}
	assert.True(t, c.matches(Context{"customer_segment": "RETAIL"}))
	assert.False(t, c.matches(Context{"customer_segment": "CORPORATE"}))
}

func TestCriterion_MissingFieldSemantics(t *testing.T) {
	eq := Criterion{Field: "office", Operator: OpEquals, Value: "NY"}
	assert.False(t, eq.matches(Context{}))

	neq := Criterion{Field: "office", Operator: OpNotEquals, Value: "NY"}
	assert.True(t, neq.matches(Context{}))

	in := Criterion{Field: "office", Operator: OpIn, Values: []interface{}{"NY", "LDN"}}
	assert.False(t, in.matches(Context{}))

	notIn := Criterion{Field: "office", Operator: OpNotIn, Values: []interface{}{"NY", "LDN"}}
	assert.True(t, notIn.matches(Context{}))
}

func TestCriterion_Numeric(t *testing.T) {
	ctx := Context{"amount": 50000.0}
	assert.True(t, (Criterion{Field: "amount", Operator: OpGT, Value: 10000.0}).matches(ctx))
	assert.True(t, (Criterion{Field: "amount", Operator: OpGE, Value: 50000.0}).matches(ctx))
	assert.False(t, (Criterion{Field: "amount", Operator: OpLT, Value: 50000.0}).matches(ctx))
	assert.True(t, (Criterion{Field: "amount", Operator: OpLE, Value: 50000.0}).matches(ctx))
	assert.True(t, (Criterion{Field: "amount", Operator: OpBetween, Values: []interface{}{10000.0, 100000.0}}).matches(ctx))
	assert.False(t, (Criterion{Field: "amount", Operator: OpBetween, Values: []interface{}{60000.0, 100000.0}}).matches(ctx))
}

func TestCriterion_StringOps(t *testing.T) {
	ctx := Context{"currency_pair": "USDINR"}
	assert.True(t, (Criterion{Field: "currency_pair", Operator: OpContains, Value: "INR"}).matches(ctx))
	assert.True(t, (Criterion{Field: "currency_pair", Operator: OpStartsWith, Value: "USD"}).matches(ctx))
	assert.True(t, (Criterion{Field: "currency_pair", Operator: OpEndsWith, Value: "INR"}).matches(ctx))
	assert.False(t, (Criterion{Field: "currency_pair", Operator: OpStartsWith, Value: "EUR"}).matches(ctx))
}

func TestCriterion_OutsideHours(t *testing.T) {
	c := Criterion{Field: "time_of_day", Operator: OpOutsideHrs, Values: []interface{}{"09:00", "17:00"}}
	assert.True(t, c.matches(Context{"time_of_day": "08:00"}))
	assert.True(t, c.matches(Context{"time_of_day": "20:00"}))
	assert.False(t, c.matches(Context{"time_of_day": "12:00"}))
	assert.False(t, c.matches(Context{"time_of_day": "09:00"})) // half-open: start is inside
}

func TestConditions_ANDOrOR(t *testing.T) {
	and := Conditions{
		Operator: LogicalAND,
		Criteria: []Criterion{
			{Field: "a", Operator: OpEquals, Value: "1"},
			{Field: "b", Operator: OpEquals, Value: "2"},
		},
	}
	assert.True(t, and.matches(Context{"a": "1", "b": "2"}))
	assert.False(t, and.matches(Context{"a": "1", "b": "3"}))

	or := Conditions{
		Operator: LogicalOR,
		Criteria: []Criterion{
			{Field: "a", Operator: OpEquals, Value: "1"},
			{Field: "b", Operator: OpEquals, Value: "2"},
		},
	}
	assert.True(t, or.matches(Context{"a": "1", "b": "3"}))
	assert.False(t, or.matches(Context{"a": "9", "b": "3"}))
}

func TestConditions_EmptyCriteriaAlwaysMatch(t *testing.T) {
	c := Conditions{Operator: LogicalAND, Criteria: nil}
	assert.True(t, c.matches(Context{}))
}
