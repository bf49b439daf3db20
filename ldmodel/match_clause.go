package ldmodel

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// ClauseMatchesUser tests a single clause against a user, without involving any
// other part of evaluation. It does not handle OperatorSegmentMatch, which requires
// a segment lookup and is resolved by the evaluator; for that operator it returns
// false.
//
// The clause is passed by reference only for efficiency; it is not modified.
func ClauseMatchesUser(c *Clause, user *lduser.User) bool {
	userValue := user.GetAttribute(c.Attribute)
	if userValue.IsNull() {
		// A missing attribute never matches, and Negate does not apply.
		return false
	}
	matchFn := operatorFn(c.Op)
	// If the user value is a JSON array, the clause matches if any element matches.
	if userValue.Type() == ldvalue.ArrayType {
		n := userValue.Count()
		for i := 0; i < n; i++ {
			if clauseMatchesValue(matchFn, c, userValue.GetByIndex(i)) {
				return maybeNegate(c.Negate, true)
			}
		}
		return maybeNegate(c.Negate, false)
	}
	return maybeNegate(c.Negate, clauseMatchesValue(matchFn, c, userValue))
}

func clauseMatchesValue(matchFn opFn, c *Clause, userValue ldvalue.Value) bool {
	// Preprocessing builds a set of the clause values for OperatorIn, when the
	// values allow it; otherwise every clause value is tried in order.
	if c.preprocessed.valuesMap != nil {
		if key, ok := asPrimitiveValueKey(userValue); ok {
			_, found := c.preprocessed.valuesMap[key]
			return found
		}
		return false
	}
	for i, v := range c.Values {
		var p clausePreprocessedValue
		if c.preprocessed.values != nil {
			p = c.preprocessed.values[i]
		}
		if matchFn(userValue, v, p) {
			return true
		}
	}
	return false
}

func maybeNegate(negate, result bool) bool {
	if negate {
		return !result
	}
	return result
}
