package ldmodel

import (
	"strings"
	"time"

	"github.com/blang/semver"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// An opFn tests one user value against one clause value. The preprocessed parameter
// carries any conversion of the clause value that was done ahead of time; if
// preprocessed.computed is false (for instance, for a hand-built clause that was
// never preprocessed), the conversion happens on the spot.
type opFn func(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool

var allOps = map[Operator]opFn{ //nolint:gochecknoglobals
	OperatorIn:                 operatorInFn,
	OperatorEndsWith:           operatorEndsWithFn,
	OperatorStartsWith:         operatorStartsWithFn,
	OperatorMatches:            operatorMatchesFn,
	OperatorContains:           operatorContainsFn,
	OperatorLessThan:           operatorLessThanFn,
	OperatorLessThanOrEqual:    operatorLessThanOrEqualFn,
	OperatorGreaterThan:        operatorGreaterThanFn,
	OperatorGreaterThanOrEqual: operatorGreaterThanOrEqualFn,
	OperatorBefore:             operatorBeforeFn,
	OperatorAfter:              operatorAfterFn,
	OperatorSegmentMatch:       operatorNoneFn,
	OperatorSemVerEqual:        operatorSemVerEqualFn,
	OperatorSemVerLessThan:     operatorSemVerLessThanFn,
	OperatorSemVerGreaterThan:  operatorSemVerGreaterThanFn,
}

func operatorFn(operator Operator) opFn {
	if fn, ok := allOps[operator]; ok {
		return fn
	}
	return operatorNoneFn
}

func operatorInFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return userValue.Equal(clauseValue)
}

func stringOperator(userValue, clauseValue ldvalue.Value, fn func(string, string) bool) bool {
	if userValue.IsString() && clauseValue.IsString() {
		return fn(userValue.StringValue(), clauseValue.StringValue())
	}
	return false
}

func operatorStartsWithFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return stringOperator(userValue, clauseValue, strings.HasPrefix)
}

func operatorEndsWithFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return stringOperator(userValue, clauseValue, strings.HasSuffix)
}

func operatorContainsFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return stringOperator(userValue, clauseValue, strings.Contains)
}

func operatorMatchesFn(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	if !userValue.IsString() {
		return false
	}
	if preprocessed.computed {
		return preprocessed.valid && preprocessed.parsedRegexp.MatchString(userValue.StringValue())
	}
	if r, ok := TypeConversions.ValueToRegexp(clauseValue); ok {
		return r.MatchString(userValue.StringValue())
	}
	return false
}

func numericOperator(userValue, clauseValue ldvalue.Value, fn func(float64, float64) bool) bool {
	if userValue.IsNumber() && clauseValue.IsNumber() {
		return fn(userValue.Float64Value(), clauseValue.Float64Value())
	}
	return false
}

func operatorLessThanFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return numericOperator(userValue, clauseValue, func(a, b float64) bool { return a < b })
}

func operatorLessThanOrEqualFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return numericOperator(userValue, clauseValue, func(a, b float64) bool { return a <= b })
}

func operatorGreaterThanFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return numericOperator(userValue, clauseValue, func(a, b float64) bool { return a > b })
}

func operatorGreaterThanOrEqualFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return numericOperator(userValue, clauseValue, func(a, b float64) bool { return a >= b })
}

func dateOperator(
	userValue, clauseValue ldvalue.Value,
	preprocessed clausePreprocessedValue,
	fn func(time.Time, time.Time) bool,
) bool {
	if userTime, ok := TypeConversions.ValueToTimestamp(userValue); ok {
		if preprocessed.computed {
			return preprocessed.valid && fn(userTime, preprocessed.parsedTime)
		}
		if clauseTime, ok := TypeConversions.ValueToTimestamp(clauseValue); ok {
			return fn(userTime, clauseTime)
		}
	}
	return false
}

func operatorBeforeFn(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return dateOperator(userValue, clauseValue, preprocessed, time.Time.Before)
}

func operatorAfterFn(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return dateOperator(userValue, clauseValue, preprocessed, time.Time.After)
}

func semVerOperator(
	userValue, clauseValue ldvalue.Value,
	preprocessed clausePreprocessedValue,
	fn func(semver.Version, semver.Version) bool,
) bool {
	if userVersion, ok := TypeConversions.ValueToSemanticVersion(userValue); ok {
		if preprocessed.computed {
			return preprocessed.valid && fn(userVersion, preprocessed.parsedSemver)
		}
		if clauseVersion, ok := TypeConversions.ValueToSemanticVersion(clauseValue); ok {
			return fn(userVersion, clauseVersion)
		}
	}
	return false
}

func operatorSemVerEqualFn(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return semVerOperator(userValue, clauseValue, preprocessed, semver.Version.EQ)
}

func operatorSemVerLessThanFn(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return semVerOperator(userValue, clauseValue, preprocessed, semver.Version.LT)
}

func operatorSemVerGreaterThanFn(userValue, clauseValue ldvalue.Value, preprocessed clausePreprocessedValue) bool {
	return semVerOperator(userValue, clauseValue, preprocessed, semver.Version.GT)
}

func operatorNoneFn(userValue, clauseValue ldvalue.Value, _ clausePreprocessedValue) bool {
	return false
}
