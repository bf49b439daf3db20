package ldmodel

import (
	"regexp"
	"time"

	"github.com/blang/semver"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// The preprocessed data structures defined here hold derived lookup structures that
// make repeated evaluations cheaper: set membership tests become map lookups, and
// regexes, timestamps, and semantic versions in clause values are parsed only once.
// Data sources are expected to call PreprocessFlag or PreprocessSegment on every
// item they produce, immediately after unmarshaling and before the item is handed
// to a store; NewJSONDataModelSerialization does this automatically.

type targetPreprocessedData struct {
	valuesMap map[string]struct{}
}

type segmentPreprocessedData struct {
	includeMap map[string]struct{}
	excludeMap map[string]struct{}
}

type clausePreprocessedData struct {
	values    []clausePreprocessedValue
	valuesMap map[jsonPrimitiveValueKey]struct{}
}

type clausePreprocessedValue struct {
	computed     bool
	valid        bool
	parsedRegexp *regexp.Regexp // used for OperatorMatches
	parsedTime   time.Time      // used for OperatorBefore, OperatorAfter
	parsedSemver semver.Version // used for OperatorSemVerEqual, etc.
}

// jsonPrimitiveValueKey is a map key representing a JSON primitive value. Go maps
// cannot key on ldvalue.Value directly because it may contain slices.
type jsonPrimitiveValueKey struct {
	valueType    ldvalue.ValueType
	booleanValue bool
	numberValue  float64
	stringValue  string
}

func asPrimitiveValueKey(v ldvalue.Value) (jsonPrimitiveValueKey, bool) {
	switch v.Type() {
	case ldvalue.BoolType:
		return jsonPrimitiveValueKey{valueType: ldvalue.BoolType, booleanValue: v.BoolValue()}, true
	case ldvalue.NumberType:
		return jsonPrimitiveValueKey{valueType: ldvalue.NumberType, numberValue: v.Float64Value()}, true
	case ldvalue.StringType:
		return jsonPrimitiveValueKey{valueType: ldvalue.StringType, stringValue: v.StringValue()}, true
	default:
		return jsonPrimitiveValueKey{}, false
	}
}

// PreprocessFlag computes and attaches derived lookup data to a feature flag. It
// must be called at most once per flag instance, before the flag is made visible
// to any other code.
func PreprocessFlag(f *FeatureFlag) {
	for i, t := range f.Targets {
		f.Targets[i].preprocessed = preprocessTarget(t)
	}
	for i, r := range f.Rules {
		for j, c := range r.Clauses {
			f.Rules[i].Clauses[j].preprocessed = preprocessClause(c)
		}
	}
}

// PreprocessSegment computes and attaches derived lookup data to a segment. The
// same single-call rule applies as for PreprocessFlag.
func PreprocessSegment(s *Segment) {
	p := segmentPreprocessedData{}
	if len(s.Included) > 0 {
		p.includeMap = makeStringSet(s.Included)
	}
	if len(s.Excluded) > 0 {
		p.excludeMap = makeStringSet(s.Excluded)
	}
	s.preprocessed = p
	for i, r := range s.Rules {
		for j, c := range r.Clauses {
			s.Rules[i].Clauses[j].preprocessed = preprocessClause(c)
		}
	}
}

func preprocessTarget(t Target) targetPreprocessedData {
	if len(t.Values) == 0 {
		return targetPreprocessedData{}
	}
	return targetPreprocessedData{valuesMap: makeStringSet(t.Values)}
}

func preprocessClause(c Clause) clausePreprocessedData {
	ret := clausePreprocessedData{}
	switch c.Op {
	case OperatorIn:
		// A map lookup only pays off when there are many values to scan. Values that
		// are not primitives cannot be map keys, so such a clause stays on the
		// linear-scan path.
		if len(c.Values) > 1 {
			m := make(map[jsonPrimitiveValueKey]struct{}, len(c.Values))
			for _, v := range c.Values {
				key, ok := asPrimitiveValueKey(v)
				if !ok {
					m = nil
					break
				}
				m[key] = struct{}{}
			}
			ret.valuesMap = m
		}
	case OperatorMatches:
		ret.values = preprocessValues(c.Values, func(v ldvalue.Value) clausePreprocessedValue {
			r, ok := TypeConversions.ValueToRegexp(v)
			return clausePreprocessedValue{valid: ok, parsedRegexp: r}
		})
	case OperatorBefore, OperatorAfter:
		ret.values = preprocessValues(c.Values, func(v ldvalue.Value) clausePreprocessedValue {
			t, ok := TypeConversions.ValueToTimestamp(v)
			return clausePreprocessedValue{valid: ok, parsedTime: t}
		})
	case OperatorSemVerEqual, OperatorSemVerGreaterThan, OperatorSemVerLessThan:
		ret.values = preprocessValues(c.Values, func(v ldvalue.Value) clausePreprocessedValue {
			s, ok := TypeConversions.ValueToSemanticVersion(v)
			return clausePreprocessedValue{valid: ok, parsedSemver: s}
		})
	default:
	}
	return ret
}

func preprocessValues(
	values []ldvalue.Value,
	fn func(ldvalue.Value) clausePreprocessedValue,
) []clausePreprocessedValue {
	ret := make([]clausePreprocessedValue, len(values))
	for i, v := range values {
		p := fn(v)
		p.computed = true
		ret[i] = p
	}
	return ret
}

func makeStringSet(values []string) map[string]struct{} {
	ret := make(map[string]struct{}, len(values))
	for _, v := range values {
		ret[v] = struct{}{}
	}
	return ret
}
