package ldmodel

import (
	"regexp"
	"time"

	"github.com/blang/semver"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Matches the numeric version components at the start of a semver string, so that
// omitted minor/patch components can be filled in ("2.1" becomes "2.1.0").
var versionNumericComponentsRegex = regexp.MustCompile(`^\d+(\.\d+)?(\.\d+)?`) //nolint:gochecknoglobals

// TypeConversions provides the value conversions used by clause matching, exported
// for use by the evaluator and by tests. Flag preprocessing applies the same
// conversions ahead of time to clause values so they are not reparsed on every
// evaluation.
var TypeConversions typeConversionMethods //nolint:gochecknoglobals

type typeConversionMethods struct{}

// ValueToTimestamp converts a JSON value to a time.Time if it is a string in
// RFC3339/ISO8601 format, or a number of milliseconds since the Unix epoch. The
// second return value is false if the value cannot be interpreted as a timestamp.
func (m typeConversionMethods) ValueToTimestamp(value ldvalue.Value) (time.Time, bool) {
	switch value.Type() {
	case ldvalue.StringType:
		if t, err := time.Parse(time.RFC3339Nano, value.StringValue()); err == nil {
			return t.UTC(), true
		}
	case ldvalue.NumberType:
		return unixMillisToUTCTime(value.Float64Value()), true
	}
	return time.Time{}, false
}

// ValueToRegexp converts a JSON string value to a compiled regular expression.
func (m typeConversionMethods) ValueToRegexp(value ldvalue.Value) (*regexp.Regexp, bool) {
	if value.IsString() {
		if r, err := regexp.Compile(value.StringValue()); err == nil {
			return r, true
		}
	}
	return nil, false
}

// ValueToSemanticVersion converts a JSON string value to a semantic version.
// Unlike strict semver parsing, a missing minor or patch version is tolerated:
// "2" and "2.1" are read as "2.0.0" and "2.1.0".
func (m typeConversionMethods) ValueToSemanticVersion(value ldvalue.Value) (semver.Version, bool) {
	if !value.IsString() {
		return semver.Version{}, false
	}
	versionStr := value.StringValue()
	if sv, err := semver.Parse(versionStr); err == nil {
		return sv, true
	}
	matchParts := versionNumericComponentsRegex.FindStringSubmatch(versionStr)
	if matchParts == nil {
		return semver.Version{}, false
	}
	transformed := matchParts[0]
	for i := 1; i < len(matchParts); i++ {
		if matchParts[i] == "" {
			transformed += ".0"
		}
	}
	transformed += versionStr[len(matchParts[0]):]
	sv, err := semver.Parse(transformed)
	return sv, err == nil
}

func unixMillisToUTCTime(unixMillis float64) time.Time {
	return time.Unix(0, int64(unixMillis)*int64(time.Millisecond)).UTC()
}
