package ldmodel

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
)

// The methods in this file allow FeatureFlag to satisfy the FlagEventProperties
// interface in ldevents, so that the event pipeline can inspect flag properties
// without depending on the data model package.

// GetKey returns the feature flag key.
func (f *FeatureFlag) GetKey() string {
	return f.Key
}

// GetVersion returns the feature flag version.
func (f *FeatureFlag) GetVersion() int {
	return f.Version
}

// IsFullEventTrackingEnabled returns true if the flag has been configured to send
// full event data for every evaluation.
func (f *FeatureFlag) IsFullEventTrackingEnabled() bool {
	return f.TrackEvents
}

// GetDebugEventsUntilDate returns zero normally, or a timestamp if event debugging
// has been temporarily enabled for the flag.
func (f *FeatureFlag) GetDebugEventsUntilDate() ldtime.UnixMillisecondTime {
	if f.DebugEventsUntilDate == nil {
		return 0
	}
	return *f.DebugEventsUntilDate
}

// IsExperimentationEnabled returns true if, based on the evaluation reason, an
// evaluation of this flag should always generate full event data even though the
// flag's general TrackEvents property is off. This is how experiments force event
// collection for specific rules or for the fallthrough.
func (f *FeatureFlag) IsExperimentationEnabled(reason ldreason.EvaluationReason) bool {
	switch reason.GetKind() {
	case ldreason.EvalReasonFallthrough:
		return f.TrackEventsFallthrough
	case ldreason.EvalReasonRuleMatch:
		i := reason.GetRuleIndex()
		if i >= 0 && i < len(f.Rules) {
			return f.Rules[i].TrackEvents
		}
	}
	return false
}
