package ldclient

import (
	"encoding/json"
	"fmt"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/ldmodel"
)

// FlagsStateOption is the type of optional parameters that can be passed to LDClient.AllFlagsState.
type FlagsStateOption interface {
	fmt.Stringer
}

type clientSideOnlyFlagsStateOption struct{}

// ClientSideOnly is an option that can be passed to LDClient.AllFlagsState().
//
// It specifies that only flags marked for use with the client-side SDK should be included in the state
// object. By default, all flags are included.
var ClientSideOnly FlagsStateOption = clientSideOnlyFlagsStateOption{} //nolint:gochecknoglobals

func (o clientSideOnlyFlagsStateOption) String() string {
	return "ClientSideOnly"
}

type withReasonsFlagsStateOption struct{}

// WithReasons is an option that can be passed to LDClient.AllFlagsState().
//
// It specifies that evaluation reasons should be included in the state object. By default, they are not.
var WithReasons FlagsStateOption = withReasonsFlagsStateOption{} //nolint:gochecknoglobals

func (o withReasonsFlagsStateOption) String() string {
	return "WithReasons"
}

type detailsOnlyForTrackedFlagsOption struct{}

// DetailsOnlyForTrackedFlags is an option that can be passed to LDClient.AllFlagsState().
//
// It specifies that any flag metadata that is normally only used for event generation, such as flag
// versions and evaluation reasons, should be omitted for any flag that does not have event tracking or
// debugging turned on. This reduces the size of the JSON data if you are passing the flag state to the
// front end.
var DetailsOnlyForTrackedFlags FlagsStateOption = detailsOnlyForTrackedFlagsOption{} //nolint:gochecknoglobals

func (o detailsOnlyForTrackedFlagsOption) String() string {
	return "DetailsOnlyForTrackedFlags"
}

func hasFlagsStateOption(options []FlagsStateOption, value FlagsStateOption) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// FeatureFlagsState is a snapshot of the state of all feature flags with regard to a specific user,
// generated by calling LDClient.AllFlagsState().
//
// Serializing this object to JSON, using json.Marshal, will produce the appropriate data structure for
// bootstrapping the LightDeck JavaScript client.
type FeatureFlagsState struct {
	flagValues   map[string]ldvalue.Value
	flagMetadata map[string]flagMetadata
	valid        bool
}

type flagMetadata struct {
	Variation            *int                       `json:"variation,omitempty"`
	Version              *int                       `json:"version,omitempty"`
	Reason               *ldreason.EvaluationReason `json:"reason,omitempty"`
	TrackEvents          bool                       `json:"trackEvents,omitempty"`
	DebugEventsUntilDate ldtime.UnixMillisecondTime `json:"debugEventsUntilDate,omitempty"`
}

func newFeatureFlagsState() FeatureFlagsState {
	return FeatureFlagsState{
		flagValues:   make(map[string]ldvalue.Value),
		flagMetadata: make(map[string]flagMetadata),
		valid:        true,
	}
}

func (s FeatureFlagsState) addFlag(
	flag *ldmodel.FeatureFlag,
	value ldvalue.Value,
	variationIndex int,
	reason ldreason.EvaluationReason,
	detailsOnlyIfTracked bool,
) {
	meta := flagMetadata{TrackEvents: flag.TrackEvents}
	if flag.DebugEventsUntilDate != nil {
		meta.DebugEventsUntilDate = *flag.DebugEventsUntilDate
	}
	includeDetails := !detailsOnlyIfTracked || flag.TrackEvents ||
		(flag.DebugEventsUntilDate != nil && *flag.DebugEventsUntilDate > ldtime.UnixMillisNow())
	if includeDetails {
		version := flag.Version
		meta.Version = &version
		if reason.GetKind() != "" {
			r := reason
			meta.Reason = &r
		}
	}
	if variationIndex >= 0 {
		v := variationIndex
		meta.Variation = &v
	}
	s.flagValues[flag.Key] = value
	s.flagMetadata[flag.Key] = meta
}

// IsValid returns true if this object contains a valid snapshot of feature flag state, or false if the
// state could not be computed (for instance, because the client was offline or there was no user).
func (s FeatureFlagsState) IsValid() bool {
	return s.valid
}

// GetFlagValue returns the value of an individual feature flag at the time the state was recorded. It
// returns ldvalue.Null() if the flag returned the default value, or if there was no such flag.
func (s FeatureFlagsState) GetFlagValue(key string) ldvalue.Value {
	return s.flagValues[key]
}

// GetFlagReason returns the evaluation reason for an individual feature flag at the time the state was
// recorded. It returns an empty ldreason.EvaluationReason if reasons were not recorded, or if there was
// no such flag.
func (s FeatureFlagsState) GetFlagReason(key string) ldreason.EvaluationReason {
	if meta, ok := s.flagMetadata[key]; ok && meta.Reason != nil {
		return *meta.Reason
	}
	return ldreason.EvaluationReason{}
}

// ToValuesMap returns a map of flag keys to flag values. If a flag would have evaluated to the default
// value, its value will be ldvalue.Null().
//
// Do not use this method if you are passing data to the front end to "bootstrap" the JavaScript client.
// Instead, convert the state object to JSON using json.Marshal.
func (s FeatureFlagsState) ToValuesMap() map[string]ldvalue.Value {
	return s.flagValues
}

// MarshalJSON implements a custom JSON serialization for FeatureFlagsState, to produce the appropriate
// data structure for bootstrapping the LightDeck JavaScript client.
func (s FeatureFlagsState) MarshalJSON() ([]byte, error) {
	outer := make(map[string]interface{}, len(s.flagValues)+2)
	for key, value := range s.flagValues {
		outer[key] = value
	}
	metadata := s.flagMetadata
	if metadata == nil {
		metadata = map[string]flagMetadata{}
	}
	outer["$flagsState"] = metadata
	outer["$valid"] = s.valid
	return json.Marshal(outer)
}
