package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// NoVariation is a sentinel value for the Variation field in FeatureRequestEvent, meaning that
// evaluation did not select any of the flag's variations.
const NoVariation = -1

// NoVersion is a sentinel value for the Version field in FeatureRequestEvent, meaning that the
// flag was not found in the data store.
const NoVersion = -1

// Event kinds as they appear in the JSON event schema.
const (
	FeatureRequestEventKind = "feature"
	DebugEventKind          = "debug"
	CustomEventKind         = "custom"
	IdentifyEventKind       = "identify"
	IndexEventKind          = "index"
	SummaryEventKind        = "summary"
)

// EventUser is a combination of the standard user struct with additional information that may be
// relevant outside of the standard SDK event generation context.
type EventUser struct {
	lduser.User
	// AlreadyFilteredAttributes is a list of private attribute names that were already removed
	// before this user was passed to the events engine. If it is non-nil, the usual attribute
	// filtering logic is skipped and this list is reported as-is. This is used when event data is
	// relayed on behalf of another process that has done its own filtering; within the SDK itself
	// it is always nil.
	AlreadyFilteredAttributes []string
}

// User builds an EventUser around a user object, with no already-filtered attributes.
func User(baseUser lduser.User) EventUser {
	return EventUser{User: baseUser}
}

// Event is an interface implemented by all event types.
type Event interface {
	GetBase() BaseEvent
}

// BaseEvent provides properties common to all events.
type BaseEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	User         EventUser
}

// FeatureRequestEvent is generated by evaluating a feature flag or one of a flag's prerequisites.
type FeatureRequestEvent struct {
	BaseEvent
	// Key is the flag key.
	Key string
	// Variation is the result variation index, or NoVariation.
	Variation int
	// Value is the result value.
	Value ldvalue.Value
	// Default is the application default value that would be used if evaluation failed.
	Default ldvalue.Value
	// Version is the flag version, or NoVersion if the flag was not found.
	Version int
	// PrereqOf, for an evaluation that happened due to a prerequisite check, is the key of the
	// flag that had this flag as a prerequisite. Otherwise it is empty.
	PrereqOf string
	// Reason is the evaluation reason, if reasons are being recorded for this event.
	Reason ldreason.EvaluationReason
	// TrackEvents is true if this event should be delivered individually rather than only in
	// summary data.
	TrackEvents bool
	// Debug is true if this is a debug event copy made by the event processor.
	Debug bool
	// DebugEventsUntilDate is nonzero if event debugging was enabled for the flag.
	DebugEventsUntilDate ldtime.UnixMillisecondTime
}

// CustomEvent is generated by calling the client's Track methods.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
}

// IdentifyEvent is generated by calling the client's Identify method.
type IdentifyEvent struct {
	BaseEvent
}

// IndexEvent is generated internally to capture user details from other events.
type IndexEvent struct {
	BaseEvent
}

// GetBase returns the BaseEvent
func (evt FeatureRequestEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// GetBase returns the BaseEvent
func (evt CustomEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// GetBase returns the BaseEvent
func (evt IdentifyEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// GetBase returns the BaseEvent
func (evt IndexEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// EventFactory is a configurable factory for event objects.
type EventFactory struct {
	includeReasons bool
	timeFn         func() ldtime.UnixMillisecondTime
}

// NewEventFactory creates an EventFactory.
//
// The includeReasons parameter is true if evaluation events should always include the reason (this
// is used by the SDK when one of the "VariationDetail" methods is called). The timeFn parameter is
// normally nil but can be used to instrument the current time in tests.
func NewEventFactory(includeReasons bool, timeFn func() ldtime.UnixMillisecondTime) EventFactory {
	if timeFn == nil {
		timeFn = ldtime.UnixMillisNow
	}
	return EventFactory{includeReasons, timeFn}
}

// NewUnknownFlagEvent creates an evaluation event for a flag that did not exist.
func (f EventFactory) NewUnknownFlagEvent(
	key string,
	user EventUser,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) FeatureRequestEvent {
	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
		Key:       key,
		Variation: NoVariation,
		Value:     defaultVal,
		Default:   defaultVal,
		Version:   NoVersion,
	}
	if f.includeReasons {
		fre.Reason = reason
	}
	return fre
}

// NewSuccessfulEvalEvent creates an evaluation event for an existing flag.
func (f EventFactory) NewSuccessfulEvalEvent(
	flag FlagEventProperties,
	user EventUser,
	variation int,
	value ldvalue.Value,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
	prereqOf string,
) FeatureRequestEvent {
	requireExperimentData := flag.IsExperimentationEnabled(reason)
	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
		Key:                  flag.GetKey(),
		Version:              flag.GetVersion(),
		Variation:            variation,
		Value:                value,
		Default:              defaultVal,
		PrereqOf:             prereqOf,
		TrackEvents:          requireExperimentData || flag.IsFullEventTrackingEnabled(),
		DebugEventsUntilDate: flag.GetDebugEventsUntilDate(),
	}
	if f.includeReasons || requireExperimentData {
		fre.Reason = reason
	}
	return fre
}

// NewCustomEvent creates a new custom event.
func (f EventFactory) NewCustomEvent(
	key string,
	user EventUser,
	data ldvalue.Value,
	withMetric bool,
	metricValue float64,
) CustomEvent {
	ce := CustomEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
		Key:         key,
		Data:        data,
		HasMetric:   withMetric,
		MetricValue: metricValue,
	}
	return ce
}

// NewIdentifyEvent constructs a new identify event.
func (f EventFactory) NewIdentifyEvent(user EventUser) IdentifyEvent {
	return IdentifyEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
	}
}
