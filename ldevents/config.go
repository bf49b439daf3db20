package ldevents

import (
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
)

// DefaultDiagnosticRecordingInterval is the default value for
// EventsConfiguration.DiagnosticRecordingInterval.
const DefaultDiagnosticRecordingInterval = 15 * time.Minute

// MinimumDiagnosticRecordingInterval is the minimum value for
// EventsConfiguration.DiagnosticRecordingInterval.
const MinimumDiagnosticRecordingInterval = 60 * time.Second

// DefaultFlushInterval is the default value for EventsConfiguration.FlushInterval.
const DefaultFlushInterval = 5 * time.Second

// DefaultUserKeysFlushInterval is the default value for EventsConfiguration.UserKeysFlushInterval.
const DefaultUserKeysFlushInterval = 5 * time.Minute

// EventsConfiguration contains options affecting the behavior of the events engine.
type EventsConfiguration struct {
	// Sets whether or not all user attributes (other than the key) should be hidden from the service.
	// If this is true, all user attribute values will be private, not just the attributes specified
	// in PrivateAttributeNames.
	AllAttributesPrivate bool
	// The capacity of the events buffer. The client buffers up to this many events in memory before
	// flushing. If the capacity is exceeded before the buffer is flushed, events will be discarded.
	Capacity int
	// The interval at which periodic diagnostic events will be sent, if DiagnosticsManager is non-nil.
	DiagnosticRecordingInterval time.Duration
	// An object that computes and formats diagnostic event data. This is only used within the SDK;
	// for all other usage of the ldevents package, it should be nil.
	DiagnosticsManager *DiagnosticsManager
	// The implementation of event delivery to use. This is normally created with
	// NewServerSideEventSender, but a custom implementation can be substituted for testing.
	EventSender EventSender
	// The time between flushes of the event buffer. Decreasing the flush interval means that the
	// event buffer is less likely to reach capacity.
	FlushInterval time.Duration
	// Set to true if you need to see the full user details in every analytics event.
	InlineUsersInEvents bool
	// The destination for log output.
	Loggers ldlog.Loggers
	// True if user keys can be included in log messages.
	LogUserKeyInErrors bool
	// Marks a set of user attribute names private. Any users sent to the service with this
	// configuration active will have attributes with these names removed.
	PrivateAttributeNames []lduser.UserAttribute
	// The number of user keys that the event processor can remember at any one time, so that
	// duplicate user details will not be sent in analytics events.
	UserKeysCapacity int
	// The interval at which the event processor will reset its set of known user keys.
	UserKeysFlushInterval time.Duration

	// Used in testing to instrument the current time.
	currentTimeProvider func() ldtime.UnixMillisecondTime
	// Used in testing to bypass the minimum diagnostic recording interval.
	forceDiagnosticRecordingInterval time.Duration
}
