package interfaces

import (
	"fmt"
	"strconv"
	"time"
)

// DataSourceStatus is information about the data source's status and the last status change.
//
// The data source is the component that receives updates to feature flag data, such as the
// streaming connection. The SDK uses these values internally to log connection problems at
// an appropriate level, and they are also included in diagnostic information.
type DataSourceStatus struct {
	// State represents the overall current state of the data source. It will always be one of
	// the DataSourceState constants such as DataSourceStateValid.
	State DataSourceState

	// StateSince is the date/time that the value of State most recently changed.
	//
	// The meaning of this depends on the current State:
	// - For DataSourceStateInitializing, it is the time that the SDK started initializing.
	// - For DataSourceStateValid, it is the time that the data source most recently entered a
	//   valid state, after previously having been either Initializing or Interrupted.
	// - For DataSourceStateInterrupted, it is the time that the data source most recently
	//   entered an error state, after previously having been Valid.
	// - For DataSourceStateOff, it is the time that the data source encountered an unrecoverable
	//   error.
	StateSince time.Time

	// LastError is information about the last error that the data source encountered, if any.
	//
	// If no error has ever occurred since the SDK was started, this will be an empty
	// DataSourceErrorInfo whose Kind is "".
	LastError DataSourceErrorInfo
}

// String returns a simple string representation of the status.
func (e DataSourceStatus) String() string {
	return fmt.Sprintf("Status(%s,%s,%s)", string(e.State),
		e.StateSince.Format(time.RFC3339), e.LastError.String())
}

// DataSourceState is any of the allowable values for DataSourceStatus.State.
type DataSourceState string

const (
	// DataSourceStateInitializing is the initial state of the data source when the SDK is being
	// initialized.
	//
	// If it encounters an error that requires it to retry initialization, the state will remain
	// at Initializing until it either succeeds and becomes DataSourceStateValid, or permanently
	// fails and becomes DataSourceStateOff.
	DataSourceStateInitializing DataSourceState = "INITIALIZING"

	// DataSourceStateValid indicates that the data source is currently operational and has not
	// had any problems since the last time it received data.
	//
	// In streaming mode, this means that there is currently an open stream connection and that
	// at least one initial message has been received on the stream. In polling mode, it means
	// that the last poll request succeeded.
	DataSourceStateValid DataSourceState = "VALID"

	// DataSourceStateInterrupted indicates that the data source encountered an error that it
	// will attempt to recover from.
	//
	// In streaming mode, this means that the stream connection failed, or had to be dropped due
	// to some other error, and will be retried after a backoff delay. In polling mode, it means
	// that the last poll request failed, and a new poll request will be made after the configured
	// polling interval.
	DataSourceStateInterrupted DataSourceState = "INTERRUPTED"

	// DataSourceStateOff indicates that the data source has been permanently shut down.
	//
	// This could be because it encountered an unrecoverable error (for instance, the LightDeck
	// service rejected the SDK key: an invalid SDK key will never become valid), or because the
	// SDK client was explicitly shut down.
	DataSourceStateOff DataSourceState = "OFF"
)

// DataSourceErrorInfo is a description of an error condition that the data source encountered.
type DataSourceErrorInfo struct {
	// Kind is the general category of the error. It will always be one of the DataSourceErrorKind
	// constants such as DataSourceErrorKindErrorResponse, or "" if there have been no errors.
	Kind DataSourceErrorKind

	// StatusCode is the HTTP status code if the error was DataSourceErrorKindErrorResponse, or
	// zero otherwise.
	StatusCode int

	// Message is any any additional human-readable information relevant to the error. The
	// format of this message is subject to change and should not be relied on programmatically.
	Message string

	// Time is the date/time that the error occurred.
	Time time.Time
}

// String returns a simple string representation of the error description.
func (e DataSourceErrorInfo) String() string {
	ret := string(e.Kind)
	if e.StatusCode > 0 || e.Message != "" {
		ret += "("
		if e.StatusCode > 0 {
			ret += strconv.Itoa(e.StatusCode)
		}
		if e.Message != "" {
			if e.StatusCode > 0 {
				ret += ","
			}
			ret += e.Message
		}
		ret += ")"
	}
	if !e.Time.IsZero() {
		ret += "@" + e.Time.Format(time.RFC3339)
	}
	return ret
}

// DataSourceErrorKind is any of the allowable values for DataSourceErrorInfo.Kind.
type DataSourceErrorKind string

const (
	// DataSourceErrorKindUnknown indicates an unexpected error, such as an uncaught exception.
	DataSourceErrorKindUnknown DataSourceErrorKind = "UNKNOWN"

	// DataSourceErrorKindNetworkError represents an I/O error such as a dropped connection.
	DataSourceErrorKindNetworkError DataSourceErrorKind = "NETWORK_ERROR"

	// DataSourceErrorKindErrorResponse means the LightDeck service returned an HTTP response
	// with an error status.
	DataSourceErrorKindErrorResponse DataSourceErrorKind = "ERROR_RESPONSE"

	// DataSourceErrorKindInvalidData means the SDK received malformed data, such as a JSON
	// object that did not match the expected schema.
	DataSourceErrorKindInvalidData DataSourceErrorKind = "INVALID_DATA"

	// DataSourceErrorKindStoreError means the data source itself is working, but when it tried
	// to put an update into the data store, the data store failed (so the SDK may not have the
	// latest data).
	DataSourceErrorKindStoreError DataSourceErrorKind = "STORE_ERROR"
)
