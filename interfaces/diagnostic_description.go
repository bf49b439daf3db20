package interfaces

import "gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

// DiagnosticDescription is an optional interface for components to describe their own
// configuration.
//
// The SDK uses a simplified JSON representation of its configuration when recording diagnostics
// data. Any component type that implements DataStoreFactory, DataSourceFactory, etc. may choose
// to contribute values to this representation, although the SDK may or may not use them.
//
// For custom components, the standard representation is simply a string value of "custom". Any
// other value is subject to the rules in DescribeConfiguration.
type DiagnosticDescription interface {
	// DescribeConfiguration returns a JSON value representing the component's configuration.
	//
	// For custom components, return ldvalue.String("custom"). The SDK's own component
	// implementations return values that are defined in the diagnostic event schema.
	DescribeConfiguration() ldvalue.Value
}
