// Package ldmodel contains the SDK's internal representation of feature flags and user
// segments, the JSON encoding of those types, and low-level matching logic that operates
// directly on the model objects.
//
// Application code normally does not use this package; flags and segments are delivered by
// the data source and consumed by the evaluator. The types are exported so that stores,
// data sources, and test code can construct and inspect them. Model objects should be
// treated as immutable once they have been made visible to the SDK.
package ldmodel
