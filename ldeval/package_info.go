// Package ldeval contains the feature flag evaluation engine.
//
// The engine is deliberately self-contained: it knows nothing about data stores,
// data sources, or analytics events. The caller supplies a DataProvider for looking
// up prerequisite flags and segments, and may supply a callback to observe the
// prerequisite evaluations that happen along the way. The SDK client wires these
// pieces together; tests can drive the evaluator directly.
package ldeval
