// Package ldservices provides HTTP handlers that simulate the behavior of LightDeck service endpoints.
//
// This is mainly intended for use in the SDK's own tests, but it could also be useful in testing
// applications if it is desirable to use a local fake service instead of a mock of the SDK.
package ldservices
