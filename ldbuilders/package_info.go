// Package ldbuilders provides builders for the data model types in ldmodel.
//
// These are mainly for test code and for integrations (such as ldfiledata) that
// construct flags and segments programmatically. Flags and segments obtained from
// the LightDeck services do not pass through these builders; they are unmarshaled
// directly. Build methods run the ldmodel preprocessing step, so built items behave
// exactly like items that came off the wire.
package ldbuilders
