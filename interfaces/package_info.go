// Package interfaces contains interfaces that allow customization of LightDeck components, and
// types used by other advanced SDK features.
//
// Most applications will not need to refer to these types. You will use them if you are creating a
// plug-in component, such as a database integration, or if you use advanced SDK features.
package interfaces
