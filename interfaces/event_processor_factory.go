package interfaces

import (
	"github.com/lightdeck/go-server-sdk/ldevents"
)

// EventProcessorFactory is a factory that creates some implementation of EventProcessor.
//
// The EventProcessor component is defined in the ldevents package, rather than in this package,
// because it is also used by other LightDeck components.
type EventProcessorFactory interface {
	// CreateEventProcessor is called by the SDK to create the implementation instance.
	CreateEventProcessor(context ClientContext) (ldevents.EventProcessor, error)
}
