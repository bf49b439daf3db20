package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
)

// eventsOutbox is the data structure that holds events that have been processed by the dispatcher
// and are waiting to be flushed. It is not safe for concurrent access; it is used only by the
// dispatcher goroutine.
type eventsOutbox struct {
	events           []Event
	summarizer       eventSummarizer
	capacity         int
	capacityExceeded bool
	droppedEvents    int
	loggers          ldlog.Loggers
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		events:     make([]Event, 0, capacity),
		summarizer: newEventSummarizer(),
		capacity:   capacity,
		loggers:    loggers,
	}
}

// Adds an event to the outbox, if there is room. The event may be dropped if there is not.
func (b *eventsOutbox) addEvent(event Event) {
	if len(b.events) >= b.capacity {
		if !b.capacityExceeded {
			b.capacityExceeded = true
			b.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		}
		b.droppedEvents++
		return
	}
	b.capacityExceeded = false
	b.events = append(b.events, event)
}

// Adds information about an event to the summary state.
func (b *eventsOutbox) addToSummary(event Event) {
	b.summarizer.summarizeEvent(event)
}

// Returns a snapshot of the current events and summary state, which will be used to construct a
// flush payload.
func (b *eventsOutbox) getPayload() flushPayload {
	return flushPayload{
		events:  b.events,
		summary: b.summarizer.snapshot(),
	}
}

// Clears the current events and summary state.
func (b *eventsOutbox) clear() {
	b.events = make([]Event, 0, b.capacity)
	b.summarizer.reset()
}
