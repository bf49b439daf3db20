// Package ldevents implements the analytics event pipeline: an asynchronous processor that
// buffers, summarizes, and deduplicates events generated by flag evaluations, and delivers
// them in batches to the events service.
//
// Events are submitted to an EventProcessor, which owns a single dispatcher goroutine and a
// small pool of flush workers. Submission never blocks; if the inbox is full the event is
// dropped. The types in this package are used by the SDK client internally and are exported
// for use by other services that process event data.
package ldevents
