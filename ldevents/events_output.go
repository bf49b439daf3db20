package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// eventOutputFormatter transforms analytics events and summary data into the JSON schema that is
// posted to the event service. It is created by each flush worker, so it does not need to be
// safe for concurrent use.
type eventOutputFormatter struct {
	userFilter userFilter
	config     EventsConfiguration
}

type featureRequestEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	UserKey      *string                    `json:"userKey,omitempty"`
	User         *serializableUser          `json:"user,omitempty"`
	Version      *int                       `json:"version,omitempty"`
	Variation    *int                       `json:"variation,omitempty"`
	Value        ldvalue.Value              `json:"value"`
	Default      ldvalue.Value              `json:"default"`
	Reason       ldreason.EvaluationReason  `json:"reason"`
	PrereqOf     *string                    `json:"prereqOf,omitempty"`
}

type identifyEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	User         *serializableUser          `json:"user"`
}

type customEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	UserKey      *string                    `json:"userKey,omitempty"`
	User         *serializableUser          `json:"user,omitempty"`
	Data         *ldvalue.Value             `json:"data,omitempty"`
	MetricValue  *float64                   `json:"metricValue,omitempty"`
}

type indexEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	User         *serializableUser          `json:"user"`
}

type summaryEventOutput struct {
	Kind      string                     `json:"kind"`
	StartDate ldtime.UnixMillisecondTime `json:"startDate"`
	EndDate   ldtime.UnixMillisecondTime `json:"endDate"`
	Features  map[string]flagSummaryData `json:"features"`
}

type flagSummaryData struct {
	Default  ldvalue.Value     `json:"default"`
	Counters []flagCounterData `json:"counters"`
}

type flagCounterData struct {
	Value     ldvalue.Value `json:"value"`
	Variation *int          `json:"variation,omitempty"`
	Version   *int          `json:"version,omitempty"`
	Count     int           `json:"count"`
	Unknown   bool          `json:"unknown,omitempty"`
}

// Produces the JSON-serializable form of all the events in a flush payload, plus the summary
// event if there is any summary data. The returned slice is marshalled as a single JSON array.
func (ef eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) []interface{} {
	out := make([]interface{}, 0, len(events)+1) // leave room for summary, if any
	for _, e := range events {
		oe := ef.makeOutputEvent(e)
		if oe != nil {
			out = append(out, oe)
		}
	}
	if len(summary.counters) > 0 {
		out = append(out, ef.makeSummaryEvent(summary))
	}
	return out
}

func (ef eventOutputFormatter) makeOutputEvent(evt Event) interface{} {
	switch evt := evt.(type) {
	case FeatureRequestEvent:
		fe := featureRequestEventOutput{
			CreationDate: evt.CreationDate,
			Key:          evt.Key,
			Value:        evt.Value,
			Default:      evt.Default,
			Reason:       evt.Reason,
		}
		if evt.Debug {
			fe.Kind = DebugEventKind
		} else {
			fe.Kind = FeatureRequestEventKind
		}
		if evt.Version != NoVersion {
			fe.Version = &evt.Version
		}
		if evt.Variation != NoVariation {
			fe.Variation = &evt.Variation
		}
		// Debug events always have a full user, since the whole point of debugging is to see
		// all of the event properties.
		if ef.config.InlineUsersInEvents || evt.Debug {
			fe.User = ef.userFilter.scrubUser(evt.User)
		} else {
			key := evt.User.GetKey()
			fe.UserKey = &key
		}
		if evt.PrereqOf != "" {
			fe.PrereqOf = &evt.PrereqOf
		}
		return fe
	case CustomEvent:
		ce := customEventOutput{
			Kind:         CustomEventKind,
			CreationDate: evt.CreationDate,
			Key:          evt.Key,
			Data:         evt.Data.AsPointer(),
		}
		if evt.HasMetric {
			ce.MetricValue = &evt.MetricValue
		}
		if ef.config.InlineUsersInEvents {
			ce.User = ef.userFilter.scrubUser(evt.User)
		} else {
			key := evt.User.GetKey()
			ce.UserKey = &key
		}
		return ce
	case IdentifyEvent:
		return identifyEventOutput{
			Kind:         IdentifyEventKind,
			CreationDate: evt.CreationDate,
			Key:          evt.User.GetKey(),
			User:         ef.userFilter.scrubUser(evt.User),
		}
	case IndexEvent:
		return indexEventOutput{
			Kind:         IndexEventKind,
			CreationDate: evt.CreationDate,
			User:         ef.userFilter.scrubUser(evt.User),
		}
	}
	return nil
}

// Transforms the summary data into the format used for the "summary" event. For each flag key, we
// emit one counter for each distinct (variation, version) pair that was evaluated, plus the default
// value that the application used for that flag.
func (ef eventOutputFormatter) makeSummaryEvent(snapshot eventSummary) summaryEventOutput {
	features := make(map[string]flagSummaryData, len(snapshot.counters))
	for key, value := range snapshot.counters {
		flagData, known := features[key.key]
		if !known {
			flagData = flagSummaryData{
				Default:  value.flagDefault,
				Counters: make([]flagCounterData, 0, 2),
			}
		}
		data := flagCounterData{
			Value: value.flagValue,
			Count: value.count,
		}
		if key.variation != NoVariation {
			v := key.variation
			data.Variation = &v
		}
		if key.version == NoVersion {
			data.Unknown = true
		} else {
			v := key.version
			data.Version = &v
		}
		flagData.Counters = append(flagData.Counters, data)
		features[key.key] = flagData
	}
	return summaryEventOutput{
		Kind:      SummaryEventKind,
		StartDate: snapshot.startDate,
		EndDate:   snapshot.endDate,
		Features:  features,
	}
}
