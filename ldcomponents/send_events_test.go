package ldcomponents

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/ldevents"
	"github.com/lightdeck/go-server-sdk/sharedtest"
	"github.com/lightdeck/go-server-sdk/testhelpers/ldservices"
)

// Note that we can't really test every event configuration option in these tests - they are tested in detail in
// the ldevents package, but we do want to verify that the basic options are being passed to ldevents correctly.

func TestEventProcessorBuilderProperties(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		b := SendEvents()
		assert.Equal(t, DefaultEventsBaseURI, b.baseURI)
		assert.Equal(t, DefaultEventsCapacity, b.capacity)
		assert.Equal(t, DefaultDiagnosticRecordingInterval, b.diagnosticRecordingInterval)
		assert.Equal(t, DefaultFlushInterval, b.flushInterval)
		assert.Equal(t, DefaultUserKeysCapacity, b.userKeysCapacity)
		assert.Equal(t, DefaultUserKeysFlushInterval, b.userKeysFlushInterval)
	})

	t.Run("DiagnosticRecordingInterval is clamped at the minimum", func(t *testing.T) {
		b := SendEvents().DiagnosticRecordingInterval(time.Second)
		assert.Equal(t, MinimumDiagnosticRecordingInterval, b.diagnosticRecordingInterval)

		b.DiagnosticRecordingInterval(time.Minute * 5)
		assert.Equal(t, time.Minute*5, b.diagnosticRecordingInterval)
	})
}

func TestDefaultEventsConfigWithoutDiagnostics(t *testing.T) {
	eventsHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSideEventsServiceHandler())
	httphelpers.WithServer(eventsHandler, func(server *httptest.Server) {
		ep, err := SendEvents().
			BaseURI(server.URL).
			CreateEventProcessor(basicClientContext())
		require.NoError(t, err)
		defer ep.Close()

		ef := ldevents.NewEventFactory(false, nil)
		ce := ef.NewCustomEvent("event-key", ldevents.User(lduser.NewUser("key")), ldvalue.Null(), false, 0)
		ep.SendEvent(ce)
		ep.Flush()

		r := <-requestsCh
		var jsonData ldvalue.Value
		_ = json.Unmarshal(r.Body, &jsonData)
		assert.Equal(t, 2, jsonData.Count())
		assert.Equal(t, ldvalue.String("index"), jsonData.GetByIndex(0).GetByKey("kind"))
		assert.Equal(t, ldvalue.String("custom"), jsonData.GetByIndex(1).GetByKey("kind"))
	})
}

func TestDefaultEventsConfigWithDiagnostics(t *testing.T) {
	eventsHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSideEventsServiceHandler())
	diagnosticsManager := ldevents.NewDiagnosticsManager(
		ldevents.NewDiagnosticID("sdk-key"),
		ldvalue.Null(),
		ldvalue.Null(),
		time.Now(),
		nil,
	)
	context := sharedtest.NewClientContextWithDiagnostics("sdk-key", nil, nil, diagnosticsManager)
	httphelpers.WithServer(eventsHandler, func(server *httptest.Server) {
		ep, err := SendEvents().
			BaseURI(server.URL).
			CreateEventProcessor(context)
		require.NoError(t, err)
		defer ep.Close()

		r := <-requestsCh
		var jsonData ldvalue.Value
		_ = json.Unmarshal(r.Body, &jsonData)
		assert.Equal(t, ldvalue.String("diagnostic-init"), jsonData.GetByKey("kind"))
	})
}

func TestEventsAllAttributesPrivate(t *testing.T) {
	eventsHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSideEventsServiceHandler())
	httphelpers.WithServer(eventsHandler, func(server *httptest.Server) {
		ep, err := SendEvents().
			AllAttributesPrivate(true).
			BaseURI(server.URL).
			CreateEventProcessor(basicClientContext())
		require.NoError(t, err)
		defer ep.Close()

		ef := ldevents.NewEventFactory(false, nil)
		ie := ef.NewIdentifyEvent(ldevents.User(lduser.NewUserBuilder("user-key").Name("user-name").Build()))
		ep.SendEvent(ie)
		ep.Flush()

		r := <-requestsCh
		var jsonData ldvalue.Value
		_ = json.Unmarshal(r.Body, &jsonData)
		assert.Equal(t, 1, jsonData.Count())
		event := jsonData.GetByIndex(0)
		assert.Equal(t, ldvalue.String("identify"), event.GetByKey("kind"))
		assert.Equal(t, ldvalue.String("user-key"), event.GetByKey("user").GetByKey("key"))
		assert.Equal(t, ldvalue.Null(), event.GetByKey("user").GetByKey("name"))
		assert.Equal(t, ldvalue.ArrayOf(ldvalue.String("name")), event.GetByKey("user").GetByKey("privateAttrs"))
	})
}

func TestEventsCapacity(t *testing.T) {
	eventsHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSideEventsServiceHandler())
	httphelpers.WithServer(eventsHandler, func(server *httptest.Server) {
		ep, err := SendEvents().
			BaseURI(server.URL).
			Capacity(1).
			CreateEventProcessor(basicClientContext())
		require.NoError(t, err)
		defer ep.Close()

		ef := ldevents.NewEventFactory(false, nil)
		ie := ef.NewIdentifyEvent(ldevents.User(lduser.NewUserBuilder("user-key").Name("user-name").Build()))
		ep.SendEvent(ie)
		ep.SendEvent(ie) // 2nd event will be dropped
		ep.Flush()

		r := <-requestsCh
		var jsonData ldvalue.Value
		_ = json.Unmarshal(r.Body, &jsonData)
		assert.Equal(t, 1, jsonData.Count())
	})
}

func TestEventsInlineUsers(t *testing.T) {
	eventsHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSideEventsServiceHandler())
	httphelpers.WithServer(eventsHandler, func(server *httptest.Server) {
		ep, err := SendEvents().
			BaseURI(server.URL).
			InlineUsersInEvents(true).
			CreateEventProcessor(basicClientContext())
		require.NoError(t, err)
		defer ep.Close()

		ef := ldevents.NewEventFactory(false, nil)
		ce := ef.NewCustomEvent("event-key", ldevents.User(lduser.NewUser("key")), ldvalue.Null(), false, 0)
		ep.SendEvent(ce)
		ep.Flush()

		r := <-requestsCh
		var jsonData ldvalue.Value
		_ = json.Unmarshal(r.Body, &jsonData)
		assert.Equal(t, 1, jsonData.Count()) // no index event
		assert.Equal(t, ldvalue.String("custom"), jsonData.GetByIndex(0).GetByKey("kind"))
	})
}

func TestEventsSomeAttributesPrivate(t *testing.T) {
	eventsHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSideEventsServiceHandler())
	httphelpers.WithServer(eventsHandler, func(server *httptest.Server) {
		ep, err := SendEvents().
			BaseURI(server.URL).
			PrivateAttributeNames("name").
			CreateEventProcessor(basicClientContext())
		require.NoError(t, err)
		defer ep.Close()

		ef := ldevents.NewEventFactory(false, nil)
		ie := ef.NewIdentifyEvent(ldevents.User(lduser.NewUserBuilder("user-key").Email("user-email").Name("user-name").Build()))
		ep.SendEvent(ie)
		ep.Flush()

		r := <-requestsCh
		var jsonData ldvalue.Value
		_ = json.Unmarshal(r.Body, &jsonData)
		assert.Equal(t, 1, jsonData.Count())
		event := jsonData.GetByIndex(0)
		assert.Equal(t, ldvalue.String("identify"), event.GetByKey("kind"))
		assert.Equal(t, ldvalue.String("user-key"), event.GetByKey("user").GetByKey("key"))
		assert.Equal(t, ldvalue.String("user-email"), event.GetByKey("user").GetByKey("email"))
		assert.Equal(t, ldvalue.Null(), event.GetByKey("user").GetByKey("name"))
		assert.Equal(t, ldvalue.ArrayOf(ldvalue.String("name")), event.GetByKey("user").GetByKey("privateAttrs"))
	})
}
