package ldcomponents

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/internal"
	"github.com/lightdeck/go-server-sdk/sharedtest"
	"github.com/lightdeck/go-server-sdk/testhelpers/ldservices"
)

func TestStreamingDataSourceBuilder(t *testing.T) {
	t.Run("BaseURI", func(t *testing.T) {
		s := StreamingDataSource()
		assert.Equal(t, DefaultStreamingBaseURI, s.baseURI)

		s.BaseURI("x")
		assert.Equal(t, "x", s.baseURI)

		s.BaseURI("x/")
		assert.Equal(t, "x", s.baseURI)

		s.BaseURI("")
		assert.Equal(t, DefaultStreamingBaseURI, s.baseURI)
	})

	t.Run("PollingBaseURI", func(t *testing.T) {
		s := StreamingDataSource()
		assert.Equal(t, DefaultPollingBaseURI, s.pollingBaseURI)

		s.PollingBaseURI("x")
		assert.Equal(t, "x", s.pollingBaseURI)

		s.PollingBaseURI("x/")
		assert.Equal(t, "x", s.pollingBaseURI)

		s.PollingBaseURI("")
		assert.Equal(t, DefaultPollingBaseURI, s.pollingBaseURI)
	})

	t.Run("InitialReconnectDelay", func(t *testing.T) {
		s := StreamingDataSource()
		assert.Equal(t, DefaultInitialReconnectDelay, s.initialReconnectDelay)

		s.InitialReconnectDelay(time.Minute)
		assert.Equal(t, time.Minute, s.initialReconnectDelay)

		s.InitialReconnectDelay(0)
		assert.Equal(t, DefaultInitialReconnectDelay, s.initialReconnectDelay)

		s.InitialReconnectDelay(-1)
		assert.Equal(t, DefaultInitialReconnectDelay, s.initialReconnectDelay)
	})

	t.Run("CreateDataSource", func(t *testing.T) {
		streamURI := "http://fake-stream"
		pollURI := "http://fake-poll"
		delay := time.Hour

		s := StreamingDataSource().BaseURI(streamURI).PollingBaseURI(pollURI).InitialReconnectDelay(delay)

		withMockDataSourceUpdates(func(dataSourceUpdates *sharedtest.MockDataSourceUpdates) {
			ds, err := s.CreateDataSource(basicClientContext(), dataSourceUpdates)
			require.NoError(t, err)
			require.NotNil(t, ds)
			defer ds.Close()

			sp := ds.(*internal.StreamProcessor)
			assert.Equal(t, streamURI, sp.GetBaseURI())
			assert.Equal(t, pollURI, sp.GetPollingBaseURI())
			assert.Equal(t, delay, sp.GetInitialReconnectDelay())
		})
	})
}

// The detailed stream protocol behavior is covered by the StreamProcessor tests; here we just verify
// that a data source created through the builder really connects to the configured endpoints.
func TestStreamingDataSourceBuilderWiresUpEndpoints(t *testing.T) {
	initialData := ldservices.NewServerSDKData().Flags(ldservices.FlagOrSegment("my-flag", 2))
	events := make(chan eventsource.Event, 10)
	streamHandler, _ := ldservices.ServerSideStreamingServiceHandler(initialData, events)

	flagEndpointHandler := httphelpers.HandlerForPath(
		"/sdk/latest-flags/my-flag",
		httphelpers.HandlerWithJSONResponse(ldservices.FlagOrSegment("my-flag", 5), nil),
		nil,
	)
	httphelpers.WithServer(streamHandler, func(streamServer *httptest.Server) {
		httphelpers.WithServer(flagEndpointHandler, func(sdkServer *httptest.Server) {
			withMockDataSourceUpdates(func(dataSourceUpdates *sharedtest.MockDataSourceUpdates) {
				ds, err := StreamingDataSource().
					BaseURI(streamServer.URL).
					PollingBaseURI(sdkServer.URL).
					InitialReconnectDelay(time.Millisecond * 50).
					CreateDataSource(basicClientContext(), dataSourceUpdates)
				require.NoError(t, err)
				defer ds.Close()

				closeWhenReady := make(chan struct{})
				ds.Start(closeWhenReady)

				select {
				case <-closeWhenReady:
				case <-time.After(time.Second):
					require.Fail(t, "start timeout")
					return
				}
				dataSourceUpdates.DataStore.WaitForInit(t, initialData, time.Second*3)

				// An indirect patch event forces a fetch from the polling endpoint.
				events <- ldservices.NewSSEEvent("", "indirect/patch", "/flags/my-flag")
				dataSourceUpdates.DataStore.WaitForUpsert(t, interfaces.DataKindFeatures(), "my-flag", 5, time.Second*3)
			})
		})
	})
}
