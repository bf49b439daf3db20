package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/ldbuilders"
	"github.com/lightdeck/go-server-sdk/sharedtest"
	"github.com/lightdeck/go-server-sdk/testhelpers/ldservices"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
)

// this mock is not used in the tests in this file; it's used in the polling and streaming data source tests
type mockRequestor struct {
	requestAllRespCh      chan mockRequestAllResponse
	requestResourceRespCh chan mockRequestResourceResponse
	pollsCh               chan struct{}
	closerCh              chan struct{}
	closeOnce             sync.Once
}

type mockRequestAllResponse struct {
	data   allData
	cached bool
	err    error
}

type mockRequestResourceResponse struct {
	item interfaces.StoreItemDescriptor
	err  error
}

func newMockRequestor() *mockRequestor {
	return &mockRequestor{
		requestAllRespCh:      make(chan mockRequestAllResponse, 100),
		requestResourceRespCh: make(chan mockRequestResourceResponse, 100),
		pollsCh:               make(chan struct{}, 100),
		closerCh:              make(chan struct{}),
	}
}

func (r *mockRequestor) Close() {
	r.closeOnce.Do(func() {
		close(r.closerCh)
	})
}

func (r *mockRequestor) requestAll() (allData, bool, error) {
	select {
	case resp := <-r.requestAllRespCh:
		r.pollsCh <- struct{}{}
		return resp.data, resp.cached, resp.err
	case <-r.closerCh:
		return allData{}, false, nil
	}
}

func (r *mockRequestor) requestResource(
	kind interfaces.StoreDataKind,
	key string,
) (interfaces.StoreItemDescriptor, error) {
	select {
	case resp := <-r.requestResourceRespCh:
		return resp.item, resp.err
	case <-r.closerCh:
		return interfaces.StoreItemDescriptor{}, errors.New("requestor was closed")
	}
}

func TestRequestorImplRequestAll(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		flag := ldbuilders.NewFlagBuilder("flagkey").Version(1).Build()
		segment := ldbuilders.NewSegmentBuilder("segmentkey").Version(1).Build()
		expectedData := sharedtest.NewDataSetBuilder().Flags(flag).Segments(segment)
		handler, requestsCh := httphelpers.RecordingHandler(
			ldservices.ServerSidePollingServiceHandler(expectedData.ToServerSDKData()),
		)
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, true)

			data, cached, err := r.requestAll()

			assert.NoError(t, err)
			assert.False(t, cached)

			require.Len(t, data.Flags, 1)
			require.Len(t, data.Segments, 1)
			assert.Equal(t, &flag, data.Flags[flag.Key])
			assert.Equal(t, &segment, data.Segments[segment.Key])

			req := <-requestsCh
			assert.Equal(t, "/sdk/latest-all", req.Request.URL.String())
		})
	})

	t.Run("HTTP error response", func(t *testing.T) {
		handler := httphelpers.HandlerWithStatus(500)
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, true)

			data, cached, err := r.requestAll()

			assert.Error(t, err)
			if he, ok := err.(httpStatusError); assert.True(t, ok) {
				assert.Equal(t, 500, he.Code)
			}
			assert.False(t, cached)
			assert.Nil(t, data.Flags)
		})
	})

	t.Run("network error", func(t *testing.T) {
		var closedServerURL string
		handler := httphelpers.HandlerWithJSONResponse(ldservices.NewServerSDKData(), nil)
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			closedServerURL = ts.URL
		})
		r := newRequestorImpl(basicClientContext(), nil, closedServerURL, true)

		data, cached, err := r.requestAll()

		assert.Error(t, err)
		assert.False(t, cached)
		assert.Nil(t, data.Flags)
	})

	t.Run("malformed data", func(t *testing.T) {
		handler := httphelpers.HandlerWithResponse(200, nil, []byte("{"))
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, true)

			data, cached, err := r.requestAll()

			require.Error(t, err)
			_, ok := err.(malformedJSONError)
			assert.True(t, ok)
			assert.False(t, cached)
			assert.Nil(t, data.Flags)
		})
	})

	t.Run("malformed base URI", func(t *testing.T) {
		r := newRequestorImpl(basicClientContext(), nil, "::::", true)

		data, cached, err := r.requestAll()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing protocol scheme")
		assert.False(t, cached)
		assert.Nil(t, data.Flags)
	})

	t.Run("sends configured headers", func(t *testing.T) {
		headers := make(http.Header)
		headers.Set("my-header", "my-value")
		handler, requestsCh := httphelpers.RecordingHandler(
			httphelpers.HandlerWithJSONResponse(ldservices.NewServerSDKData(), nil),
		)
		httpConfig := HTTPConfigurationImpl{DefaultHeaders: headers}
		context := sharedtest.NewTestContext(testSDKKey, httpConfig, sharedtest.TestLoggingConfig())

		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(context, nil, ts.URL, true)

			_, _, err := r.requestAll()
			assert.NoError(t, err)

			req := <-requestsCh
			assert.Equal(t, "my-value", req.Request.Header.Get("my-header"))
		})
	})

	t.Run("logs debug message", func(t *testing.T) {
		mockLog := sharedtest.NewMockLoggers()
		mockLog.Loggers.SetMinLevel(ldlog.Debug)
		logConfig := LoggingConfigurationImpl{Loggers: mockLog.Loggers}
		context := sharedtest.NewTestContext(testSDKKey, sharedtest.TestHTTPConfig(), logConfig)
		handler := httphelpers.HandlerWithJSONResponse(ldservices.NewServerSDKData(), nil)

		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(context, nil, ts.URL, true)

			_, _, err := r.requestAll()
			assert.NoError(t, err)

			assert.Equal(t, []string{"Polling LightDeck for feature flag updates"},
				mockLog.GetOutput(ldlog.Debug))
		})
	})
}

func TestRequestorImplRequestResource(t *testing.T) {
	t.Run("requests a flag", func(t *testing.T) {
		flag := ldbuilders.NewFlagBuilder("flagkey").Version(2).Build()
		flagJSON, _ := json.Marshal(flag)
		handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithResponse(200, nil, flagJSON))
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, false)

			item, err := r.requestResource(interfaces.DataKindFeatures(), flag.Key)

			require.NoError(t, err)
			assert.Equal(t, 2, item.Version)

			req := <-requestsCh
			assert.Equal(t, "/sdk/latest-flags/flagkey", req.Request.URL.String())
		})
	})

	t.Run("requests a segment", func(t *testing.T) {
		segment := ldbuilders.NewSegmentBuilder("segmentkey").Version(3).Build()
		segmentJSON, _ := json.Marshal(segment)
		handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithResponse(200, nil, segmentJSON))
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, false)

			item, err := r.requestResource(interfaces.DataKindSegments(), segment.Key)

			require.NoError(t, err)
			assert.Equal(t, 3, item.Version)

			req := <-requestsCh
			assert.Equal(t, "/sdk/latest-segments/segmentkey", req.Request.URL.String())
		})
	})

	t.Run("HTTP error response", func(t *testing.T) {
		handler := httphelpers.HandlerWithStatus(503)
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, false)

			_, err := r.requestResource(interfaces.DataKindFeatures(), "flagkey")

			require.Error(t, err)
			if he, ok := err.(httpStatusError); assert.True(t, ok) {
				assert.Equal(t, 503, he.Code)
			}
		})
	})

	t.Run("malformed data", func(t *testing.T) {
		handler := httphelpers.HandlerWithResponse(200, nil, []byte("{"))
		httphelpers.WithServer(handler, func(ts *httptest.Server) {
			r := newRequestorImpl(basicClientContext(), nil, ts.URL, false)

			_, err := r.requestResource(interfaces.DataKindFeatures(), "flagkey")

			require.Error(t, err)
			_, ok := err.(malformedJSONError)
			assert.True(t, ok)
		})
	})
}

func TestRequestorImplCaching(t *testing.T) {
	flag := ldbuilders.NewFlagBuilder("flagkey").Version(1).Build()
	expectedData := sharedtest.NewDataSetBuilder().Flags(flag)
	etag := "123"
	handler, requestsCh := httphelpers.RecordingHandler(
		httphelpers.SequentialHandler(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("ETag", etag)
				w.Header().Set("Cache-Control", "max-age=0")
				ldservices.ServerSidePollingServiceHandler(expectedData.ToServerSDKData()).ServeHTTP(w, r)
			}),
			httphelpers.HandlerWithStatus(304),
		),
	)
	httphelpers.WithServer(handler, func(ts *httptest.Server) {
		r := newRequestorImpl(basicClientContext(), nil, ts.URL, true)

		data1, cached1, err1 := r.requestAll()

		assert.NoError(t, err1)
		assert.False(t, cached1)
		require.Len(t, data1.Flags, 1)
		assert.Equal(t, &flag, data1.Flags[flag.Key])

		req1 := <-requestsCh
		assert.Equal(t, "/sdk/latest-all", req1.Request.URL.String())
		assert.Equal(t, "", req1.Request.Header.Get("If-None-Match"))

		data2, cached2, err2 := r.requestAll()

		assert.NoError(t, err2)
		assert.True(t, cached2)
		assert.Nil(t, data2.Flags) // for cached data, requestAll doesn't bother parsing the body

		req2 := <-requestsCh
		assert.Equal(t, "/sdk/latest-all", req2.Request.URL.String())
		assert.Equal(t, etag, req2.Request.Header.Get("If-None-Match"))
	})
}

func TestRequestorImplDoesNotUseCacheWhenDisabled(t *testing.T) {
	flag := ldbuilders.NewFlagBuilder("flagkey").Version(1).Build()
	expectedData := sharedtest.NewDataSetBuilder().Flags(flag)
	handler, requestsCh := httphelpers.RecordingHandler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("ETag", "123")
			w.Header().Set("Cache-Control", "max-age=0")
			ldservices.ServerSidePollingServiceHandler(expectedData.ToServerSDKData()).ServeHTTP(w, r)
		}),
	)
	httphelpers.WithServer(handler, func(ts *httptest.Server) {
		r := newRequestorImpl(basicClientContext(), nil, ts.URL, false)

		_, cached1, err1 := r.requestAll()
		assert.NoError(t, err1)
		assert.False(t, cached1)
		req1 := <-requestsCh
		assert.Equal(t, "", req1.Request.Header.Get("If-None-Match"))

		_, cached2, err2 := r.requestAll()
		assert.NoError(t, err2)
		assert.False(t, cached2)
		req2 := <-requestsCh
		// with caching disabled, no conditional request headers are ever sent
		assert.Equal(t, "", req2.Request.Header.Get("If-None-Match"))
	})
}

func TestRequestorImplCanUseCustomHTTPClientFactory(t *testing.T) {
	data := ldservices.NewServerSDKData().Flags(ldservices.FlagOrSegment("my-flag", 2))
	pollHandler, requestsCh := httphelpers.RecordingHandler(ldservices.ServerSidePollingServiceHandler(data))
	httpClientFactory := urlAppendingHTTPClientFactory("/transformed")
	httpConfig := HTTPConfigurationImpl{HTTPClientFactory: httpClientFactory}
	context := sharedtest.NewTestContext(testSDKKey, httpConfig, sharedtest.TestLoggingConfig())

	httphelpers.WithServer(pollHandler, func(ts *httptest.Server) {
		r := newRequestorImpl(context, nil, ts.URL, true)

		_, _, _ = r.requestAll()

		req := <-requestsCh

		assert.Equal(t, "/sdk/latest-all/transformed", req.Request.URL.Path)
	})
}
