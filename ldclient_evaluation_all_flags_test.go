package ldclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/ldbuilders"
	"github.com/lightdeck/go-server-sdk/ldcomponents"
	"github.com/lightdeck/go-server-sdk/sharedtest"
)

func TestAllFlagsStateGetsState(t *testing.T) {
	flag1 := ldbuilders.NewFlagBuilder("key1").Version(100).OffVariation(0).
		Variations(ldvalue.String("value1")).Build()
	flag2 := ldbuilders.NewFlagBuilder("key2").Version(200).OffVariation(1).
		Variations(ldvalue.String("x"), ldvalue.String("value2")).
		TrackEvents(true).DebugEventsUntilDate(1000).Build()

	withClientEvalTestParams(func(p clientEvalTestParams) {
		upsertFlag(p.store, &flag1)
		upsertFlag(p.store, &flag2)

		state := p.client.AllFlagsState(lduser.NewUser("userkey"))
		assert.True(t, state.IsValid())

		expectedString := `{
			"key1":"value1",
			"key2":"value2",
			"$flagsState":{
				"key1":{"variation":0,"version":100},
				"key2":{"variation":1,"version":200,"trackEvents":true,"debugEventsUntilDate":1000}
			},
			"$valid":true
		}`
		actualBytes, err := json.Marshal(state)
		assert.NoError(t, err)
		assert.JSONEq(t, expectedString, string(actualBytes))
	})
}

func TestAllFlagsStateCanFilterForOnlyClientSideFlags(t *testing.T) {
	flag1 := ldbuilders.NewFlagBuilder("server-side-1").Build()
	flag2 := ldbuilders.NewFlagBuilder("server-side-2").Build()
	flag3 := ldbuilders.NewFlagBuilder("client-side-1").SingleVariation(ldvalue.String("value1")).
		ClientSide(true).Build()
	flag4 := ldbuilders.NewFlagBuilder("client-side-2").SingleVariation(ldvalue.String("value2")).
		ClientSide(true).Build()

	withClientEvalTestParams(func(p clientEvalTestParams) {
		upsertFlag(p.store, &flag1)
		upsertFlag(p.store, &flag2)
		upsertFlag(p.store, &flag3)
		upsertFlag(p.store, &flag4)

		state := p.client.AllFlagsState(lduser.NewUser("userkey"), ClientSideOnly)
		assert.True(t, state.IsValid())

		expectedValues := map[string]ldvalue.Value{
			"client-side-1": ldvalue.String("value1"),
			"client-side-2": ldvalue.String("value2"),
		}
		assert.Equal(t, expectedValues, state.ToValuesMap())
	})
}

func TestAllFlagsStateGetsStateWithReasons(t *testing.T) {
	flag1 := ldbuilders.NewFlagBuilder("key1").Version(100).On(false).OffVariation(0).
		Variations(ldvalue.String("value1")).Build()
	flag2 := ldbuilders.NewFlagBuilder("key2").Version(200).On(true).FallthroughVariation(1).
		Variations(ldvalue.String("x"), ldvalue.String("value2")).Build()

	withClientEvalTestParams(func(p clientEvalTestParams) {
		upsertFlag(p.store, &flag1)
		upsertFlag(p.store, &flag2)

		state := p.client.AllFlagsState(lduser.NewUser("userkey"), WithReasons)
		assert.True(t, state.IsValid())

		expectedString := `{
			"key1":"value1",
			"key2":"value2",
			"$flagsState":{
				"key1":{"variation":0,"version":100,"reason":{"kind":"OFF"}},
				"key2":{"variation":1,"version":200,"reason":{"kind":"FALLTHROUGH"}}
			},
			"$valid":true
		}`
		actualBytes, err := json.Marshal(state)
		assert.NoError(t, err)
		assert.JSONEq(t, expectedString, string(actualBytes))
	})
}

func TestAllFlagsStateCanOmitDetailsForUntrackedFlags(t *testing.T) {
	futureTime := ldtime.UnixMillisNow() + 100000

	flag1 := ldbuilders.NewFlagBuilder("key1").Version(100).OffVariation(0).
		Variations(ldvalue.String("value1")).Build()
	flag2 := ldbuilders.NewFlagBuilder("key2").Version(200).OffVariation(1).
		Variations(ldvalue.String("x"), ldvalue.String("value2")).TrackEvents(true).Build()
	flag3 := ldbuilders.NewFlagBuilder("key3").Version(300).OffVariation(1).
		Variations(ldvalue.String("x"), ldvalue.String("value3")).
		DebugEventsUntilDate(futureTime).Build()

	withClientEvalTestParams(func(p clientEvalTestParams) {
		upsertFlag(p.store, &flag1)
		upsertFlag(p.store, &flag2)
		upsertFlag(p.store, &flag3)

		state := p.client.AllFlagsState(lduser.NewUser("userkey"), WithReasons, DetailsOnlyForTrackedFlags)
		assert.True(t, state.IsValid())

		expectedString := fmt.Sprintf(`{
			"key1":"value1",
			"key2":"value2",
			"key3":"value3",
			"$flagsState":{
				"key1":{"variation":0},
				"key2":{"variation":1,"version":200,"reason":{"kind":"OFF"},"trackEvents":true},
				"key3":{"variation":1,"version":300,"reason":{"kind":"OFF"},"debugEventsUntilDate":%d}
			},
			"$valid":true
		}`, futureTime)
		actualBytes, err := json.Marshal(state)
		assert.NoError(t, err)
		assert.JSONEq(t, expectedString, string(actualBytes))
	})
}

func TestAllFlagsStateReturnsInvalidStateInOfflineMode(t *testing.T) {
	mockLog := sharedtest.NewMockLoggers()
	client := makeTestClientWithConfig(func(c *Config) {
		c.Offline = true
		c.Logging = ldcomponents.Logging().Loggers(mockLog.Loggers)
	})
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.False(t, state.IsValid())
	assert.Len(t, state.ToValuesMap(), 0)
	assert.Contains(t, mockLog.GetOutput(ldlog.Warn),
		"Called AllFlagsState in offline mode. Returning empty state")
}

func TestAllFlagsStateReturnsInvalidStateIfClientAndStoreAreNotInitialized(t *testing.T) {
	client := makeTestClientWithConfig(func(c *Config) {
		c.DataSource = singleDataSourceFactory{mockDataSource{Initialized: false}}
	})
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.False(t, state.IsValid())
	assert.Len(t, state.ToValuesMap(), 0)
}

func TestAllFlagsStateUsesStoreAndLogsWarningIfClientIsNotInitializedButStoreIsInitialized(t *testing.T) {
	mockLog := sharedtest.NewMockLoggers()
	flag := ldbuilders.NewFlagBuilder("flagkey").SingleVariation(ldvalue.Bool(true)).Build()
	store := makeInMemoryDataStore()
	_ = store.Init(nil)
	upsertFlag(store, &flag)

	client := makeTestClientWithConfig(func(c *Config) {
		c.DataSource = singleDataSourceFactory{mockDataSource{Initialized: false}}
		c.DataStore = singleDataStoreFactory{store}
		c.Logging = ldcomponents.Logging().Loggers(mockLog.Loggers)
	})
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.True(t, state.IsValid())
	assert.Len(t, state.ToValuesMap(), 1)

	assert.Len(t, mockLog.GetOutput(ldlog.Warn), 1)
	assert.Contains(t, mockLog.GetOutput(ldlog.Warn)[0], "using last known values")
}

func TestAllFlagsStateReturnsInvalidStateIfStoreReturnsError(t *testing.T) {
	myError := errors.New("sorry")
	store := sharedtest.NewCapturingDataStore(makeInMemoryDataStore())
	_ = store.Init(nil)
	store.SetFakeError(myError)
	mockLog := sharedtest.NewMockLoggers()

	client := makeTestClientWithConfig(func(c *Config) {
		c.DataSource = singleDataSourceFactory{mockDataSource{Initialized: true}}
		c.DataStore = singleDataStoreFactory{store}
		c.Logging = ldcomponents.Logging().Loggers(mockLog.Loggers)
	})
	defer client.Close()

	state := client.AllFlagsState(evalTestUser)
	assert.False(t, state.IsValid())
	assert.Len(t, state.ToValuesMap(), 0)

	assert.Len(t, mockLog.GetOutput(ldlog.Warn), 1)
	assert.Contains(t, mockLog.GetOutput(ldlog.Warn)[0], "Unable to fetch flags")
}
