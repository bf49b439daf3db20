package ldclient

import (
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/internal"
	"github.com/lightdeck/go-server-sdk/ldbuilders"
	"github.com/lightdeck/go-server-sdk/ldcomponents"
	"github.com/lightdeck/go-server-sdk/ldevents"
	"github.com/lightdeck/go-server-sdk/ldmodel"
	"github.com/lightdeck/go-server-sdk/sharedtest"
)

const testSdkKey = "test-sdk-key"

var testUser = lduser.NewUser("test-user-key")

var alwaysTrueFlag = ldbuilders.NewFlagBuilder("always-true-flag").SingleVariation(ldvalue.Bool(true)).Build()

func basicClientContext() interfaces.ClientContext {
	context, _ := newClientContextFromConfig(testSdkKey,
		Config{Logging: ldcomponents.Logging().Loggers(sharedtest.NewTestLoggers())}, nil)
	return context
}

func makeInMemoryDataStore() interfaces.DataStore {
	return internal.NewInMemoryDataStore(sharedtest.NewTestLoggers())
}

func upsertFlag(store interfaces.DataStore, flag *ldmodel.FeatureFlag) {
	store.Upsert(interfaces.DataKindFeatures(), flag.Key, interfaces.StoreItemDescriptor{Version: flag.Version, Item: flag})
}

func upsertSegment(store interfaces.DataStore, segment *ldmodel.Segment) {
	store.Upsert(interfaces.DataKindSegments(), segment.Key,
		interfaces.StoreItemDescriptor{Version: segment.Version, Item: segment})
}

type singleDataStoreFactory struct {
	dataStore interfaces.DataStore
}

func (f singleDataStoreFactory) CreateDataStore(context interfaces.ClientContext) (interfaces.DataStore, error) {
	return f.dataStore, nil
}

type singleDataSourceFactory struct {
	dataSource interfaces.DataSource
}

func (f singleDataSourceFactory) CreateDataSource(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
) (interfaces.DataSource, error) {
	return f.dataSource, nil
}

type dataSourceFactoryThatExposesUpdater struct {
	underlyingFactory interfaces.DataSourceFactory
	dataSourceUpdates interfaces.DataSourceUpdates
}

func (f *dataSourceFactoryThatExposesUpdater) CreateDataSource(
	context interfaces.ClientContext,
	dataSourceUpdates interfaces.DataSourceUpdates,
) (interfaces.DataSource, error) {
	f.dataSourceUpdates = dataSourceUpdates
	return f.underlyingFactory.CreateDataSource(context, dataSourceUpdates)
}

type singleEventProcessorFactory struct {
	eventProcessor ldevents.EventProcessor
}

func (f singleEventProcessorFactory) CreateEventProcessor(
	context interfaces.ClientContext,
) (ldevents.EventProcessor, error) {
	return f.eventProcessor, nil
}

type mockDataSource struct {
	Initialized bool
	CloseFn     func() error
	StartFn     func(chan<- struct{})
}

func (u mockDataSource) IsInitialized() bool {
	return u.Initialized
}

func (u mockDataSource) Close() error {
	if u.CloseFn == nil {
		return nil
	}
	return u.CloseFn()
}

func (u mockDataSource) Start(closeWhenReady chan<- struct{}) {
	if u.StartFn == nil {
		return
	}
	u.StartFn(closeWhenReady)
}

type testEventProcessor struct {
	events []ldevents.Event
}

func (t *testEventProcessor) SendEvent(e ldevents.Event) {
	t.events = append(t.events, e)
}

func (t *testEventProcessor) Flush() {}

func (t *testEventProcessor) Close() error {
	return nil
}

func makeTestClient() *LDClient {
	return makeTestClientWithConfig(nil)
}

func makeTestClientWithConfig(modConfig func(*Config)) *LDClient {
	config := Config{
		Offline:    false,
		DataStore:  singleDataStoreFactory{makeInMemoryDataStore()},
		DataSource: singleDataSourceFactory{mockDataSource{Initialized: true}},
		Events:     singleEventProcessorFactory{&testEventProcessor{}},
		Logging:    ldcomponents.Logging().Loggers(sharedtest.NewTestLoggers()),
	}
	if modConfig != nil {
		modConfig(&config)
	}
	client, err := MakeCustomClient(testSdkKey, config, time.Duration(0))
	if err != nil {
		panic(err)
	}
	return client
}
