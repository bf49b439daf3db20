package internal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	intf "github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/sharedtest"
)

type testCacheMode string

const (
	testUncached           testCacheMode = "uncached"
	testCached             testCacheMode = "cached"
	testCachedIndefinitely testCacheMode = "cached indefinitely"
)

func (m testCacheMode) isCached() bool {
	return m != testUncached
}

func (m testCacheMode) ttl() time.Duration {
	switch m {
	case testCached:
		return 30 * time.Second
	case testCachedIndefinitely:
		return -1
	default:
		return 0
	}
}

func makeWrapperWithPolicy(
	core *sharedtest.MockPersistentDataStore,
	cacheTTL time.Duration,
	policy intf.StaleValuesPolicy,
) intf.DataStore {
	return NewPersistentDataStoreWrapper(core, cacheTTL, policy, ldlog.NewDisabledLoggers())
}

func itemsAsMap(items []intf.StoreKeyedItemDescriptor) map[string]intf.StoreItemDescriptor {
	ret := make(map[string]intf.StoreItemDescriptor)
	for _, item := range items {
		ret[item.Key] = item.Item
	}
	return ret
}

func TestPersistentDataStoreWrapper(t *testing.T) {
	cacheTime := 30 * time.Second

	runTests := func(t *testing.T, name string, test func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore),
		forModes ...testCacheMode) {
		t.Run(name, func(t *testing.T) {
			if len(forModes) == 0 {
				require.True(t, false, "didn't specify any testCacheModes")
			}
			for _, mode := range forModes {
				t.Run(string(mode), func(t *testing.T) {
					test(t, mode, sharedtest.NewMockPersistentDataStore())
				})
			}
		})
	}

	runTests(t, "Get", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()
		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv2.ToSerializedItemDescriptor())
		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		if mode.isCached() {
			require.Equal(t, itemv1.ToItemDescriptor(), item) // returns cached value, does not call getter
		} else {
			require.Equal(t, itemv2.ToItemDescriptor(), item) // no caching, calls getter
		}
	}, testUncached, testCached, testCachedIndefinitely)

	runTests(t, "Get with deleted item", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()
		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1, Deleted: true}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, intf.StoreItemDescriptor{Version: 1, Item: nil}, item) // deleted item placeholder

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv2.ToSerializedItemDescriptor())
		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		if mode.isCached() {
			require.Nil(t, item.Item) // it used the cached deleted item rather than calling the getter
		} else {
			require.Equal(t, itemv2.ToItemDescriptor(), item) // no caching, calls getter
		}
	}, testUncached, testCached, testCachedIndefinitely)

	runTests(t, "Get with missing item", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		mockLog := sharedtest.NewMockLoggers()
		w := NewPersistentDataStoreWrapper(core, mode.ttl(), intf.StaleValuesEvict, mockLog.Loggers)
		defer w.Close()
		item := sharedtest.MockDataItem{Key: "item", Version: 1}

		result, err := w.Get(sharedtest.MockData, item.Key)
		require.NoError(t, err)
		require.Nil(t, result.Item)

		// a missing item should *not* be logged as an error by this component
		assert.Len(t, mockLog.GetOutput(ldlog.Error), 0)

		core.ForceSet(sharedtest.MockData, item.Key, item.ToSerializedItemDescriptor())
		result, err = w.Get(sharedtest.MockData, item.Key)
		require.NoError(t, err)
		if mode.isCached() {
			require.Nil(t, result.Item) // the cache retains a nil result
		} else {
			require.Equal(t, item.ToItemDescriptor(), result) // no caching, calls getter
		}
	}, testUncached, testCached, testCachedIndefinitely)

	runTests(t, "cached Get uses values from Init", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		allData := sharedtest.MakeMockDataSet(itemv1)
		err := w.Init(allData)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToSerializedItemDescriptor(), core.ForceGet(sharedtest.MockData, itemv1.Key))

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv2.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item) // it used the cached item rather than calling the getter
	}, testCached, testCachedIndefinitely)

	runTests(t, "GetAll", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()
		item1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item2 := sharedtest.MockDataItem{Key: "item2", Version: 1}

		core.ForceSet(sharedtest.MockData, item1.Key, item1.ToSerializedItemDescriptor())
		core.ForceSet(sharedtest.MockData, item2.Key, item2.ToSerializedItemDescriptor())
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Equal(t, 2, len(items))

		core.ForceRemove(sharedtest.MockData, item2.Key)
		items, err = w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		if mode.isCached() {
			require.Equal(t, 2, len(items))
		} else {
			require.Equal(t, 1, len(items))
		}
	}, testUncached, testCached, testCachedIndefinitely)

	runTests(t, "GetAll does not return deleted item placeholders", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()
		item1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item2 := sharedtest.MockDataItem{Key: "item2", Version: 1, Deleted: true}

		core.ForceSet(sharedtest.MockData, item1.Key, item1.ToSerializedItemDescriptor())
		core.ForceSet(sharedtest.MockData, item2.Key, item2.ToSerializedItemDescriptor())
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Equal(t, []intf.StoreKeyedItemDescriptor{
			{Key: item1.Key, Item: item1.ToItemDescriptor()},
		}, items)
	}, testUncached, testCached, testCachedIndefinitely)

	runTests(t, "cached GetAll uses values from Init", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()

		item1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item2 := sharedtest.MockDataItem{Key: "item2", Version: 1}

		allData := sharedtest.MakeMockDataSet(item1, item2)
		err := w.Init(allData)
		require.NoError(t, err)

		core.ForceRemove(sharedtest.MockData, item2.Key)
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Equal(t, 2, len(items))
	}, testCached, testCachedIndefinitely)

	runTests(t, "cached GetAll uses fresh values if there has been an update", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()

		item1v1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item1v2 := sharedtest.MockDataItem{Key: item1v1.Key, Version: 2}
		item2v1 := sharedtest.MockDataItem{Key: "item2", Version: 1}
		item2v2 := sharedtest.MockDataItem{Key: item2v1.Key, Version: 2}

		allData := sharedtest.MakeMockDataSet(item1v1, item2v1)
		err := w.Init(allData)
		require.NoError(t, err)

		// make a change to item1 using the wrapper - this should flush the cache
		_, err = w.Upsert(sharedtest.MockData, item1v1.Key, item1v2.ToItemDescriptor())
		require.NoError(t, err)

		// make a change to item2 that bypasses the cache
		core.ForceSet(sharedtest.MockData, item2v1.Key, item2v2.ToSerializedItemDescriptor())

		// we should now see both changes since the cache was flushed
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Equal(t, 2, itemsAsMap(items)[item2v1.Key].Version)
	}, testCached)

	runTests(t, "Upsert - successful", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		updated, err := w.Upsert(sharedtest.MockData, itemv1.Key, itemv1.ToItemDescriptor())
		require.NoError(t, err)
		require.True(t, updated)
		require.Equal(t, itemv1.ToSerializedItemDescriptor(), core.ForceGet(sharedtest.MockData, itemv1.Key))

		updated, err = w.Upsert(sharedtest.MockData, itemv1.Key, itemv2.ToItemDescriptor())
		require.NoError(t, err)
		require.True(t, updated)
		require.Equal(t, itemv2.ToSerializedItemDescriptor(), core.ForceGet(sharedtest.MockData, itemv1.Key))

		// if we have a cache, verify that the new item is now cached by writing a different value
		// to the underlying data - Get should still return the cached item
		if mode.isCached() {
			itemv3 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 3}
			core.ForceSet(sharedtest.MockData, itemv1.Key, itemv3.ToSerializedItemDescriptor())
		}

		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv2.ToItemDescriptor(), item)
	}, testUncached, testCached, testCachedIndefinitely)

	runTests(t, "cached Upsert - unsuccessful", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		// This is for an upsert where the data in the store has a higher version. In an uncached
		// store, this is just a no-op as far as the wrapper is concerned so there's nothing to
		// test here. In a cached store, we need to verify that the cache has been refreshed
		// using the data that was found in the store.
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		updated, err := w.Upsert(sharedtest.MockData, itemv1.Key, itemv2.ToItemDescriptor())
		require.NoError(t, err)
		require.True(t, updated)
		require.Equal(t, itemv2.ToSerializedItemDescriptor(), core.ForceGet(sharedtest.MockData, itemv1.Key))

		updated, err = w.Upsert(sharedtest.MockData, itemv1.Key, itemv1.ToItemDescriptor())
		require.NoError(t, err)
		require.False(t, updated)
		// value in store remains the same
		require.Equal(t, itemv2.ToSerializedItemDescriptor(), core.ForceGet(sharedtest.MockData, itemv1.Key))

		itemv3 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 3}
		// bypasses cache so we can verify that itemv2 is in the cache
		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv3.ToSerializedItemDescriptor())

		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv2.ToItemDescriptor(), item)
	}, testCached, testCachedIndefinitely)

	runTests(t, "Delete", func(t *testing.T, mode testCacheMode, core *sharedtest.MockPersistentDataStore) {
		w := makeWrapperWithPolicy(core, mode.ttl(), intf.StaleValuesEvict)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		deletedItem := intf.StoreItemDescriptor{Version: 2, Item: nil}
		updated, err := w.Upsert(sharedtest.MockData, itemv1.Key, deletedItem)
		require.NoError(t, err)
		require.True(t, updated)
		require.Equal(t, intf.StoreSerializedItemDescriptor{Version: 2, Deleted: true},
			core.ForceGet(sharedtest.MockData, itemv1.Key))

		// make a change to the item that bypasses the cache
		itemv3 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 3}
		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv3.ToSerializedItemDescriptor())

		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		if mode.isCached() {
			require.Equal(t, deletedItem, item)
		} else {
			require.Equal(t, itemv3.ToItemDescriptor(), item)
		}
	}, testUncached, testCached, testCachedIndefinitely)

	t.Run("IsInitialized queries the store only if not already inited", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, 0, intf.StaleValuesEvict)
		defer w.Close()

		assert.False(t, w.IsInitialized())
		assert.Equal(t, 1, core.InitQueriedCount)

		core.ForceSetInited(true)
		assert.True(t, w.IsInitialized())
		assert.Equal(t, 2, core.InitQueriedCount)

		core.ForceSetInited(false)
		assert.True(t, w.IsInitialized())
		assert.Equal(t, 2, core.InitQueriedCount)
	})

	t.Run("IsInitialized will not query the store if Init has been called", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, 0, intf.StaleValuesEvict)
		defer w.Close()

		assert.False(t, w.IsInitialized())
		assert.Equal(t, 1, core.InitQueriedCount)

		err := w.Init(sharedtest.MakeMockDataSet())
		require.NoError(t, err)

		assert.True(t, w.IsInitialized())
		assert.Equal(t, 1, core.InitQueriedCount)
	})

	t.Run("IsInitialized can cache a false result", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, 500*time.Millisecond, intf.StaleValuesEvict)
		defer w.Close()

		assert.False(t, w.IsInitialized())
		assert.Equal(t, 1, core.InitQueriedCount)

		core.ForceSetInited(true)
		assert.False(t, w.IsInitialized())
		assert.Equal(t, 1, core.InitQueriedCount)

		time.Sleep(600 * time.Millisecond)
		assert.True(t, w.IsInitialized())
		assert.Equal(t, 2, core.InitQueriedCount)
	})

	t.Run("cached Get coalesces requests for same key", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		queryStartedCh := core.EnableInstrumentedQueries(200 * time.Millisecond)
		w := makeWrapperWithPolicy(core, cacheTime, intf.StaleValuesEvict)
		defer w.Close()

		item := sharedtest.MockDataItem{Key: "item", Version: 9}
		core.ForceSet(sharedtest.MockData, item.Key, item.ToSerializedItemDescriptor())

		resultCh := make(chan int, 2)
		go func() {
			result, _ := w.Get(sharedtest.MockData, item.Key)
			resultCh <- result.Version
		}()
		// We can't actually *guarantee* that our second query will start while the first one is still
		// in progress, but the combination of waiting on queryStartedCh and the built-in delay in
		// the instrumented store should make it extremely likely.
		<-queryStartedCh
		go func() {
			result, _ := w.Get(sharedtest.MockData, item.Key)
			resultCh <- result.Version
		}()

		result1 := <-resultCh
		result2 := <-resultCh
		assert.Equal(t, item.Version, result1)
		assert.Equal(t, item.Version, result2)

		assert.Len(t, queryStartedCh, 0) // core only received 1 query
	})

	t.Run("cached Get does not coalesce requests for different keys", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		queryStartedCh := core.EnableInstrumentedQueries(200 * time.Millisecond)
		w := makeWrapperWithPolicy(core, cacheTime, intf.StaleValuesEvict)
		defer w.Close()

		item1 := sharedtest.MockDataItem{Key: "item1", Version: 8}
		item2 := sharedtest.MockDataItem{Key: "item2", Version: 9}
		core.ForceSet(sharedtest.MockData, item1.Key, item1.ToSerializedItemDescriptor())
		core.ForceSet(sharedtest.MockData, item2.Key, item2.ToSerializedItemDescriptor())

		resultCh := make(chan int, 2)
		go func() {
			result, _ := w.Get(sharedtest.MockData, item1.Key)
			resultCh <- result.Version
		}()
		<-queryStartedCh
		go func() {
			result, _ := w.Get(sharedtest.MockData, item2.Key)
			resultCh <- result.Version
		}()

		results := map[int]bool{}
		results[<-resultCh] = true
		results[<-resultCh] = true
		assert.Equal(t, map[int]bool{item1.Version: true, item2.Version: true}, results)

		assert.Len(t, queryStartedCh, 1) // core received a total of 2 queries
	})

	t.Run("cached GetAll coalesces requests", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		queryStartedCh := core.EnableInstrumentedQueries(200 * time.Millisecond)
		w := makeWrapperWithPolicy(core, cacheTime, intf.StaleValuesEvict)
		defer w.Close()

		item := sharedtest.MockDataItem{Key: "item", Version: 9}
		core.ForceSet(sharedtest.MockData, item.Key, item.ToSerializedItemDescriptor())

		resultCh := make(chan int, 2)
		go func() {
			result, _ := w.GetAll(sharedtest.MockData)
			resultCh <- len(result)
		}()
		<-queryStartedCh
		go func() {
			result, _ := w.GetAll(sharedtest.MockData)
			resultCh <- len(result)
		}()

		result1 := <-resultCh
		result2 := <-resultCh
		assert.Equal(t, 1, result1)
		assert.Equal(t, 1, result2)

		assert.Len(t, queryStartedCh, 0) // core only received 1 query
	})

	t.Run("cached store with finite TTL will not update cache if core update fails", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, cacheTime, intf.StaleValuesEvict)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		err := w.Init(sharedtest.MakeMockDataSet(itemv1))
		require.NoError(t, err)

		fakeError := errors.New("sorry")
		core.SetFakeError(fakeError)
		_, err = w.Upsert(sharedtest.MockData, itemv1.Key, itemv2.ToItemDescriptor())
		require.Equal(t, fakeError, err)

		core.SetFakeError(nil)
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item) // cache still has old item, same as underlying store
	})

	t.Run("cached store with infinite TTL will update cache even if core update fails", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, -1, intf.StaleValuesEvict)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		err := w.Init(sharedtest.MakeMockDataSet(itemv1))
		require.NoError(t, err)

		fakeError := errors.New("sorry")
		core.SetFakeError(fakeError)
		_, err = w.Upsert(sharedtest.MockData, itemv1.Key, itemv2.ToItemDescriptor())
		require.Equal(t, fakeError, err)

		core.SetFakeError(nil)
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv2.ToItemDescriptor(), item) // underlying store has old item but cache has new item
	})

	t.Run("cached store with finite TTL will not update cache if core init fails", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, cacheTime, intf.StaleValuesEvict)
		defer w.Close()

		item := sharedtest.MockDataItem{Key: "item", Version: 1}

		fakeError := errors.New("sorry")
		core.SetFakeError(fakeError)
		err := w.Init(sharedtest.MakeMockDataSet(item))
		require.Equal(t, fakeError, err)

		core.SetFakeError(nil)
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Len(t, items, 0)
	})

	t.Run("cached store with infinite TTL will update cache even if core init fails", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, -1, intf.StaleValuesEvict)
		defer w.Close()

		item := sharedtest.MockDataItem{Key: "item", Version: 1}

		fakeError := errors.New("sorry")
		core.SetFakeError(fakeError)
		err := w.Init(sharedtest.MakeMockDataSet(item))
		require.Equal(t, fakeError, err)

		core.SetFakeError(nil)
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Equal(t, []intf.StoreKeyedItemDescriptor{
			{Key: item.Key, Item: item.ToItemDescriptor()},
		}, items)
	})

	t.Run("cached store with finite TTL removes cached GetAll data if a single item is updated", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, cacheTime, intf.StaleValuesEvict)
		defer w.Close()

		item1v1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item1v2 := sharedtest.MockDataItem{Key: item1v1.Key, Version: 2}
		item2v1 := sharedtest.MockDataItem{Key: "item2", Version: 1}
		item2v2 := sharedtest.MockDataItem{Key: item2v1.Key, Version: 2}

		err := w.Init(sharedtest.MakeMockDataSet(item1v1, item2v1))
		require.NoError(t, err)

		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Len(t, items, 2)
		// now the GetAll data is cached

		// do an Upsert for item1 - this should drop the previous GetAll data from the cache
		_, err = w.Upsert(sharedtest.MockData, item1v1.Key, item1v2.ToItemDescriptor())
		require.NoError(t, err)

		// modify item2 directly in the underlying data
		core.ForceSet(sharedtest.MockData, item2v1.Key, item2v2.ToSerializedItemDescriptor())

		// now, GetAll should reread the underlying data so we see both changes
		items, err = w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		itemsMap := itemsAsMap(items)
		assert.Equal(t, item1v2.ToItemDescriptor(), itemsMap[item1v1.Key])
		assert.Equal(t, item2v2.ToItemDescriptor(), itemsMap[item2v1.Key])
	})

	t.Run("cached store with infinite TTL updates cached GetAll data if a single item is updated", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, -1, intf.StaleValuesEvict)
		defer w.Close()

		item1v1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item1v2 := sharedtest.MockDataItem{Key: item1v1.Key, Version: 2}
		item2v1 := sharedtest.MockDataItem{Key: "item2", Version: 1}
		item2v2 := sharedtest.MockDataItem{Key: item2v1.Key, Version: 2}

		err := w.Init(sharedtest.MakeMockDataSet(item1v1, item2v1))
		require.NoError(t, err)

		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Len(t, items, 2)
		// now the GetAll data is cached

		// do an Upsert for item1 - this should update the underlying data *and* the cached GetAll data
		_, err = w.Upsert(sharedtest.MockData, item1v1.Key, item1v2.ToItemDescriptor())
		require.NoError(t, err)

		// modify item2 directly in the underlying data
		core.ForceSet(sharedtest.MockData, item2v1.Key, item2v2.ToSerializedItemDescriptor())

		// now, GetAll should *not* reread the underlying data - we should only see the change to item1
		items, err = w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		itemsMap := itemsAsMap(items)
		assert.Equal(t, item1v2.ToItemDescriptor(), itemsMap[item1v1.Key])
		assert.Equal(t, item2v1.ToItemDescriptor(), itemsMap[item2v1.Key])
	})

	t.Run("cached store with infinite TTL removes deleted item from cached GetAll data", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, -1, intf.StaleValuesEvict)
		defer w.Close()

		item1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item2 := sharedtest.MockDataItem{Key: "item2", Version: 1}

		err := w.Init(sharedtest.MakeMockDataSet(item1, item2))
		require.NoError(t, err)

		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Len(t, items, 2)

		// delete item2 through the wrapper - the cached GetAll data should drop the key
		_, err = w.Upsert(sharedtest.MockData, item2.Key, intf.StoreItemDescriptor{Version: 2, Item: nil})
		require.NoError(t, err)

		// modify item2 directly in the underlying data to prove the next query is served from the cache
		item2v3 := sharedtest.MockDataItem{Key: item2.Key, Version: 3}
		core.ForceSet(sharedtest.MockData, item2.Key, item2v3.ToSerializedItemDescriptor())

		items, err = w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Equal(t, []intf.StoreKeyedItemDescriptor{
			{Key: item1.Key, Item: item1.ToItemDescriptor()},
		}, items)
	})
}

func TestPersistentDataStoreWrapperStalePolicies(t *testing.T) {
	// These policies only apply when there is a finite, positive cache TTL. The cache serves
	// expired entries instead of evicting them, and a stale read triggers a requery.
	shortTTL := 100 * time.Millisecond

	t.Run("refresh policy requeries the store synchronously when an item is stale", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, shortTTL, intf.StaleValuesRefresh)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv2.ToSerializedItemDescriptor())

		// not stale yet, so the cached value is served
		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		time.Sleep(shortTTL + 50*time.Millisecond)

		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv2.ToItemDescriptor(), item)
	})

	t.Run("refresh policy keeps serving the last known value if the requery fails", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, shortTTL, intf.StaleValuesRefresh)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		core.SetFakeError(errors.New("sorry"))
		time.Sleep(shortTTL + 50*time.Millisecond)

		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)
	})

	t.Run("refresh policy requeries all items when the data set is stale", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, shortTTL, intf.StaleValuesRefresh)
		defer w.Close()

		item1 := sharedtest.MockDataItem{Key: "item1", Version: 1}
		item2 := sharedtest.MockDataItem{Key: "item2", Version: 1}

		core.ForceSet(sharedtest.MockData, item1.Key, item1.ToSerializedItemDescriptor())
		items, err := w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Len(t, items, 1)

		core.ForceSet(sharedtest.MockData, item2.Key, item2.ToSerializedItemDescriptor())
		time.Sleep(shortTTL + 50*time.Millisecond)

		items, err = w.GetAll(sharedtest.MockData)
		require.NoError(t, err)
		require.Len(t, items, 2)
	})

	t.Run("async refresh policy serves the stale value and refreshes in the background", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, shortTTL, intf.StaleValuesRefreshAsync)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}
		itemv2 := sharedtest.MockDataItem{Key: itemv1.Key, Version: 2}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv2.ToSerializedItemDescriptor())
		time.Sleep(shortTTL + 50*time.Millisecond)

		// the first stale read returns the old value immediately
		item, err = w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		// the background refresh eventually replaces the cached value
		require.Eventually(t, func() bool {
			item, err := w.Get(sharedtest.MockData, itemv1.Key)
			return err == nil && item.Version == itemv2.Version
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("async refresh policy serves the stale value if the store is failing", func(t *testing.T) {
		core := sharedtest.NewMockPersistentDataStore()
		w := makeWrapperWithPolicy(core, shortTTL, intf.StaleValuesRefreshAsync)
		defer w.Close()

		itemv1 := sharedtest.MockDataItem{Key: "item", Version: 1}

		core.ForceSet(sharedtest.MockData, itemv1.Key, itemv1.ToSerializedItemDescriptor())
		item, err := w.Get(sharedtest.MockData, itemv1.Key)
		require.NoError(t, err)
		require.Equal(t, itemv1.ToItemDescriptor(), item)

		core.SetFakeError(errors.New("sorry"))
		time.Sleep(shortTTL + 50*time.Millisecond)

		// every read keeps returning the last known value with no error
		for i := 0; i < 3; i++ {
			item, err = w.Get(sharedtest.MockData, itemv1.Key)
			require.NoError(t, err)
			require.Equal(t, itemv1.ToItemDescriptor(), item)
			time.Sleep(20 * time.Millisecond)
		}
	})
}
