package internal

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	intf "github.com/lightdeck/go-server-sdk/interfaces"
)

// persistentDataStoreWrapper is the implementation of DataStore that we use for all persistent data stores.
type persistentDataStoreWrapper struct {
	core              intf.PersistentDataStore
	cache             *cache.Cache
	cacheTTL          time.Duration
	staleValuesPolicy intf.StaleValuesPolicy
	requests          singleflight.Group
	loggers           ldlog.Loggers
	refreshCh         chan refreshRequest
	refreshQuit       chan struct{}
	pendingRefreshes  map[string]bool
	pendingLock       sync.Mutex
	closeOnce         sync.Once
	inited            bool
	initLock          sync.RWMutex
}

const initCheckedKey = "$initChecked"

const asyncRefreshQueueSize = 100

// cachedItem and cachedItemList carry the time an entry was stored, because under the refresh
// policies the cache itself never expires anything and staleness is computed from this timestamp.
type cachedItem struct {
	item     intf.StoreItemDescriptor
	cachedAt time.Time
}

type cachedItemList struct {
	items    []intf.StoreKeyedItemDescriptor
	cachedAt time.Time
}

type refreshRequest struct {
	kind intf.StoreDataKind
	key  string
	all  bool
}

// NewPersistentDataStoreWrapper creates the implementation of DataStore that we use for all persistent data
// stores. This is not visible in the public API; it is always called through ldcomponents.PersistentDataStore().
func NewPersistentDataStoreWrapper(
	core intf.PersistentDataStore,
	cacheTTL time.Duration,
	staleValuesPolicy intf.StaleValuesPolicy,
	loggers ldlog.Loggers,
) intf.DataStore {
	switch staleValuesPolicy {
	case intf.StaleValuesRefresh, intf.StaleValuesRefreshAsync:
	default:
		staleValuesPolicy = intf.StaleValuesEvict
	}

	var myCache *cache.Cache
	if cacheTTL != 0 {
		if staleValuesPolicy == intf.StaleValuesEvict || cacheTTL < 0 {
			myCache = cache.New(cacheTTL, 5*time.Minute)
			// Note that the documented behavior of go-cache is that if cacheTTL is negative, the
			// cache never expires. That is consistent with how we've defined the parameter.
		} else {
			// The refresh policies serve expired entries instead of evicting them, so the cache
			// never expires anything on its own; isStale decides when a new query is needed.
			myCache = cache.New(cache.NoExpiration, 0)
		}
	}

	w := &persistentDataStoreWrapper{
		core:              core,
		cache:             myCache,
		cacheTTL:          cacheTTL,
		staleValuesPolicy: staleValuesPolicy,
		loggers:           loggers,
	}

	if myCache != nil && cacheTTL > 0 && staleValuesPolicy == intf.StaleValuesRefreshAsync {
		w.refreshCh = make(chan refreshRequest, asyncRefreshQueueSize)
		w.refreshQuit = make(chan struct{})
		w.pendingRefreshes = make(map[string]bool)
		go w.runRefreshWorker()
	}

	return w
}

func (w *persistentDataStoreWrapper) Init(allData []intf.StoreCollection) error {
	err := w.initCore(allData)
	if w.cache != nil {
		w.cache.Flush()
	}
	if err != nil && !w.hasCacheWithInfiniteTTL() {
		// Normally, if the underlying store failed to do the update, we do not want to update the cache -
		// the idea being that it's better to stay in a consistent state of having old data than to act
		// like we have new data but then suddenly fall back to old data when the cache expires. However,
		// if the cache TTL is infinite, then it makes sense to update the cache always.
		return err
	}
	if w.cache != nil {
		for _, coll := range allData {
			w.cacheItems(coll.Kind, coll.Items)
		}
	}
	if err == nil || w.hasCacheWithInfiniteTTL() {
		w.initLock.Lock()
		defer w.initLock.Unlock()
		w.inited = true
	}
	return err
}

func (w *persistentDataStoreWrapper) Get(kind intf.StoreDataKind, key string) (intf.StoreItemDescriptor, error) {
	if w.cache == nil {
		return w.getAndDeserializeItem(kind, key)
	}
	cacheKey := dataStoreCacheKey(kind, key)
	if data, present := w.cache.Get(cacheKey); present {
		if cached, ok := data.(cachedItem); ok {
			if !w.isStale(cached.cachedAt) {
				return cached.item, nil
			}
			if w.staleValuesPolicy == intf.StaleValuesRefreshAsync {
				// Serve the last known value and requery the store in the background.
				w.scheduleRefresh(refreshRequest{kind: kind, key: key})
				return cached.item, nil
			}
			// Requery the store synchronously, keeping the last known value if the query fails.
			item, err := w.fetchItem(kind, key)
			if err != nil {
				return cached.item, nil
			}
			return item, nil
		}
	}
	// Item was not cached or cached value was not valid. Use singleflight to ensure that we'll only
	// do this core query once even if multiple goroutines are requesting it
	return w.fetchItem(kind, key)
}

func (w *persistentDataStoreWrapper) GetAll(kind intf.StoreDataKind) ([]intf.StoreKeyedItemDescriptor, error) {
	if w.cache == nil {
		return w.getAllAndDeserialize(kind)
	}
	// Check whether we have a cache item for the entire data set
	cacheKey := dataStoreAllItemsCacheKey(kind)
	if data, present := w.cache.Get(cacheKey); present {
		if cached, ok := data.(cachedItemList); ok {
			if !w.isStale(cached.cachedAt) {
				return cached.items, nil
			}
			if w.staleValuesPolicy == intf.StaleValuesRefreshAsync {
				w.scheduleRefresh(refreshRequest{kind: kind, all: true})
				return cached.items, nil
			}
			items, err := w.fetchAllItems(kind)
			if err != nil {
				return cached.items, nil
			}
			return items, nil
		}
	}
	// Data set was not cached or cached value was not valid. Use singleflight to ensure that we'll only
	// do this core query once even if multiple goroutines are requesting it
	return w.fetchAllItems(kind)
}

func (w *persistentDataStoreWrapper) Upsert(
	kind intf.StoreDataKind,
	key string,
	newItem intf.StoreItemDescriptor,
) (bool, error) {
	serializedItem := w.serialize(kind, newItem)
	updated, err := w.core.Upsert(kind, key, serializedItem)
	// Normally, if the underlying store failed to do the update, we do not want to update the cache -
	// the idea being that it's better to stay in a consistent state of having old data than to act
	// like we have new data but then suddenly fall back to old data when the cache expires. However,
	// if the cache TTL is infinite, then it makes sense to update the cache always.
	if err != nil {
		if !w.hasCacheWithInfiniteTTL() {
			return updated, err
		}
	}
	if w.cache != nil {
		cacheKey := dataStoreCacheKey(kind, key)
		allCacheKey := dataStoreAllItemsCacheKey(kind)
		if err == nil {
			if updated {
				w.cache.Set(cacheKey, cachedItem{item: newItem, cachedAt: time.Now()}, cache.DefaultExpiration)
				// If the cache has a finite TTL, then we should remove the "all items" cache entry to force
				// a reread the next time All is called. However, if it's an infinite TTL, we need to just
				// update the item within the existing "all items" entry (since we want things to still work
				// even if the underlying store is unavailable).
				if w.hasCacheWithInfiniteTTL() {
					if data, present := w.cache.Get(allCacheKey); present {
						if cached, ok := data.(cachedItemList); ok {
							w.cache.Set(allCacheKey,
								cachedItemList{items: updateSingleItem(cached.items, key, newItem), cachedAt: cached.cachedAt},
								cache.DefaultExpiration)
						}
					}
				} else {
					w.cache.Delete(allCacheKey)
				}
			} else {
				// there was a concurrent modification elsewhere - update the cache to get the new state
				w.cache.Delete(cacheKey)
				w.cache.Delete(allCacheKey)
				_, _ = w.Get(kind, key) // doing this query repopulates the cache
			}
		} else {
			// The underlying store returned an error. If the cache has an infinite TTL, then we should go
			// ahead and update the cache so that it always has the latest data.
			if w.hasCacheWithInfiniteTTL() {
				now := time.Now()
				w.cache.Set(cacheKey, cachedItem{item: newItem, cachedAt: now}, cache.DefaultExpiration)
				cachedItems := []intf.StoreKeyedItemDescriptor{}
				if data, present := w.cache.Get(allCacheKey); present {
					if cached, ok := data.(cachedItemList); ok {
						cachedItems = cached.items
					}
				}
				w.cache.Set(allCacheKey,
					cachedItemList{items: updateSingleItem(cachedItems, key, newItem), cachedAt: now},
					cache.DefaultExpiration)
			}
		}
	}
	return updated, err
}

func (w *persistentDataStoreWrapper) IsInitialized() bool {
	w.initLock.RLock()
	previousValue := w.inited
	w.initLock.RUnlock()
	if previousValue {
		return true
	}

	if w.cache != nil {
		if _, found := w.cache.Get(initCheckedKey); found {
			return false
		}
	}

	newValue := w.core.IsInitialized()
	if newValue {
		w.initLock.Lock()
		defer w.initLock.Unlock()
		w.inited = true
		if w.cache != nil {
			w.cache.Delete(initCheckedKey)
		}
	} else if w.cache != nil {
		// The sentinel gets an explicit TTL because the refresh policies configure the cache with
		// no default expiration. A negative TTL makes it permanent, so the store is asked only once.
		w.cache.Set(initCheckedKey, "", w.cacheTTL)
	}
	return newValue
}

func (w *persistentDataStoreWrapper) Close() error {
	w.closeOnce.Do(func() {
		if w.refreshQuit != nil {
			close(w.refreshQuit)
		}
	})
	return w.core.Close()
}

// isStale is how the refresh policies detect expiration, since their cache entries are stored
// without a native TTL. Under the evict policy, expired entries simply vanish from the cache.
func (w *persistentDataStoreWrapper) isStale(cachedAt time.Time) bool {
	if w.staleValuesPolicy == intf.StaleValuesEvict || w.cacheTTL <= 0 {
		return false
	}
	return time.Since(cachedAt) >= w.cacheTTL
}

func (w *persistentDataStoreWrapper) scheduleRefresh(req refreshRequest) {
	pendingKey := dataStoreCacheKey(req.kind, req.key)
	if req.all {
		pendingKey = dataStoreAllItemsCacheKey(req.kind)
	}
	w.pendingLock.Lock()
	if w.pendingRefreshes[pendingKey] {
		w.pendingLock.Unlock()
		return
	}
	w.pendingRefreshes[pendingKey] = true
	w.pendingLock.Unlock()
	select {
	case w.refreshCh <- req:
	default:
		// The refresh worker is saturated; the next stale read will try again.
		w.clearPendingRefresh(pendingKey)
	}
}

func (w *persistentDataStoreWrapper) clearPendingRefresh(pendingKey string) {
	w.pendingLock.Lock()
	delete(w.pendingRefreshes, pendingKey)
	w.pendingLock.Unlock()
}

func (w *persistentDataStoreWrapper) runRefreshWorker() {
	for {
		select {
		case <-w.refreshQuit:
			return
		case req := <-w.refreshCh:
			var pendingKey string
			var err error
			if req.all {
				pendingKey = dataStoreAllItemsCacheKey(req.kind)
				_, err = w.fetchAllItems(req.kind)
			} else {
				pendingKey = dataStoreCacheKey(req.kind, req.key)
				_, err = w.fetchItem(req.kind, req.key)
			}
			w.clearPendingRefresh(pendingKey)
			if err != nil {
				// The cache still has the last known value, so reads are unaffected.
				w.loggers.Errorf("Failed to refresh cached data from the persistent store: %s", err)
			}
		}
	}
}

// fetchItem queries the persistent store for a single item, caching the result if the query
// succeeds. Concurrent fetches of the same item are coalesced into one query.
func (w *persistentDataStoreWrapper) fetchItem(
	kind intf.StoreDataKind,
	key string,
) (intf.StoreItemDescriptor, error) {
	cacheKey := dataStoreCacheKey(kind, key)
	reqKey := fmt.Sprintf("get:%s:%s", kind.GetName(), key)
	itemIntf, err, _ := w.requests.Do(reqKey, func() (interface{}, error) {
		item, err := w.getAndDeserializeItem(kind, key)
		if err != nil {
			return nil, err
		}
		w.cache.Set(cacheKey, cachedItem{item: item, cachedAt: time.Now()}, cache.DefaultExpiration)
		return item, nil
	})
	if err != nil || itemIntf == nil {
		return intf.StoreItemDescriptor{}.NotFound(), err
	}
	if item, ok := itemIntf.(intf.StoreItemDescriptor); ok { // singleflight.Group.Do returns value as interface{}
		return item, nil
	}
	w.loggers.Errorf("data store query returned unexpected type %T", itemIntf)
	// COVERAGE: there is no way to simulate this condition in unit tests; it should be impossible
	return intf.StoreItemDescriptor{}.NotFound(), nil
}

// fetchAllItems is the whole-collection equivalent of fetchItem.
func (w *persistentDataStoreWrapper) fetchAllItems(
	kind intf.StoreDataKind,
) ([]intf.StoreKeyedItemDescriptor, error) {
	cacheKey := dataStoreAllItemsCacheKey(kind)
	reqKey := fmt.Sprintf("all:%s", kind.GetName())
	itemsIntf, err, _ := w.requests.Do(reqKey, func() (interface{}, error) {
		items, err := w.getAllAndDeserialize(kind)
		if err != nil {
			return nil, err
		}
		w.cache.Set(cacheKey, cachedItemList{items: items, cachedAt: time.Now()}, cache.DefaultExpiration)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	if items, ok := itemsIntf.([]intf.StoreKeyedItemDescriptor); ok { // singleflight.Group.Do returns value as interface{}
		return items, nil
	}
	w.loggers.Errorf("data store query returned unexpected type %T", itemsIntf)
	// COVERAGE: there is no way to simulate this condition in unit tests; it should be impossible
	return nil, nil
}

func (w *persistentDataStoreWrapper) hasCacheWithInfiniteTTL() bool {
	return w.cache != nil && w.cacheTTL < 0
}

func dataStoreCacheKey(kind intf.StoreDataKind, key string) string {
	return kind.GetName() + ":" + key
}

func dataStoreAllItemsCacheKey(kind intf.StoreDataKind) string {
	return "all:" + kind.GetName()
}

func (w *persistentDataStoreWrapper) initCore(allData []intf.StoreCollection) error {
	serializedAllData := make([]intf.StoreSerializedCollection, 0, len(allData))
	for _, coll := range allData {
		serializedAllData = append(serializedAllData, intf.StoreSerializedCollection{
			Kind:  coll.Kind,
			Items: w.serializeAll(coll.Kind, coll.Items),
		})
	}
	return w.core.Init(serializedAllData)
}

func (w *persistentDataStoreWrapper) getAndDeserializeItem(
	kind intf.StoreDataKind,
	key string,
) (intf.StoreItemDescriptor, error) {
	serializedItem, err := w.core.Get(kind, key)
	if err == nil {
		return w.deserialize(kind, serializedItem)
	}
	return intf.StoreItemDescriptor{}.NotFound(), err
}

func (w *persistentDataStoreWrapper) getAllAndDeserialize(
	kind intf.StoreDataKind,
) ([]intf.StoreKeyedItemDescriptor, error) {
	serializedItems, err := w.core.GetAll(kind)
	if err == nil {
		ret := make([]intf.StoreKeyedItemDescriptor, 0, len(serializedItems))
		for _, serializedItem := range serializedItems {
			item, err := w.deserialize(kind, serializedItem.Item)
			if err != nil {
				return nil, err
			}
			if item.Item == nil {
				continue // persistent stores keep deleted item placeholders, but queries do not return them
			}
			ret = append(ret, intf.StoreKeyedItemDescriptor{Key: serializedItem.Key, Item: item})
		}
		return ret, nil
	}
	return nil, err
}

func (w *persistentDataStoreWrapper) cacheItems(
	kind intf.StoreDataKind,
	items []intf.StoreKeyedItemDescriptor,
) {
	if w.cache != nil {
		now := time.Now()
		copyOfItems := make([]intf.StoreKeyedItemDescriptor, len(items))
		copy(copyOfItems, items)
		w.cache.Set(dataStoreAllItemsCacheKey(kind), cachedItemList{items: copyOfItems, cachedAt: now},
			cache.DefaultExpiration)

		for _, item := range items {
			w.cache.Set(dataStoreCacheKey(kind, item.Key), cachedItem{item: item.Item, cachedAt: now},
				cache.DefaultExpiration)
		}
	}
}

func (w *persistentDataStoreWrapper) serialize(
	kind intf.StoreDataKind,
	item intf.StoreItemDescriptor,
) intf.StoreSerializedItemDescriptor {
	isDeleted := item.Item == nil
	return intf.StoreSerializedItemDescriptor{
		Version:        item.Version,
		Deleted:        isDeleted,
		SerializedItem: kind.Serialize(item),
	}
}

func (w *persistentDataStoreWrapper) serializeAll(
	kind intf.StoreDataKind,
	items []intf.StoreKeyedItemDescriptor,
) []intf.StoreKeyedSerializedItemDescriptor {
	ret := make([]intf.StoreKeyedSerializedItemDescriptor, 0, len(items))
	for _, item := range items {
		ret = append(ret, intf.StoreKeyedSerializedItemDescriptor{
			Key:  item.Key,
			Item: w.serialize(kind, item.Item),
		})
	}
	return ret
}

func (w *persistentDataStoreWrapper) deserialize(
	kind intf.StoreDataKind,
	serializedItemDesc intf.StoreSerializedItemDescriptor,
) (intf.StoreItemDescriptor, error) {
	if serializedItemDesc.Deleted || serializedItemDesc.SerializedItem == nil {
		return intf.StoreItemDescriptor{Version: serializedItemDesc.Version}, nil
	}
	deserializedItemDesc, err := kind.Deserialize(serializedItemDesc.SerializedItem)
	if err != nil {
		return intf.StoreItemDescriptor{}.NotFound(), err
	}
	if serializedItemDesc.Version == 0 || serializedItemDesc.Version == deserializedItemDesc.Version {
		return deserializedItemDesc, nil
	}
	// If the store gave us a version number that isn't what was encoded in the object, trust it
	return intf.StoreItemDescriptor{Version: serializedItemDesc.Version, Item: deserializedItemDesc.Item}, nil
}

func updateSingleItem(
	items []intf.StoreKeyedItemDescriptor,
	key string,
	newItem intf.StoreItemDescriptor,
) []intf.StoreKeyedItemDescriptor {
	// A nil Item is a deletion, and deleted items are omitted from query results, so the key is
	// dropped from the list rather than replaced.
	isDeleted := newItem.Item == nil
	found := false
	ret := make([]intf.StoreKeyedItemDescriptor, 0, len(items))
	for _, item := range items {
		if item.Key == key {
			found = true
			if !isDeleted {
				ret = append(ret, intf.StoreKeyedItemDescriptor{Key: key, Item: newItem})
			}
		} else {
			ret = append(ret, item)
		}
	}
	if !found && !isDeleted {
		ret = append(ret, intf.StoreKeyedItemDescriptor{Key: key, Item: newItem})
	}
	return ret
}
