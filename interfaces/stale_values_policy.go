package interfaces

// StaleValuesPolicy defines how the caching layer created by ldcomponents.PersistentDataStore
// behaves when a cached item's TTL has expired.
//
// This setting is only relevant when the cache TTL is greater than zero. See
// ldcomponents.PersistentDataStoreBuilder.
type StaleValuesPolicy string

const (
	// StaleValuesEvict means that expired entries are removed from the cache, so the next read
	// blocks until the item has been fetched from the persistent store again. If that query
	// fails, the error is returned to the caller.
	//
	// This is the default behavior.
	StaleValuesEvict StaleValuesPolicy = "EVICT"

	// StaleValuesRefresh means that reading an expired entry blocks while the item is fetched
	// from the persistent store again, but if that query fails, the last known value is
	// returned instead of an error.
	StaleValuesRefresh StaleValuesPolicy = "REFRESH"

	// StaleValuesRefreshAsync means that reading an expired entry immediately returns the last
	// known value, while the item is re-fetched from the persistent store on a background
	// worker. If that query fails, the error is logged and the last known value remains in the
	// cache.
	StaleValuesRefreshAsync StaleValuesPolicy = "REFRESH_ASYNC"
)
