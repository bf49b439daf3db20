package ldcomponents

import (
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/internal"
)

// PersistentDataStoreDefaultCacheTime is the default amount of time that recently read or updated items
// will be cached in memory, if you use PersistentDataStore(). You can specify otherwise with the
// PersistentDataStoreBuilder.CacheTime() option.
const PersistentDataStoreDefaultCacheTime = 15 * time.Second

// PersistentDataStore returns a configuration builder for some implementation of a persistent data store.
//
// This method is used in conjunction with another factory object provided by specific components
// such as the Redis integration. The latter provides builder methods for options that are specific
// to that integration, while the PersistentDataStoreBuilder provides options that are
// applicable to any persistent data store (such as caching). For example:
//
//     config := ld.Config{
//         DataStore: ldcomponents.PersistentDataStore(
//             ldredis.DataStore().URL("redis://my-redis-host"),
//         ).CacheSeconds(15),
//     }
//
// See PersistentDataStoreBuilder for more on how this method is used.
func PersistentDataStore(persistentDataStoreFactory interfaces.PersistentDataStoreFactory) *PersistentDataStoreBuilder {
	return &PersistentDataStoreBuilder{
		persistentDataStoreFactory: persistentDataStoreFactory,
		cacheTTL:                   PersistentDataStoreDefaultCacheTime,
		staleValuesPolicy:          interfaces.StaleValuesEvict,
	}
}

// PersistentDataStoreBuilder is a configurable factory for a persistent data store.
//
// Database integrations provide the behavior and options specific to one database, via some
// implementation of PersistentDataStoreFactory. There is also universal behavior that the SDK
// provides for all persistent data stores, such as caching; the PersistentDataStoreBuilder adds this.
//
// After configuring this object, store it in the DataStore field of your SDK configuration. For example,
// using the Redis integration:
//
//     config := ld.Config{
//         DataStore: ldcomponents.PersistentDataStore(
//             ldredis.DataStore().URL("redis://my-redis-host"),
//         ).CacheSeconds(15),
//     }
//
// In this example, URL() is an option specifically for the Redis integration, whereas CacheSeconds() is
// an option that can be used for any persistent data store.
type PersistentDataStoreBuilder struct {
	persistentDataStoreFactory interfaces.PersistentDataStoreFactory
	cacheTTL                   time.Duration
	staleValuesPolicy          interfaces.StaleValuesPolicy
}

// CacheTime specifies the cache TTL. Items will be evicted from the cache after this amount of time
// from the time when they were originally cached.
//
// If the value is zero, caching is disabled (equivalent to NoCaching).
//
// If the value is negative, data is cached forever (equivalent to CacheForever).
func (b *PersistentDataStoreBuilder) CacheTime(cacheTime time.Duration) *PersistentDataStoreBuilder {
	b.cacheTTL = cacheTime
	return b
}

// CacheSeconds is a shortcut for calling CacheTime with a duration in seconds.
func (b *PersistentDataStoreBuilder) CacheSeconds(cacheSeconds int) *PersistentDataStoreBuilder {
	return b.CacheTime(time.Duration(cacheSeconds) * time.Second)
}

// CacheForever specifies that the in-memory cache should never expire. In this mode, data will be
// written to both the underlying persistent store and the cache, but will only ever be read from the
// persistent store if the SDK is restarted.
//
// Use this mode with caution: it means that in a scenario where multiple processes are sharing
// the database, and the current process loses connectivity to LightDeck while other processes
// are still receiving updates and writing them to the database, the current process will have
// stale data.
func (b *PersistentDataStoreBuilder) CacheForever() *PersistentDataStoreBuilder {
	return b.CacheTime(-1 * time.Millisecond)
}

// NoCaching specifies that the SDK should not use an in-memory cache for the persistent data store.
// This means that every feature flag evaluation will trigger a data store query.
func (b *PersistentDataStoreBuilder) NoCaching() *PersistentDataStoreBuilder {
	return b.CacheTime(0)
}

// StaleValuesPolicy specifies how the cache behaves when a cached item's TTL has expired.
//
// With the default policy, interfaces.StaleValuesEvict, expired items are simply dropped from the
// cache and the next read queries the persistent store again. The refresh policies instead keep the
// last known value and re-query the store, either synchronously (interfaces.StaleValuesRefresh) or
// on a background worker (interfaces.StaleValuesRefreshAsync), so that a database outage does not
// make previously seen flag data unavailable.
//
// This setting has no effect if caching is disabled or if the cache TTL is infinite.
func (b *PersistentDataStoreBuilder) StaleValuesPolicy(
	staleValuesPolicy interfaces.StaleValuesPolicy,
) *PersistentDataStoreBuilder {
	b.staleValuesPolicy = staleValuesPolicy
	return b
}

// CreateDataStore is called by the SDK to create the data store implementation object.
func (b *PersistentDataStoreBuilder) CreateDataStore(
	context interfaces.ClientContext,
) (interfaces.DataStore, error) {
	core, err := b.persistentDataStoreFactory.CreatePersistentDataStore(context)
	if err != nil {
		return nil, err
	}
	return internal.NewPersistentDataStoreWrapper(core, b.cacheTTL, b.staleValuesPolicy,
		context.GetLogging().GetLoggers()), nil
}

// DescribeConfiguration is used internally by the SDK to inspect the configuration.
func (b *PersistentDataStoreBuilder) DescribeConfiguration() ldvalue.Value {
	if dd, ok := b.persistentDataStoreFactory.(interfaces.DiagnosticDescription); ok {
		return dd.DescribeConfiguration()
	}
	return ldvalue.String("custom")
}
