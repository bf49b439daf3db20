package interfaces

import "io"

// PersistentDataStore is an interface for a persistent data store that holds feature flags and
// related data in a serialized form.
//
// This interface should be used for database integrations, or any other data store
// implementation that stores data in some external service. The SDK will provide its own caching
// layer on top of the persistent data store; the data store implementation should not provide
// caching, but simply do every query or update that the SDK tells it to do.
//
// Implementations must be safe for concurrent access by multiple goroutines.
//
// Error handling is defined as follows: if any data store operation has an error, the SDK
// assumes that the underlying database is now in a non-working state. The error will be logged,
// and the caching layer will fall back to any last known values if the cache is configured to
// allow that.
//
// Whenever a PersistentDataStore is constructed, the SDK will call IsStoreAvailable to determine
// whether the database is reachable.
type PersistentDataStore interface {
	io.Closer

	// Init overwrites the store's contents with a set of items for each collection.
	//
	// All previous data should be discarded, regardless of versioning.
	//
	// The update should be done atomically. If it cannot be done atomically, then the store
	// must first add or update each item in the same order that they are given in the input
	// data, and then delete any previously stored items that were not in the input data.
	Init(allData []StoreSerializedCollection) error

	// Get retrieves an item from the specified collection, if available.
	//
	// If the specified key does not exist in the collection, it returns
	// StoreSerializedItemDescriptor{}.NotFound().
	//
	// If the item has been deleted and the store contains a placeholder, it returns that
	// placeholder rather than NotFound(). The placeholder can be either an item whose Deleted
	// property is true, or a serialized representation of a deleted item as defined by the
	// data kind; it is allowable to return either of these regardless of how the placeholder
	// was originally stored.
	Get(kind StoreDataKind, key string) (StoreSerializedItemDescriptor, error)

	// GetAll retrieves all items from the specified collection.
	//
	// If the store contains placeholders for deleted items, it should include them in the
	// results, not filter them out.
	GetAll(kind StoreDataKind) ([]StoreKeyedSerializedItemDescriptor, error)

	// Upsert updates or inserts an item in the specified collection. For updates, the object
	// will only be updated if the existing version is less than the new version.
	//
	// The SDK may pass a StoreSerializedItemDescriptor whose Deleted property is true, to
	// represent a placeholder for a deleted item. In that case, assuming the version is greater
	// than any existing version of that item, the store should retain that placeholder rather
	// than simply not storing anything.
	//
	// The method returns true if the item was updated, or false if it was not updated because
	// the store contains an equal or greater version.
	Upsert(kind StoreDataKind, key string, newItem StoreSerializedItemDescriptor) (bool, error)

	// IsInitialized returns true if the data store contains a complete data set, meaning that
	// Init has been called at least once.
	//
	// In a shared data store, it should be able to detect this even if Init was called in a
	// different process: that is, the test should be based on looking at what is in the data
	// store.
	IsInitialized() bool

	// IsStoreAvailable tests whether the data store seems to be functioning normally.
	//
	// This should not be a detailed test of different kinds of operations, but just the smallest
	// possible operation to determine whether (for instance) we can reach the database.
	IsStoreAvailable() bool
}

// PersistentDataStoreFactory is a factory that creates some implementation of
// PersistentDataStore.
//
// This interface is implemented by database integration packages such as ldredis. Pass such a
// factory to ldcomponents.PersistentDataStore to use the database as a data store, adding the
// SDK's standard caching layer.
type PersistentDataStoreFactory interface {
	// CreatePersistentDataStore is called by the SDK to create the implementation instance.
	CreatePersistentDataStore(context ClientContext) (PersistentDataStore, error)
}
