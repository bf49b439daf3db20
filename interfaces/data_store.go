package interfaces

import "io"

// DataStoreFactory is a factory that creates some implementation of DataStore.
//
// The SDK's standard implementations can be configured with the ldcomponents package.
type DataStoreFactory interface {
	// CreateDataStore is called by the SDK to create the implementation instance.
	CreateDataStore(context ClientContext) (DataStore, error)
}

// DataStore is an interface for a versioned key-value store that holds feature flags and
// related data received by the SDK.
//
// Implementations must be safe for concurrent access by multiple goroutines.
type DataStore interface {
	io.Closer

	// Init overwrites the store's contents with a set of items for each collection.
	//
	// All previous data is discarded, regardless of versioning.
	//
	// The update should be done atomically. If that is not possible, the store must first add or
	// update each item in the same order that they are given in the input data, and then delete
	// any previously stored items that were not in the input data.
	Init(allData []StoreCollection) error

	// Get retrieves an item from the specified collection, if available.
	//
	// If the specified key does not exist in the collection, it returns
	// StoreItemDescriptor{}.NotFound().
	//
	// If the item has been deleted and the store contains a placeholder, it returns a
	// StoreItemDescriptor with the placeholder's version and a nil Item.
	Get(kind StoreDataKind, key string) (StoreItemDescriptor, error)

	// GetAll retrieves all items from the specified collection.
	//
	// Deleted item placeholders are not included in the results.
	GetAll(kind StoreDataKind) ([]StoreKeyedItemDescriptor, error)

	// Upsert updates or inserts an item in the specified collection. For updates, the object
	// will only be updated if the existing version is less than the new version.
	//
	// The SDK may pass a StoreItemDescriptor with a nil Item to represent a placeholder for a
	// deleted item. In that case, assuming the version is greater than any existing version of
	// that item, the store should retain that placeholder rather than simply not storing
	// anything.
	//
	// The return value is true if the item was updated, or false if it was not updated because
	// the store contains an equal or greater version.
	Upsert(kind StoreDataKind, key string, item StoreItemDescriptor) (bool, error)

	// IsInitialized returns true if the data store contains a data set, meaning that Init has
	// been called at least once.
	//
	// In a shared data store, it should be able to detect this even if Init was called in a
	// different process: that is, the test should be based on looking at what is in the data
	// store. Once this has been determined to be true, it can continue to return true without
	// having to check the store again; this method should be as fast as possible since it may
	// be called during feature flag evaluations.
	IsInitialized() bool
}
