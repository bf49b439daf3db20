package interfaces

// DataSourceUpdates is an interface that a data source implementation will use to push data into
// the SDK.
//
// The data source interacts with this object, rather than manipulating the data store directly,
// so that the SDK can perform any other necessary operations that occur when data is updated,
// such as updating the data source status and logging connection problems.
type DataSourceUpdates interface {
	// Init overwrites the current contents of the data store with a set of items for each
	// collection.
	//
	// If the underlying data store returns an error during this operation, the SDK will log it,
	// and set the data source state to DataSourceStateInterrupted with an error of
	// DataSourceErrorKindStoreError. It will not return the error to the data source, but will
	// return false.
	Init(allData []StoreCollection) bool

	// Upsert updates or inserts an item in the specified collection. For updates, the object
	// will only be updated if the existing version is less than the new version.
	//
	// To mark an item as deleted, pass a StoreItemDescriptor with a nil Item and a nonzero
	// version. Deletions must be versioned so that they do not conflict with other updates of
	// the same item.
	//
	// If the underlying data store returns an error during this operation, the SDK will log it,
	// and set the data source state to DataSourceStateInterrupted with an error of
	// DataSourceErrorKindStoreError. It will not return the error to the data source, but will
	// return false.
	Upsert(kind StoreDataKind, key string, item StoreItemDescriptor) bool

	// UpdateStatus informs the SDK of a change in the data source's status.
	//
	// Data source implementations should use this method if they have any concept of being in a
	// valid state, a temporarily disconnected state, or a permanently stopped state.
	//
	// If newState is different from the previous state, and/or newError is non-empty, the SDK
	// will record the new status so that it can log the transition appropriately.
	//
	// A special case is that if newState is DataSourceStateInterrupted, but the previous state
	// was DataSourceStateInitializing, the state will remain at Initializing because
	// Interrupted is only meaningful after a successful startup.
	//
	// Data source implementations normally should not need to set the state to
	// DataSourceStateValid, because that will happen automatically if they update the data store.
	UpdateStatus(newState DataSourceState, newError DataSourceErrorInfo)
}
