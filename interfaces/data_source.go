package interfaces

import "io"

// DataSourceFactory is a factory that creates some implementation of DataSource.
//
// The SDK's standard implementations can be configured with the ldcomponents package.
type DataSourceFactory interface {
	// CreateDataSource is called by the SDK to create the implementation instance.
	//
	// The dataSourceUpdates parameter is an object that the DataSource can use to push data into
	// the SDK. The DataSource interacts only with this object, not directly with the data store.
	CreateDataSource(context ClientContext, dataSourceUpdates DataSourceUpdates) (DataSource, error)
}

// DataSource describes the interface for an object that receives feature flag data.
type DataSource interface {
	io.Closer

	// IsInitialized returns true if the data source has successfully initialized at some point.
	//
	// Once this is true, it should remain true even if a problem occurs later.
	IsInitialized() bool

	// Start tells the data source to begin initializing. If it has already begun, this is a no-op.
	//
	// The data source should close the closeWhenReady channel if and when it has either
	// successfully initialized for the first time, or determined that initialization cannot ever
	// succeed.
	Start(closeWhenReady chan<- struct{})
}
