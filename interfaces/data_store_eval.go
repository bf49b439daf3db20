package interfaces

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"

	"github.com/lightdeck/go-server-sdk/ldeval"
	"github.com/lightdeck/go-server-sdk/ldmodel"
)

// NewDataStoreEvaluatorDataProvider provides an adapter for using a DataStore with the
// evaluation engine in ldeval.
//
// Normal use of the SDK does not require this type. It is provided for use by other LightDeck
// components that use DataStore and Evaluator separately from the SDK client.
func NewDataStoreEvaluatorDataProvider(store DataStore, loggers ldlog.Loggers) ldeval.DataProvider {
	return dataStoreEvaluatorDataProvider{store, loggers}
}

type dataStoreEvaluatorDataProvider struct {
	store   DataStore
	loggers ldlog.Loggers
}

func (d dataStoreEvaluatorDataProvider) GetFeatureFlag(key string) *ldmodel.FeatureFlag {
	item, err := d.store.Get(DataKindFeatures(), key)
	if err == nil && item.Item != nil {
		data := item.Item
		flag, ok := data.(*ldmodel.FeatureFlag)
		if ok {
			return flag
		}
		d.loggers.Errorf("unexpected data type (%T) found in store for feature key: %s. Returning default value", data, key)
	}
	return nil
}

func (d dataStoreEvaluatorDataProvider) GetSegment(key string) *ldmodel.Segment {
	item, err := d.store.Get(DataKindSegments(), key)
	if err == nil && item.Item != nil {
		data := item.Item
		segment, ok := data.(*ldmodel.Segment)
		if ok {
			return segment
		}
		d.loggers.Errorf("unexpected data type (%T) found in store for segment key: %s. Returning default value", data, key)
	}
	return nil
}
