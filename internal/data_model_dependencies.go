package internal

import (
	"sort"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/ldmodel"
)

type kindAndKey struct {
	kind interfaces.StoreDataKind
	key  string
}

// This set type is implemented as a map, but the values do not matter, just the keys.
type kindAndKeySet map[kindAndKey]bool

func (s kindAndKeySet) add(value kindAndKey) {
	s[value] = true
}

func computeDependenciesFrom(kind interfaces.StoreDataKind, fromItem interfaces.StoreItemDescriptor) kindAndKeySet {
	if kind == interfaces.DataKindFeatures() {
		if flag, ok := fromItem.Item.(*ldmodel.FeatureFlag); ok {
			var ret kindAndKeySet
			if len(flag.Prerequisites) > 0 {
				ret = make(kindAndKeySet, len(flag.Prerequisites))
				for _, p := range flag.Prerequisites {
					ret.add(kindAndKey{interfaces.DataKindFeatures(), p.Key})
				}
			}
			for _, r := range flag.Rules {
				for _, c := range r.Clauses {
					if c.Op == ldmodel.OperatorSegmentMatch {
						for _, v := range c.Values {
							if v.Type() == ldvalue.StringType {
								if ret == nil {
									ret = make(kindAndKeySet)
								}
								ret.add(kindAndKey{interfaces.DataKindSegments(), v.StringValue()})
							}
						}
					}
				}
			}
			return ret
		}
	}
	return nil
}

// sortCollectionsForDataStoreInit is used for data stores that do not have atomic initialization,
// so that if the init is interrupted partway, anything stored so far will not refer to anything
// that has not been stored yet. Segments are written before flags, and flags are ordered so that
// prerequisites come before the flags that use them.
func sortCollectionsForDataStoreInit(allData []interfaces.StoreCollection) []interfaces.StoreCollection {
	colls := make([]interfaces.StoreCollection, 0, len(allData))
	for _, coll := range allData {
		if doesDataKindSupportDependencies(coll.Kind) {
			itemsOut := make([]interfaces.StoreKeyedItemDescriptor, 0, len(coll.Items))
			addItemsInDependencyOrder(coll.Kind, coll.Items, &itemsOut)
			colls = append(colls, interfaces.StoreCollection{Kind: coll.Kind, Items: itemsOut})
		} else {
			colls = append(colls, coll)
		}
	}
	sort.Slice(colls, func(i, j int) bool {
		return dataKindPriority(colls[i].Kind) < dataKindPriority(colls[j].Kind)
	})
	return colls
}

func doesDataKindSupportDependencies(kind interfaces.StoreDataKind) bool {
	return kind == interfaces.DataKindFeatures() //nolint:megacheck
}

func addItemsInDependencyOrder(
	kind interfaces.StoreDataKind,
	itemsIn []interfaces.StoreKeyedItemDescriptor,
	out *[]interfaces.StoreKeyedItemDescriptor,
) {
	remainingItems := make(map[string]interfaces.StoreItemDescriptor, len(itemsIn))
	for _, item := range itemsIn {
		remainingItems[item.Key] = item.Item
	}
	for len(remainingItems) > 0 {
		// pick a random item that hasn't been visited yet
		for firstKey := range remainingItems {
			addWithDependenciesFirst(kind, firstKey, remainingItems, out)
			break
		}
	}
}

func addWithDependenciesFirst(
	kind interfaces.StoreDataKind,
	startingKey string,
	remainingItems map[string]interfaces.StoreItemDescriptor,
	out *[]interfaces.StoreKeyedItemDescriptor,
) {
	startItem := remainingItems[startingKey]
	delete(remainingItems, startingKey) // we won't need to visit this item again
	for dep := range computeDependenciesFrom(kind, startItem) {
		if dep.kind == kind {
			if _, ok := remainingItems[dep.key]; ok {
				addWithDependenciesFirst(kind, dep.key, remainingItems, out)
			}
		}
	}
	*out = append(*out, interfaces.StoreKeyedItemDescriptor{Key: startingKey, Item: startItem})
}

// Logic for ensuring that segments are processed before features; if we get any other data types that
// haven't been accounted for here, they'll come after those two in an arbitrary order.
func dataKindPriority(kind interfaces.StoreDataKind) int {
	switch kind.GetName() {
	case "segments":
		return 0
	case "features":
		return 1
	default:
		return len(kind.GetName()) + 2
	}
}
