package ldmodel

import "encoding/json"

// DataModelSerialization is the encoding/decoding of flags and segments as they
// appear in LightDeck service JSON. Unmarshaling also runs the preprocessing step,
// so items produced by a DataModelSerialization are ready for evaluation.
type DataModelSerialization interface {
	// MarshalFeatureFlag converts a feature flag into its JSON representation.
	MarshalFeatureFlag(item FeatureFlag) ([]byte, error)

	// MarshalSegment converts a segment into its JSON representation.
	MarshalSegment(item Segment) ([]byte, error)

	// UnmarshalFeatureFlag parses a feature flag from JSON and preprocesses it.
	UnmarshalFeatureFlag(data []byte) (FeatureFlag, error)

	// UnmarshalSegment parses a segment from JSON and preprocesses it.
	UnmarshalSegment(data []byte) (Segment, error)
}

// NewJSONDataModelSerialization returns the standard JSON serialization for the
// data model types.
func NewJSONDataModelSerialization() DataModelSerialization {
	return jsonDataModelSerialization{}
}

type jsonDataModelSerialization struct{}

func (s jsonDataModelSerialization) MarshalFeatureFlag(item FeatureFlag) ([]byte, error) {
	return json.Marshal(item)
}

func (s jsonDataModelSerialization) MarshalSegment(item Segment) ([]byte, error) {
	return json.Marshal(item)
}

func (s jsonDataModelSerialization) UnmarshalFeatureFlag(data []byte) (FeatureFlag, error) {
	var item FeatureFlag
	err := json.Unmarshal(data, &item)
	if err == nil {
		PreprocessFlag(&item)
	}
	return item, err
}

func (s jsonDataModelSerialization) UnmarshalSegment(data []byte) (Segment, error) {
	var item Segment
	err := json.Unmarshal(data, &item)
	if err == nil {
		PreprocessSegment(&item)
	}
	return item, err
}
