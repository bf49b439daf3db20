package internal

import (
	"errors"

	"github.com/lightdeck/go-server-sdk/interfaces"
)

// unknownDataKind is a stand-in for a data kind that the stores have never heard of.
type unknownDataKind struct{}

func (k unknownDataKind) GetName() string {
	return "unknown"
}

func (k unknownDataKind) Serialize(item interfaces.StoreItemDescriptor) []byte {
	return nil
}

func (k unknownDataKind) Deserialize(data []byte) (interfaces.StoreItemDescriptor, error) {
	return interfaces.StoreItemDescriptor{}, errors.New("not implemented")
}
