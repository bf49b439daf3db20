package internal

import "github.com/lightdeck/go-server-sdk/interfaces"

// NewNullDataSource returns a stub implementation of DataSource that does nothing. It is used
// when the client is configured to not connect to LightDeck at all.
func NewNullDataSource() interfaces.DataSource {
	return nullDataSource{}
}

type nullDataSource struct{}

func (n nullDataSource) IsInitialized() bool {
	return true
}

func (n nullDataSource) Close() error {
	return nil
}

func (n nullDataSource) Start(closeWhenReady chan<- struct{}) {
	close(closeWhenReady)
}
