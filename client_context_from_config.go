package ldclient

import (
	"github.com/lightdeck/go-server-sdk/interfaces"
	"github.com/lightdeck/go-server-sdk/internal"
	"github.com/lightdeck/go-server-sdk/ldcomponents"
	"github.com/lightdeck/go-server-sdk/ldevents"
)

func newClientContextFromConfig(
	sdkKey string,
	config Config,
	diagnosticsManager *ldevents.DiagnosticsManager,
) (interfaces.ClientContext, error) {
	basicConfig := interfaces.BasicConfiguration{SDKKey: sdkKey, Offline: config.Offline}

	httpFactory := config.HTTP
	if httpFactory == nil {
		httpFactory = ldcomponents.HTTPConfiguration()
	}
	http, err := httpFactory.CreateHTTPConfiguration(basicConfig)
	if err != nil {
		return nil, err
	}

	loggingFactory := config.Logging
	if loggingFactory == nil {
		loggingFactory = ldcomponents.Logging()
	}
	logging, err := loggingFactory.CreateLoggingConfiguration(basicConfig)
	if err != nil {
		return nil, err
	}

	return internal.NewClientContextImpl(
		sdkKey,
		http,
		logging,
		config.Offline,
		diagnosticsManager,
	), nil
}
