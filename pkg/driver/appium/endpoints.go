package appium

import (
	"os"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Default grid endpoints for mobile sessions.
const (
	BrowserStackMobileURL = "https://hub.browserstack.com/wd/hub"
	SauceLabsMobileURL    = "https://ondemand.us-west-1.saucelabs.com/wd/hub"
)

// Endpoint returns the Appium server for a mode and provider. Local runs
// use APPIUM_SERVER_URL, defaulting to the standard local port.
func Endpoint(mode config.ExecutionMode, provider config.CloudProvider, getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if mode == config.ModeLocal {
		if url := getenv(config.EnvAppiumServerURL); url != "" {
			return url, nil
		}
		return config.DefaultAppiumURL, nil
	}
	switch provider {
	case config.ProviderBrowserStack:
		return BrowserStackMobileURL, nil
	case config.ProviderSauceLabs:
		return SauceLabsMobileURL, nil
	}
	return "", core.ErrUnsupportedProvider.WithMessagef("unsupported mobile cloud provider: %s", provider)
}
