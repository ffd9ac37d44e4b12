package web

import (
	"os"

	version "github.com/hashicorp/go-version"
	"github.com/tebeka/selenium"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Default grid endpoints for desktop browsers.
const (
	BrowserStackHubURL = "https://hub-cloud.browserstack.com/wd/hub"
	SauceLabsHubURL    = "https://ondemand.us-west-1.saucelabs.com/wd/hub"
)

// Session metadata sent to cloud grids.
const (
	cloudProjectName     = "Automation Framework"
	cloudBuildName       = "Build 1.0"
	cloudSeleniumVersion = "4.0.0"
)

// CloudEndpoint returns REMOTE_URL when set, else the provider's hub.
func CloudEndpoint(provider config.CloudProvider, getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var def string
	switch provider {
	case config.ProviderBrowserStack:
		def = BrowserStackHubURL
	case config.ProviderSauceLabs:
		def = SauceLabsHubURL
	default:
		return "", core.ErrUnsupportedProvider.WithMessagef("unsupported cloud provider: %s", provider)
	}
	if url := getenv(config.EnvRemoteURL); url != "" {
		return url, nil
	}
	return def, nil
}

// CloudOptions are the inputs to CloudCapabilities.
type CloudOptions struct {
	Provider  config.CloudProvider
	Browser   config.Browser
	Headless  bool
	ExtraArgs []string
	Getenv    func(string) string // defaults to os.Getenv
}

// CloudCapabilities builds the remote session payload: browser options,
// browserName, browserVersion, platformName and the provider's vendor
// block. BROWSER_VERSION must be "latest" (the default), "latest-N" or a
// version number.
func CloudCapabilities(opts CloudOptions) (selenium.Capabilities, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	args, err := BrowserArgs(opts.Browser, opts.Headless, false, opts.ExtraArgs)
	if err != nil {
		return nil, err
	}
	caps, err := Capabilities(opts.Browser, args)
	if err != nil {
		return nil, err
	}

	browserVersion := env(config.EnvBrowserVersion, config.DefaultBrowserVersion)
	if err := ValidateBrowserVersion(browserVersion); err != nil {
		return nil, err
	}
	caps["browserName"] = string(opts.Browser)
	caps["browserVersion"] = browserVersion

	sessionName := string(opts.Browser) + " Test"
	resolution := env(config.EnvResolution, config.DefaultResolution)

	switch opts.Provider {
	case config.ProviderBrowserStack:
		caps["platformName"] = "Windows 11"
		caps["bstack:options"] = map[string]interface{}{
			"userName":        getenv(config.EnvBSUsername),
			"accessKey":       getenv(config.EnvBSAccessKey),
			"resolution":      resolution,
			"projectName":     cloudProjectName,
			"buildName":       cloudBuildName,
			"sessionName":     sessionName,
			"local":           "false",
			"seleniumVersion": cloudSeleniumVersion,
		}
	case config.ProviderSauceLabs:
		caps["platformName"] = env(config.EnvPlatform, "Windows")
		// Sauce Labs reuses the BS_* credential variables
		caps["sauce:options"] = map[string]interface{}{
			"username":         getenv(config.EnvBSUsername),
			"accessKey":        getenv(config.EnvBSAccessKey),
			"resolution":       resolution,
			"project":          cloudProjectName,
			"build":            cloudBuildName,
			"name":             sessionName,
			"selenium_version": cloudSeleniumVersion,
		}
	default:
		return nil, core.ErrUnsupportedProvider.WithMessagef("unsupported cloud provider: %s", opts.Provider)
	}
	return caps, nil
}

// ValidateBrowserVersion accepts "latest", "latest-N" and version numbers.
func ValidateBrowserVersion(v string) error {
	if v == "latest" || v == "beta" || v == "dev" {
		return nil
	}
	if len(v) > len("latest-") && v[:len("latest-")] == "latest-" {
		if _, err := version.NewVersion(v[len("latest-"):]); err == nil {
			return nil
		}
	}
	if _, err := version.NewVersion(v); err != nil {
		return core.ErrInvalidBrowserVersion.WithCause(err).WithMessagef("invalid %s %q", config.EnvBrowserVersion, v)
	}
	return nil
}
