package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// TestType is the category of test a session is created for.
type TestType string

// Test types. TestTypeAll is only valid as a runner selection.
const (
	TestTypeUI     TestType = "ui"
	TestTypeMobile TestType = "mobile"
	TestTypeAPI    TestType = "api"
	TestTypeAll    TestType = "all"
)

// ConcreteTestTypes are the test types a single test can resolve to.
var ConcreteTestTypes = []TestType{TestTypeUI, TestTypeMobile, TestTypeAPI}

// Platform is a mobile platform.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ExecutionMode selects local drivers or a cloud grid.
type ExecutionMode string

const (
	ModeLocal ExecutionMode = "local"
	ModeCloud ExecutionMode = "cloud"
)

// CloudProvider names a hosted device/browser farm.
type CloudProvider string

const (
	ProviderNone         CloudProvider = ""
	ProviderBrowserStack CloudProvider = "browserstack"
	ProviderSauceLabs    CloudProvider = "saucelabs"
)

// Browser is a desktop browser.
type Browser string

const (
	BrowserChrome  Browser = "chrome"
	BrowserFirefox Browser = "firefox"
	BrowserEdge    Browser = "edge"
)

// Environment variable names shared by the CLI and test processes.
const (
	EnvEnvironment      = "ENVIRONMENT"
	EnvTestType         = "TEST_TYPE"
	EnvCurrentTestType  = "CURRENT_TEST_TYPE"
	EnvExecutionMode    = "EXECUTION_MODE"
	EnvCloudProvider    = "CLOUD_PROVIDER"
	EnvRemote           = "REMOTE"
	EnvBrowser          = "BROWSER"
	EnvHeadless         = "HEADLESS"
	EnvPlatform         = "PLATFORM"
	EnvApp              = "APP"
	EnvImplicitWait     = "IMPLICIT_WAIT"
	EnvExplicitWait     = "EXPLICIT_WAIT"
	EnvScreenshotsDir   = "SCREENSHOTS_DIR"
	EnvAppiumServerURL  = "APPIUM_SERVER_URL"
	EnvRemoteURL        = "REMOTE_URL"
	EnvBrowserVersion   = "BROWSER_VERSION"
	EnvResolution       = "RESOLUTION"
	EnvBSUsername       = "BS_USERNAME"
	EnvBSAccessKey      = "BS_ACCESS_KEY"
	EnvBrowserArgs      = "BROWSER_ARGS"
	EnvChromeDriverPath = "CHROMEDRIVER_PATH"
	EnvGeckoDriverPath  = "GECKODRIVER_PATH"
	EnvEdgeDriverPath   = "MSEDGEDRIVER_PATH"
)

// Defaults.
const (
	DefaultEnvironment    = "staging"
	DefaultImplicitWait   = 10 * time.Second
	DefaultExplicitWait   = 20 * time.Second
	DefaultAppiumURL      = "http://127.0.0.1:4723"
	DefaultResolution     = "1920x1080"
	DefaultBrowserVersion = "latest"
)

// RunConfiguration is the declarative input to the session factory.
// It is built once per test and passed by value.
type RunConfiguration struct {
	Environment   string
	TestType      TestType
	Platform      Platform
	ExecutionMode ExecutionMode
	CloudProvider CloudProvider
	Browser       Browser
	Headless      bool
	AppPath       string // empty = none
	ImplicitWait  time.Duration
}

// Default returns the configuration used when neither flags nor the
// environment say otherwise.
func Default() RunConfiguration {
	return RunConfiguration{
		Environment:   DefaultEnvironment,
		TestType:      TestTypeUI,
		Platform:      PlatformAndroid,
		ExecutionMode: ModeLocal,
		Browser:       BrowserChrome,
		ImplicitWait:  DefaultImplicitWait,
	}
}

// WithTestType returns a copy with the test type replaced.
func (c RunConfiguration) WithTestType(tt TestType) RunConfiguration {
	c.TestType = tt
	return c
}

// Remote reports whether sessions target a cloud grid.
func (c RunConfiguration) Remote() bool {
	return c.ExecutionMode == ModeCloud
}

// Validate rejects unsupported values. allowAll admits TestTypeAll, which
// only the runner may use.
func (c RunConfiguration) Validate(allowAll bool) error {
	switch c.TestType {
	case TestTypeUI, TestTypeMobile, TestTypeAPI:
	case TestTypeAll:
		if !allowAll {
			return core.ErrUnsupportedTestType.WithMessagef("test type %q must be resolved per test", c.TestType)
		}
	default:
		return core.ErrUnsupportedTestType.WithMessagef("unsupported test type: %s", c.TestType)
	}

	switch c.Platform {
	case PlatformAndroid, PlatformIOS:
	default:
		return core.ErrUnsupportedPlatform.WithMessagef("unsupported platform: %s", c.Platform)
	}

	switch c.Browser {
	case BrowserChrome, BrowserFirefox, BrowserEdge:
	default:
		return core.ErrUnsupportedBrowser.WithMessagef("unsupported browser: %s", c.Browser)
	}

	switch c.ExecutionMode {
	case ModeLocal:
	case ModeCloud:
		if c.CloudProvider == ProviderNone {
			return core.ErrMissingCloudProvider
		}
	default:
		return core.ErrUnsupportedExecutionMode.WithMessagef("unsupported execution mode: %s", c.ExecutionMode)
	}

	switch c.CloudProvider {
	case ProviderNone, ProviderBrowserStack, ProviderSauceLabs:
	default:
		return core.ErrUnsupportedProvider.WithMessagef("unsupported cloud provider: %s", c.CloudProvider)
	}

	if c.ImplicitWait < 0 {
		return errors.Errorf("implicit wait must not be negative: %s", c.ImplicitWait)
	}
	return nil
}

// FromEnv rebuilds a RunConfiguration inside a test process from the
// variables Export wrote. CURRENT_TEST_TYPE takes precedence over TEST_TYPE.
func FromEnv() (RunConfiguration, error) {
	c := Default()
	c.Environment = envOrDefault(EnvEnvironment, c.Environment)
	c.TestType = TestType(strings.ToLower(envOrDefault(EnvCurrentTestType, envOrDefault(EnvTestType, string(c.TestType)))))
	c.Platform = Platform(strings.ToLower(envOrDefault(EnvPlatform, string(c.Platform))))
	c.ExecutionMode = ExecutionMode(strings.ToLower(envOrDefault(EnvExecutionMode, string(c.ExecutionMode))))
	c.CloudProvider = CloudProvider(strings.ToLower(os.Getenv(EnvCloudProvider)))
	c.Browser = Browser(strings.ToLower(envOrDefault(EnvBrowser, string(c.Browser))))
	c.AppPath = os.Getenv(EnvApp)

	if v := os.Getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return c, errors.Wrapf(err, "parse %s", EnvHeadless)
		}
		c.Headless = headless
	}

	wait, err := SecondsFromEnv(EnvImplicitWait, DefaultImplicitWait)
	if err != nil {
		return c, err
	}
	c.ImplicitWait = wait

	return c, nil
}

// Env returns the variables that describe c to child processes.
// Browser settings are only exported for ui/all runs and platform settings
// only for mobile/all runs.
func (c RunConfiguration) Env() map[string]string {
	env := map[string]string{
		EnvEnvironment:   c.Environment,
		EnvTestType:      string(c.TestType),
		EnvExecutionMode: string(c.ExecutionMode),
		EnvImplicitWait:  strconv.Itoa(int(c.ImplicitWait / time.Second)),
	}
	if c.Remote() {
		env[EnvCloudProvider] = string(c.CloudProvider)
		env[EnvRemote] = "True"
	} else {
		env[EnvRemote] = "False"
	}
	if c.TestType == TestTypeUI || c.TestType == TestTypeAll {
		env[EnvBrowser] = string(c.Browser)
		env[EnvHeadless] = strconv.FormatBool(c.Headless)
	}
	if c.TestType == TestTypeMobile || c.TestType == TestTypeAll {
		env[EnvPlatform] = string(c.Platform)
		if c.AppPath != "" {
			env[EnvApp] = c.AppPath
		}
	}
	return env
}

// Export writes c's variables into the current process environment.
func Export(c RunConfiguration) error {
	for k, v := range c.Env() {
		if err := os.Setenv(k, v); err != nil {
			return errors.Wrapf(err, "set %s", k)
		}
	}
	return nil
}

// SecondsFromEnv parses an integer number of seconds from key.
func SecondsFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, errors.Wrapf(err, "parse %s", key)
	}
	if n < 0 {
		return fallback, errors.Errorf("%s must not be negative: %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

// EnvOrDefault returns the trimmed value of key, or fallback when unset.
func EnvOrDefault(key, fallback string) string {
	return envOrDefault(key, fallback)
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
