// Package session creates and releases the automation session a test runs
// against: a local or remote browser, a local or cloud Appium device, or
// nothing for API tests.
package session

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/tebeka/selenium"

	"github.com/devicelab-dev/unified-runner/pkg/capabilities"
	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/driver/appium"
	"github.com/devicelab-dev/unified-runner/pkg/driver/web"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// Dialers open sessions. Tests replace them with fakes.
type (
	LocalBrowserDialer  func(ctx context.Context, opts web.LocalOptions) (core.SessionHandle, error)
	RemoteBrowserDialer func(ctx context.Context, url string, caps selenium.Capabilities) (core.SessionHandle, error)
	MobileDialer        func(ctx context.Context, url string, caps map[string]interface{}) (core.SessionHandle, error)
)

// Factory turns a RunConfiguration into a live session. A Factory holds
// at most one live session; each test owns its own Factory.
type Factory struct {
	Capabilities *capabilities.Loader
	Drivers      web.DriverResolver
	Getenv       func(string) string

	StartLocalBrowser LocalBrowserDialer
	OpenRemoteBrowser RemoteBrowserDialer
	OpenMobile        MobileDialer

	mu      sync.Mutex
	current core.SessionHandle
}

// New returns a Factory wired to the real drivers.
func New() *Factory {
	return &Factory{
		Capabilities: capabilities.NewLoader(),
		StartLocalBrowser: func(ctx context.Context, opts web.LocalOptions) (core.SessionHandle, error) {
			return web.StartLocal(ctx, opts)
		},
		OpenRemoteBrowser: func(ctx context.Context, url string, caps selenium.Capabilities) (core.SessionHandle, error) {
			return web.OpenRemote(ctx, url, caps)
		},
		OpenMobile: func(ctx context.Context, url string, caps map[string]interface{}) (core.SessionHandle, error) {
			return appium.Open(ctx, url, caps)
		},
	}
}

func (f *Factory) getenv(key string) string {
	if f.Getenv != nil {
		return f.Getenv(key)
	}
	return os.Getenv(key)
}

// Current returns the live session, or nil.
func (f *Factory) Current() core.SessionHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Initialize opens the session cfg describes. API tests get (nil, nil).
// Configuration errors are returned before any endpoint is contacted, and
// every connection failure is returned, never swallowed.
func (f *Factory) Initialize(ctx context.Context, cfg config.RunConfiguration) (core.SessionHandle, error) {
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}

	f.mu.Lock()
	live := f.current != nil
	f.mu.Unlock()
	if live {
		return nil, core.ErrSessionCreate.WithMessage("a session is already live for this test")
	}

	logger.Info("Initializing driver for test type: %s", cfg.TestType)

	var (
		handle core.SessionHandle
		err    error
	)
	switch cfg.TestType {
	case config.TestTypeAPI:
		logger.Info("API test type - no driver initialization needed")
		return nil, nil
	case config.TestTypeUI:
		handle, err = f.initWeb(ctx, cfg)
	case config.TestTypeMobile:
		handle, err = f.initMobile(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := handle.SetImplicitWait(cfg.ImplicitWait); err != nil {
		if quitErr := handle.Quit(); quitErr != nil {
			logger.Warn("Error quitting driver after failed setup: %v", quitErr)
		}
		return nil, core.ErrSessionCreate.WithCause(err).WithMessage("apply implicit wait")
	}

	f.mu.Lock()
	f.current = handle
	f.mu.Unlock()

	logger.Info("Successfully initialized driver for %s (session %s)", cfg.TestType, handle.SessionID())
	return handle, nil
}

func (f *Factory) initWeb(ctx context.Context, cfg config.RunConfiguration) (core.SessionHandle, error) {
	extra, err := web.ExtraArgs(f.getenv(config.EnvBrowserArgs))
	if err != nil {
		return nil, err
	}

	if cfg.Remote() {
		return f.initRemoteWeb(ctx, cfg, extra)
	}

	logger.Info("Initializing local %s WebDriver", cfg.Browser)
	resolver := f.Drivers
	if resolver.Getenv == nil {
		resolver.Getenv = f.getenv
	}
	path, err := resolver.Resolve(cfg.Browser)
	if err != nil {
		logger.Error("Failed to initialize driver: %v", err)
		return nil, err
	}

	handle, err := f.StartLocalBrowser(ctx, web.LocalOptions{
		Browser:    cfg.Browser,
		Headless:   cfg.Headless,
		ExtraArgs:  extra,
		DriverPath: path,
	})
	if err != nil {
		logger.Error("Failed to initialize local %s WebDriver: %v", cfg.Browser, err)
		logger.Error("Driver: %s", path)
		return nil, errors.Wrapf(core.ErrSessionCreate.WithCause(err), "local %s session", cfg.Browser)
	}
	logger.Info("Initialized local %s WebDriver", cfg.Browser)
	return handle, nil
}

func (f *Factory) initRemoteWeb(ctx context.Context, cfg config.RunConfiguration, extra []string) (core.SessionHandle, error) {
	logger.Info("Initializing remote %s WebDriver on %s", cfg.Browser, cfg.CloudProvider)

	url, err := web.CloudEndpoint(cfg.CloudProvider, f.getenv)
	if err != nil {
		return nil, err
	}
	caps, err := web.CloudCapabilities(web.CloudOptions{
		Provider:  cfg.CloudProvider,
		Browser:   cfg.Browser,
		Headless:  cfg.Headless,
		ExtraArgs: extra,
		Getenv:    f.getenv,
	})
	if err != nil {
		return nil, err
	}

	handle, err := f.OpenRemoteBrowser(ctx, url, caps)
	if err != nil {
		logger.Error("Failed to initialize remote WebDriver: %v", err)
		logger.Error("URL: %s", url)
		logger.Error("Browser: %s", cfg.Browser)
		logger.Error("Platform: %v", platformOf(caps))
		return nil, errors.Wrapf(core.ErrSessionCreate.WithCause(err).WithDetails(map[string]interface{}{
			"url":      url,
			"browser":  string(cfg.Browser),
			"platform": platformOf(caps),
		}), "remote %s session on %s", cfg.Browser, cfg.CloudProvider)
	}
	logger.Info("Successfully initialized remote %s WebDriver on %s", cfg.Browser, cfg.CloudProvider)
	return handle, nil
}

func (f *Factory) initMobile(ctx context.Context, cfg config.RunConfiguration) (core.SessionHandle, error) {
	logger.Info("Initializing %s driver in %s mode", cfg.Platform, cfg.ExecutionMode)

	if cfg.Platform == config.PlatformIOS {
		return nil, core.ErrNotImplemented.WithMessage("iOS support not implemented yet")
	}

	url, err := appium.Endpoint(cfg.ExecutionMode, cfg.CloudProvider, f.getenv)
	if err != nil {
		return nil, err
	}

	loader := f.Capabilities
	if loader == nil {
		loader = capabilities.NewLoader()
	}
	caps := appium.NormalizeCapabilities(loader.Load(capabilities.AndroidFile, cfg.ExecutionMode, cfg.CloudProvider))
	if cfg.AppPath != "" {
		caps["appium:app"] = cfg.AppPath
	}

	handle, err := f.OpenMobile(ctx, url, caps)
	if err != nil {
		logger.Error("Failed to initialize %s driver: %v", cfg.Platform, err)
		logger.Error("URL: %s", url)
		logger.Error("Platform: %v", platformOf(caps))
		return nil, errors.Wrapf(core.ErrSessionCreate.WithCause(err).WithDetails(map[string]interface{}{
			"url":      url,
			"platform": platformOf(caps),
		}), "%s session on %s", cfg.Platform, url)
	}
	return handle, nil
}

func platformOf(caps map[string]interface{}) interface{} {
	if p, ok := caps["platformName"]; ok {
		return p
	}
	return "Not set"
}

// Release quits handle if it is the live session. Any other handle was
// already released, so Release is idempotent and safe on nil. Quit errors
// are logged, not returned, so cleanup never masks the test result.
func (f *Factory) Release(handle core.SessionHandle) {
	if handle == nil {
		return
	}

	f.mu.Lock()
	if f.current != handle {
		f.mu.Unlock()
		return
	}
	f.current = nil
	f.mu.Unlock()

	logger.Info("Quitting driver session %s", handle.SessionID())
	if err := handle.Quit(); err != nil {
		logger.Warn("%v", core.ErrQuitFailed.WithCause(err))
	}
}
