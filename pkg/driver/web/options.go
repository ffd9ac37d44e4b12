// Package web opens desktop browser sessions with tebeka/selenium, either
// against a locally started driver service or a remote grid.
package web

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Chrome flags applied to every local Chrome session.
var chromeBaseArgs = []string{
	"--no-sandbox",
	"--log-level=3",
	"--disable-dev-shm-usage",
	"--window-size=1920,1080",
}

// edgeOptionsKey is Edge's vendor capability.
const edgeOptionsKey = "ms:edgeOptions"

// BrowserArgs returns the command-line flags for a browser. local adds the
// Chrome sandbox and window flags, which cloud sessions do not get.
func BrowserArgs(browser config.Browser, headless, local bool, extra []string) ([]string, error) {
	var args []string
	switch browser {
	case config.BrowserChrome:
		if headless {
			args = append(args, "--headless=new")
		}
		if local {
			args = append(args, chromeBaseArgs...)
		}
	case config.BrowserFirefox, config.BrowserEdge:
		if headless {
			args = append(args, "--headless")
		}
	default:
		return nil, core.ErrUnsupportedBrowser.WithMessagef("unsupported browser: %s", browser)
	}
	return append(args, extra...), nil
}

// ExtraArgs splits BROWSER_ARGS with shell quoting rules.
func ExtraArgs(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	args, err := shellquote.Split(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", config.EnvBrowserArgs)
	}
	return args, nil
}

// BrowserName is the W3C browserName for a browser.
func BrowserName(browser config.Browser) string {
	if browser == config.BrowserEdge {
		return "MicrosoftEdge"
	}
	return string(browser)
}

// Capabilities builds the browser options block for a session.
func Capabilities(browser config.Browser, args []string) (selenium.Capabilities, error) {
	caps := selenium.Capabilities{"browserName": BrowserName(browser)}
	switch browser {
	case config.BrowserChrome:
		caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
	case config.BrowserFirefox:
		caps.AddFirefox(firefox.Capabilities{Args: args})
	case config.BrowserEdge:
		caps[edgeOptionsKey] = map[string]interface{}{"args": args}
	default:
		return nil, core.ErrUnsupportedBrowser.WithMessagef("unsupported browser: %s", browser)
	}
	return caps, nil
}

// DriverBinary returns the driver executable name and its path override
// variable for a browser.
func DriverBinary(browser config.Browser) (binary, envVar string, err error) {
	switch browser {
	case config.BrowserChrome:
		return "chromedriver", config.EnvChromeDriverPath, nil
	case config.BrowserFirefox:
		return "geckodriver", config.EnvGeckoDriverPath, nil
	case config.BrowserEdge:
		return "msedgedriver", config.EnvEdgeDriverPath, nil
	}
	return "", "", core.ErrUnsupportedBrowser.WithMessagef("unsupported browser: %s", browser)
}

// DriverResolver locates driver binaries. Zero fields use the process
// environment, the harness home and $PATH.
type DriverResolver struct {
	Getenv     func(string) string
	DriversDir func(browser string) string
	LookPath   func(string) (string, error)
}

// Resolve returns the driver path for browser. Resolution order: the
// browser's *DRIVER_PATH variable, <home>/drivers/<browser>/<binary>,
// then $PATH.
func (r DriverResolver) Resolve(browser config.Browser) (string, error) {
	binary, envVar, err := DriverBinary(browser)
	if err != nil {
		return "", err
	}

	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	driversDir := r.DriversDir
	if driversDir == nil {
		driversDir = config.GetDriversDir
	}
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if p := getenv(envVar); p != "" {
		if isFile(p) {
			return p, nil
		}
		return "", core.ErrDriverUnavailable.WithMessagef("%s=%s does not exist", envVar, p)
	}

	candidate := filepath.Join(driversDir(string(browser)), binary)
	if isFile(candidate) {
		return candidate, nil
	}

	if p, err := lookPath(binary); err == nil {
		return p, nil
	}

	return "", core.ErrDriverUnavailable.
		WithMessagef("%s not found: set %s, install it to %s or add it to PATH", binary, envVar, filepath.Dir(candidate)).
		WithDetails(map[string]interface{}{"browser": string(browser)})
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
