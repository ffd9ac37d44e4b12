// Package pages provides the base page object for mobile screens: bounded
// element waits with a retry policy, taps, text input and screenshots.
package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
	"github.com/devicelab-dev/unified-runner/pkg/retry"
)

// Driver is a session that can also interact with elements.
type Driver interface {
	core.SessionHandle
	core.ElementFinder
}

// DefaultPresenceTimeout bounds IsElementPresent and IsElementVisible
// when Base.PresenceTimeout is unset.
const DefaultPresenceTimeout = 5 * time.Second

// Base holds the driver and wait settings shared by every page.
type Base struct {
	Driver         Driver
	Platform       string
	ExplicitWait   time.Duration
	ScreenshotsDir string
	PollInterval   time.Duration
	Retry          retry.Policy

	PresenceTimeout time.Duration
}

// NewBase builds a Base from PLATFORM, EXPLICIT_WAIT and SCREENSHOTS_DIR
// and makes sure the screenshots directory exists.
func NewBase(d Driver) (*Base, error) {
	wait, err := config.SecondsFromEnv(config.EnvExplicitWait, config.DefaultExplicitWait)
	if err != nil {
		return nil, err
	}
	b := &Base{
		Driver:         d,
		Platform:       strings.ToLower(config.EnvOrDefault(config.EnvPlatform, string(config.PlatformAndroid))),
		ExplicitWait:   wait,
		ScreenshotsDir: config.EnvOrDefault(config.EnvScreenshotsDir, core.DefaultScreenshotsDir),
		PollInterval:   retry.DefaultPollInterval,
		Retry:          retry.DefaultPolicy,

		PresenceTimeout: DefaultPresenceTimeout,
	}
	if err := os.MkdirAll(b.ScreenshotsDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create screenshots dir %s", b.ScreenshotsDir)
	}
	logger.Info("initialized page base for platform: %s", b.Platform)
	return b, nil
}

type condition struct {
	name  string
	check func(id string) (bool, error)
}

var present = condition{name: "presence", check: func(string) (bool, error) { return true, nil }}

func (b *Base) visible() condition {
	return condition{name: "visibility", check: b.Driver.ElementDisplayed}
}

func (b *Base) timeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return b.ExplicitWait
}

// waitFor polls until loc resolves to an element satisfying cond. Lookup
// failures and unmet conditions keep the wait going; on timeout a
// screenshot is saved and core.ErrWaitTimeout is returned.
func (b *Base) waitFor(ctx context.Context, loc core.Locator, cond condition, timeout time.Duration) (string, error) {
	timeout = b.timeout(timeout)
	var found string
	var lastErr error
	err := retry.Until(ctx, timeout, b.PollInterval, func() (bool, error) {
		id, err := b.Driver.FindElement(loc.Using, loc.Value)
		if err != nil {
			lastErr = err
			return false, nil
		}
		ok, err := cond.check(id)
		if err != nil {
			lastErr = err
			return false, nil
		}
		if ok {
			found = id
		}
		return ok, nil
	})
	if err == nil {
		logger.Info("condition %s met for locator: %s", cond.name, loc)
		return found, nil
	}
	if retry.IsTimeout(err) {
		msg := fmt.Sprintf("timeout (%s): condition %s not met for locator: %s", timeout, cond.name, loc)
		logger.Error("%s", msg)
		_, _ = b.TakeScreenshot("timeout_exception")
		if lastErr != nil {
			return "", core.ErrWaitTimeout.WithMessage(msg).WithCause(lastErr)
		}
		return "", core.ErrWaitTimeout.WithMessage(msg)
	}
	logger.Error("unexpected error during wait for %s: %v", loc, err)
	return "", err
}

func (b *Base) waitWithRetry(ctx context.Context, loc core.Locator, cond condition, timeout time.Duration) (string, error) {
	var id string
	err := b.Retry.Do(cond.name+" "+loc.String(), func(uint) error {
		var err error
		id, err = b.waitFor(ctx, loc, cond, timeout)
		return err
	})
	return id, err
}

// FindElement waits for loc to be present. A zero timeout uses
// ExplicitWait.
func (b *Base) FindElement(ctx context.Context, loc core.Locator, timeout time.Duration) (string, error) {
	return b.waitWithRetry(ctx, loc, present, timeout)
}

// WaitForVisibility waits for loc to be present and displayed.
func (b *Base) WaitForVisibility(ctx context.Context, loc core.Locator, timeout time.Duration) (string, error) {
	return b.waitWithRetry(ctx, loc, b.visible(), timeout)
}

// WaitForClickable waits for loc to be displayed. Native elements expose
// no separate enabled state through ElementFinder.
func (b *Base) WaitForClickable(ctx context.Context, loc core.Locator, timeout time.Duration) (string, error) {
	c := b.visible()
	c.name = "clickable"
	return b.waitWithRetry(ctx, loc, c, timeout)
}

func (b *Base) presenceTimeout() time.Duration {
	if b.PresenceTimeout > 0 {
		return b.PresenceTimeout
	}
	return DefaultPresenceTimeout
}

// IsElementPresent reports whether loc appears within PresenceTimeout.
func (b *Base) IsElementPresent(ctx context.Context, loc core.Locator) bool {
	_, err := b.FindElement(ctx, loc, b.presenceTimeout())
	return err == nil
}

// IsElementVisible reports whether loc becomes visible within
// PresenceTimeout.
func (b *Base) IsElementVisible(ctx context.Context, loc core.Locator) bool {
	_, err := b.WaitForVisibility(ctx, loc, b.presenceTimeout())
	return err == nil
}

// GetElementText returns the text of the element at loc.
func (b *Base) GetElementText(ctx context.Context, loc core.Locator) (string, error) {
	id, err := b.FindElement(ctx, loc, 0)
	if err != nil {
		return "", err
	}
	return b.Driver.ElementText(id)
}

// Tap waits for loc to be clickable and taps it.
func (b *Base) Tap(ctx context.Context, loc core.Locator) error {
	id, err := b.WaitForClickable(ctx, loc, 0)
	if err != nil {
		return err
	}
	if err := b.Driver.Click(id); err != nil {
		return errors.Wrapf(err, "tap %s", loc)
	}
	logger.Info("tapped on element: %s", loc)
	return nil
}

// InputText types text into the element at loc, clearing it first when
// clearFirst is set.
func (b *Base) InputText(ctx context.Context, loc core.Locator, text string, clearFirst bool) error {
	id, err := b.FindElement(ctx, loc, 0)
	if err != nil {
		return err
	}
	if clearFirst {
		if err := b.Driver.Clear(id); err != nil {
			return errors.Wrapf(err, "clear %s", loc)
		}
	}
	if err := b.Driver.SendKeys(id, text); err != nil {
		return errors.Wrapf(err, "input into %s", loc)
	}
	logger.Info("input text into element: %s", loc)
	return nil
}

// GetPageSource returns the current screen hierarchy.
func (b *Base) GetPageSource() (string, error) {
	source, err := b.Driver.PageSource()
	if err != nil {
		return "", errors.Wrap(err, "get page source")
	}
	return source, nil
}

// Back presses the device back button.
func (b *Base) Back() error {
	if err := b.Driver.Back(); err != nil {
		return errors.Wrap(err, "navigate back")
	}
	logger.Info("navigated back")
	return nil
}

// keyboardHider is implemented by device sessions.
type keyboardHider interface {
	HideKeyboard() error
}

// HideKeyboard dismisses the on-screen keyboard. Sessions without one
// are left alone.
func (b *Base) HideKeyboard() error {
	k, ok := b.Driver.(keyboardHider)
	if !ok {
		return nil
	}
	if err := k.HideKeyboard(); err != nil {
		return errors.Wrap(err, "hide keyboard")
	}
	return nil
}

// ScrollToText brings text into view. Android scrolls with UiScrollable;
// other platforms only check that the text is already in the page source.
func (b *Base) ScrollToText(ctx context.Context, text string) error {
	if b.Platform == string(config.PlatformAndroid) {
		loc := core.Locator{
			Using: core.ByAndroidUIAutomator,
			Value: fmt.Sprintf(`new UiScrollable(new UiSelector().scrollable(true)).scrollIntoView(new UiSelector().text("%s"))`, text),
		}
		if _, err := b.FindElement(ctx, loc, 0); err != nil {
			return err
		}
		logger.Info("scrolled to text: %s", text)
		return nil
	}

	source, err := b.GetPageSource()
	if err != nil {
		return err
	}
	if !strings.Contains(source, text) {
		return core.ErrElementNotFound.WithMessagef("text %q not on screen", text)
	}
	logger.Info("scrolled to text: %s", text)
	return nil
}

// TakeScreenshot saves a PNG as <ScreenshotsDir>/<name>.png and returns
// its path. An empty name uses screenshot_<unix seconds>.
func (b *Base) TakeScreenshot(name string) (string, error) {
	if name == "" {
		name = fmt.Sprintf("screenshot_%d", time.Now().Unix())
	}
	path := filepath.Join(b.ScreenshotsDir, core.ScreenshotName(name)+".png")

	data, err := b.Driver.Screenshot()
	if err != nil {
		logger.Error("failed to take screenshot: %v", err)
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error("failed to save screenshot: %v", err)
		return "", errors.Wrapf(err, "write screenshot %s", path)
	}
	logger.Info("screenshot saved to: %s", path)
	return path, nil
}
