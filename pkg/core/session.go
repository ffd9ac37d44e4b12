package core

import "time"

// SessionHandle is a live browser or device automation session.
// Each UI or mobile test owns exactly one; API tests never hold one.
// Implementations: web (tebeka/selenium), appium (W3C HTTP client).
type SessionHandle interface {
	// SessionID returns the remote session identifier
	SessionID() string

	// Screenshot captures the current screen as PNG
	Screenshot() ([]byte, error)

	// SetImplicitWait sets the element lookup timeout on the session
	SetImplicitWait(d time.Duration) error

	// Quit ends the remote session and stops any local driver service
	Quit() error
}

// ElementFinder is implemented by sessions that can drive element-level
// interactions. Page objects require it; the factory does not.
type ElementFinder interface {
	// FindElement returns the element ID for a locator, or an error
	FindElement(using, value string) (string, error)

	// Click taps or clicks the element
	Click(elementID string) error

	// SendKeys types text into the element
	SendKeys(elementID, text string) error

	// Clear clears the element's text
	Clear(elementID string) error

	// ElementText returns the element's visible text
	ElementText(elementID string) (string, error)

	// ElementDisplayed reports whether the element is visible
	ElementDisplayed(elementID string) (bool, error)

	// PageSource returns the current screen hierarchy: XML on devices,
	// HTML in browsers
	PageSource() (string, error)

	// Back navigates back
	Back() error
}

// Locator strategies used by page objects.
const (
	ByID                 = "id"
	ByXPath              = "xpath"
	ByAccessibilityID    = "accessibility id"
	ByClassName          = "class name"
	ByCSSSelector        = "css selector"
	ByAndroidUIAutomator = "-android uiautomator"
)

// Locator is a (strategy, value) pair.
type Locator struct {
	Using string
	Value string
}

// String renders the locator for logs.
func (l Locator) String() string {
	return l.Using + "=" + l.Value
}
