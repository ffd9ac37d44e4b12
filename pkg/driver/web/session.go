package web

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tebeka/selenium"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// Session wraps a selenium.WebDriver and, for local runs, the driver
// service that backs it.
type Session struct {
	wd      selenium.WebDriver
	service *selenium.Service

	mu       sync.Mutex
	elements map[string]selenium.WebElement
}

var (
	_ core.SessionHandle = (*Session)(nil)
	_ core.ElementFinder = (*Session)(nil)
)

// LocalOptions configures StartLocal.
type LocalOptions struct {
	Browser    config.Browser
	Headless   bool
	ExtraArgs  []string
	DriverPath string // resolved driver binary
}

// OpenRemote opens a session against a WebDriver endpoint.
func OpenRemote(_ context.Context, url string, caps selenium.Capabilities) (*Session, error) {
	wd, err := selenium.NewRemote(caps, url)
	if err != nil {
		return nil, err
	}
	return newSession(wd, nil), nil
}

// StartLocal starts the browser's driver service on a free port, opens a
// session against it and maximizes the window.
func StartLocal(ctx context.Context, opts LocalOptions) (*Session, error) {
	args, err := BrowserArgs(opts.Browser, opts.Headless, true, opts.ExtraArgs)
	if err != nil {
		return nil, err
	}
	caps, err := Capabilities(opts.Browser, args)
	if err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, errors.Wrap(err, "allocate driver port")
	}

	service, err := startService(opts.Browser, opts.DriverPath, port)
	if err != nil {
		return nil, core.ErrDriverUnavailable.WithCause(err).
			WithMessagef("start %s driver service", opts.Browser)
	}

	sess, err := OpenRemote(ctx, fmt.Sprintf("http://127.0.0.1:%d", port), caps)
	if err != nil {
		if stopErr := service.Stop(); stopErr != nil {
			logger.Warn("Error stopping %s driver service: %v", opts.Browser, stopErr)
		}
		return nil, err
	}
	sess.service = service

	if err := sess.wd.MaximizeWindow(""); err != nil {
		// headless browsers and some window managers refuse; --window-size covers Chrome
		logger.Warn("Could not maximize %s window: %v", opts.Browser, err)
	}
	return sess, nil
}

func startService(browser config.Browser, path string, port int) (*selenium.Service, error) {
	output := selenium.Output(logger.GetWriter())
	switch browser {
	case config.BrowserFirefox:
		return selenium.NewGeckoDriverService(path, port, output)
	case config.BrowserChrome, config.BrowserEdge:
		// msedgedriver speaks the chromedriver command line
		return selenium.NewChromeDriverService(path, port, output)
	}
	return nil, core.ErrUnsupportedBrowser.WithMessagef("unsupported browser: %s", browser)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func newSession(wd selenium.WebDriver, service *selenium.Service) *Session {
	return &Session{
		wd:       wd,
		service:  service,
		elements: make(map[string]selenium.WebElement),
	}
}

// WebDriver returns the underlying driver for commands outside the
// session interface.
func (s *Session) WebDriver() selenium.WebDriver {
	return s.wd
}

func (s *Session) SessionID() string {
	return s.wd.SessionID()
}

func (s *Session) Screenshot() ([]byte, error) {
	return s.wd.Screenshot()
}

func (s *Session) SetImplicitWait(d time.Duration) error {
	return s.wd.SetImplicitWaitTimeout(d)
}

// Quit ends the session and stops the local driver service, if any.
func (s *Session) Quit() error {
	err := s.wd.Quit()
	if s.service != nil {
		if stopErr := s.service.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
		s.service = nil
	}
	s.mu.Lock()
	s.elements = make(map[string]selenium.WebElement)
	s.mu.Unlock()
	return err
}

// FindElement returns a handle ID for the first element matching the
// locator. Handles stay valid until Quit.
func (s *Session) FindElement(using, value string) (string, error) {
	el, err := s.wd.FindElement(using, value)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.elements[id] = el
	s.mu.Unlock()
	return id, nil
}

func (s *Session) element(id string) (selenium.WebElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[id]
	if !ok {
		return nil, core.ErrElementNotFound.WithMessagef("unknown element handle %s", id)
	}
	return el, nil
}

func (s *Session) Click(id string) error {
	el, err := s.element(id)
	if err != nil {
		return err
	}
	return el.Click()
}

func (s *Session) SendKeys(id, text string) error {
	el, err := s.element(id)
	if err != nil {
		return err
	}
	return el.SendKeys(text)
}

func (s *Session) Clear(id string) error {
	el, err := s.element(id)
	if err != nil {
		return err
	}
	return el.Clear()
}

func (s *Session) ElementText(id string) (string, error) {
	el, err := s.element(id)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (s *Session) ElementDisplayed(id string) (bool, error) {
	el, err := s.element(id)
	if err != nil {
		return false, err
	}
	return el.IsDisplayed()
}

func (s *Session) PageSource() (string, error) {
	return s.wd.PageSource()
}

func (s *Session) Back() error {
	return s.wd.Back()
}
