// Package mock provides a mock session for testing without a real browser
// or device.
package mock

import (
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Element is a fake element keyed by its locator value.
type Element struct {
	Text      string
	Displayed bool
	// AppearAfter makes FindElement fail this many times before the
	// element is found, to exercise polling waits.
	AppearAfter int
}

// Config configures mock session behavior.
type Config struct {
	ID       string
	Elements map[string]*Element
	Source   string

	// Errors returned by the corresponding calls, if set.
	QuitErr       error
	ScreenshotErr error
	ImplicitErr   error
}

// Session is a mock implementation of core.SessionHandle and
// core.ElementFinder.
type Session struct {
	Config Config

	mu       sync.Mutex
	calls    []string
	finds    map[string]int
	typed    map[string]string
	quits    int
	implicit time.Duration
}

var (
	_ core.SessionHandle = (*Session)(nil)
	_ core.ElementFinder = (*Session)(nil)
)

// New creates a new mock session.
func New(cfg Config) *Session {
	if cfg.ID == "" {
		cfg.ID = "mock-session"
	}
	if cfg.Elements == nil {
		cfg.Elements = map[string]*Element{}
	}
	return &Session{
		Config: cfg,
		finds:  map[string]int{},
		typed:  map[string]string{},
	}
}

func (s *Session) record(format string, args ...interface{}) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls in order.
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// QuitCount returns how many times Quit was called.
func (s *Session) QuitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quits
}

// ImplicitWait returns the last implicit wait set.
func (s *Session) ImplicitWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.implicit
}

// Typed returns the text last typed into the element with locator value.
func (s *Session) Typed(value string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typed[value]
}

func (s *Session) SessionID() string {
	return s.Config.ID
}

// Screenshot returns a mock PNG image.
func (s *Session) Screenshot() ([]byte, error) {
	s.mu.Lock()
	s.record("Screenshot")
	s.mu.Unlock()
	if s.Config.ScreenshotErr != nil {
		return nil, s.Config.ScreenshotErr
	}
	// Minimal valid PNG (1x1 transparent pixel)
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
		0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
		0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
		0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
		0x42, 0x60, 0x82,
	}, nil
}

func (s *Session) SetImplicitWait(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetImplicitWait %s", d)
	if s.Config.ImplicitErr != nil {
		return s.Config.ImplicitErr
	}
	s.implicit = d
	return nil
}

func (s *Session) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Quit")
	s.quits++
	return s.Config.QuitErr
}

// FindElement returns the locator value as the element ID.
func (s *Session) FindElement(using, value string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("FindElement %s=%s", using, value)

	el, ok := s.Config.Elements[value]
	if !ok {
		return "", fmt.Errorf("no such element: %s=%s", using, value)
	}
	s.finds[value]++
	if s.finds[value] <= el.AppearAfter {
		return "", fmt.Errorf("no such element: %s=%s (attempt %d)", using, value, s.finds[value])
	}
	return value, nil
}

func (s *Session) lookup(id string) (*Element, error) {
	el, ok := s.Config.Elements[id]
	if !ok {
		return nil, fmt.Errorf("stale element: %s", id)
	}
	return el, nil
}

func (s *Session) Click(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Click %s", id)
	_, err := s.lookup(id)
	return err
}

func (s *Session) SendKeys(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SendKeys %s", id)
	if _, err := s.lookup(id); err != nil {
		return err
	}
	s.typed[id] += text
	return nil
}

func (s *Session) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Clear %s", id)
	if _, err := s.lookup(id); err != nil {
		return err
	}
	s.typed[id] = ""
	return nil
}

func (s *Session) ElementText(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (s *Session) ElementDisplayed(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return el.Displayed, nil
}

func (s *Session) PageSource() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("PageSource")
	return s.Config.Source, nil
}

func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Back")
	return nil
}

func (s *Session) HideKeyboard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("HideKeyboard")
	return nil
}
