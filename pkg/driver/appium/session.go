package appium

import (
	"context"
	"time"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// Session adapts a connected Client to core.SessionHandle and
// core.ElementFinder.
type Session struct {
	client *Client
	ctx    context.Context
}

var (
	_ core.SessionHandle = (*Session)(nil)
	_ core.ElementFinder = (*Session)(nil)
)

// Open connects to serverURL and returns the resulting session.
func Open(ctx context.Context, serverURL string, caps map[string]interface{}) (*Session, error) {
	client := NewClient(serverURL)
	if err := client.Connect(ctx, caps); err != nil {
		return nil, err
	}
	return &Session{client: client, ctx: context.Background()}, nil
}

// Client returns the underlying Appium client for commands outside the
// session interface.
func (s *Session) Client() *Client {
	return s.client
}

func (s *Session) SessionID() string {
	return s.client.SessionID()
}

func (s *Session) Screenshot() ([]byte, error) {
	return s.client.Screenshot(s.ctx)
}

func (s *Session) SetImplicitWait(d time.Duration) error {
	return s.client.SetImplicitWait(s.ctx, d)
}

func (s *Session) Quit() error {
	return s.client.Disconnect()
}

func (s *Session) FindElement(using, value string) (string, error) {
	return s.client.FindElement(s.ctx, using, value)
}

func (s *Session) Click(elementID string) error {
	return s.client.ClickElement(s.ctx, elementID)
}

func (s *Session) SendKeys(elementID, text string) error {
	return s.client.SendElementKeys(s.ctx, elementID, text)
}

func (s *Session) Clear(elementID string) error {
	return s.client.ClearElement(s.ctx, elementID)
}

func (s *Session) ElementText(elementID string) (string, error) {
	return s.client.GetElementText(s.ctx, elementID)
}

func (s *Session) ElementDisplayed(elementID string) (bool, error) {
	return s.client.IsElementDisplayed(s.ctx, elementID)
}

func (s *Session) PageSource() (string, error) {
	return s.client.Source(s.ctx)
}

func (s *Session) Back() error {
	return s.client.Back(s.ctx)
}

// HideKeyboard dismisses the on-screen keyboard.
func (s *Session) HideKeyboard() error {
	return s.client.HideKeyboard(s.ctx)
}
