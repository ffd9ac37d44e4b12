package fakebank

import (
	"context"
	"strings"

	"github.com/devicelab-dev/unified-runner/pkg/logger"
	"github.com/devicelab-dev/unified-runner/pkg/pages"
)

// LoginPage is the FakeBank login screen.
type LoginPage struct {
	*pages.Base
}

// NewLoginPage wraps base.
func NewLoginPage(base *pages.Base) *LoginPage {
	return &LoginPage{Base: base}
}

func (p *LoginPage) EnterUsername(ctx context.Context, username string) error {
	if err := p.InputText(ctx, UsernameField, username, true); err != nil {
		return err
	}
	logger.Info("entered username: %s", username)
	return nil
}

func (p *LoginPage) EnterPassword(ctx context.Context, password string) error {
	if err := p.InputText(ctx, PasswordField, password, true); err != nil {
		return err
	}
	logger.Info("entered password: %s", strings.Repeat("*", len(password)))
	return nil
}

// ContinueWithMobileNumber taps the mobile-number entry point.
func (p *LoginPage) ContinueWithMobileNumber(ctx context.Context) error {
	return p.Tap(ctx, MobileNumberButton)
}

// ClickLogin submits the form and returns the home page.
func (p *LoginPage) ClickLogin(ctx context.Context) (*HomePage, error) {
	if err := p.Tap(ctx, LoginButton); err != nil {
		return nil, err
	}
	return NewHomePage(p.Base), nil
}

// Login enters the credentials and submits them.
func (p *LoginPage) Login(ctx context.Context, username, password string) (*HomePage, error) {
	if err := p.EnterUsername(ctx, username); err != nil {
		return nil, err
	}
	if err := p.EnterPassword(ctx, password); err != nil {
		return nil, err
	}
	return p.ClickLogin(ctx)
}

func (p *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	return p.GetElementText(ctx, ErrorMessage)
}

func (p *LoginPage) ClickForgotPassword(ctx context.Context) error {
	if err := p.Tap(ctx, ForgotPasswordLink); err != nil {
		return err
	}
	logger.Info("clicked forgot password link")
	return nil
}

// IsDisplayed reports whether the login screen is showing.
func (p *LoginPage) IsDisplayed(ctx context.Context) bool {
	return p.IsElementVisible(ctx, MobileNumberButton)
}
