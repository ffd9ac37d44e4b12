package fakebank

import (
	"context"

	"github.com/devicelab-dev/unified-runner/pkg/logger"
	"github.com/devicelab-dev/unified-runner/pkg/pages"
)

// HomePage is the FakeBank screen shown after login.
type HomePage struct {
	*pages.Base
}

func NewHomePage(base *pages.Base) *HomePage {
	return &HomePage{Base: base}
}

func (p *HomePage) WelcomeMessage(ctx context.Context) (string, error) {
	return p.GetElementText(ctx, WelcomeMessage)
}

func (p *HomePage) OpenMenu(ctx context.Context) error {
	if err := p.Tap(ctx, MenuButton); err != nil {
		return err
	}
	logger.Info("opened menu")
	return nil
}

func (p *HomePage) NavigateToProfile(ctx context.Context) error {
	if err := p.Tap(ctx, ProfileButton); err != nil {
		return err
	}
	logger.Info("navigated to profile")
	return nil
}

func (p *HomePage) NavigateToSettings(ctx context.Context) error {
	if err := p.Tap(ctx, SettingsButton); err != nil {
		return err
	}
	logger.Info("navigated to settings")
	return nil
}

// Logout opens the menu, logs out and returns the login page.
func (p *HomePage) Logout(ctx context.Context) (*LoginPage, error) {
	if err := p.OpenMenu(ctx); err != nil {
		return nil, err
	}
	if err := p.Tap(ctx, LogoutButton); err != nil {
		return nil, err
	}
	logger.Info("logged out")
	return NewLoginPage(p.Base), nil
}

// IsUserLoggedIn reports whether the welcome message is visible.
func (p *HomePage) IsUserLoggedIn(ctx context.Context) bool {
	return p.IsElementVisible(ctx, WelcomeMessage)
}
