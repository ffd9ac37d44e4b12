// Package fakebank holds the page objects for the FakeBank Android app.
package fakebank

import "github.com/devicelab-dev/unified-runner/pkg/core"

const appID = "com.example.app:id/"

func byID(name string) core.Locator {
	return core.Locator{Using: core.ByID, Value: appID + name}
}

// Login screen.
var (
	MobileNumberButton = core.Locator{Using: core.ByXPath, Value: "//android.view.View[@content-desc='btnContinueWithMobileNumber']"}
	UsernameField      = byID("username")
	PasswordField      = byID("password")
	LoginButton        = byID("login")
	ErrorMessage       = byID("error_message")
	ForgotPasswordLink = byID("forgot_password")
)

// Home screen.
var (
	WelcomeMessage = byID("welcome_message")
	MenuButton     = byID("menu_button")
	ProfileButton  = byID("profile_button")
	LogoutButton   = byID("logout_button")
	SettingsButton = byID("settings_button")
)
