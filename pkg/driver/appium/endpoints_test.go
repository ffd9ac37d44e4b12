package appium

import (
	"errors"
	"testing"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
)

func TestEndpoint(t *testing.T) {
	noEnv := func(string) string { return "" }
	withURL := func(k string) string {
		if k == config.EnvAppiumServerURL {
			return "http://10.0.0.5:4723"
		}
		return ""
	}

	tests := []struct {
		name     string
		mode     config.ExecutionMode
		provider config.CloudProvider
		getenv   func(string) string
		want     string
	}{
		{"local default", config.ModeLocal, config.ProviderNone, noEnv, "http://127.0.0.1:4723"},
		{"local override", config.ModeLocal, config.ProviderNone, withURL, "http://10.0.0.5:4723"},
		{"browserstack", config.ModeCloud, config.ProviderBrowserStack, withURL, "https://hub.browserstack.com/wd/hub"},
		{"saucelabs", config.ModeCloud, config.ProviderSauceLabs, noEnv, "https://ondemand.us-west-1.saucelabs.com/wd/hub"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Endpoint(tt.mode, tt.provider, tt.getenv)
			if err != nil {
				t.Fatalf("Endpoint() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := Endpoint(config.ModeCloud, "lambdatest", noEnv); !errors.Is(err, core.ErrUnsupportedProvider) {
		t.Errorf("Endpoint() error = %v, want ErrUnsupportedProvider", err)
	}
}
