package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

func clearRunEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvEnvironment, EnvTestType, EnvCurrentTestType, EnvExecutionMode,
		EnvCloudProvider, EnvRemote, EnvBrowser, EnvHeadless, EnvPlatform,
		EnvApp, EnvImplicitWait,
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*RunConfiguration)
		allowAll bool
		wantErr  error
	}{
		{"defaults", func(*RunConfiguration) {}, false, nil},
		{"cloud with provider", func(c *RunConfiguration) {
			c.ExecutionMode = ModeCloud
			c.CloudProvider = ProviderSauceLabs
		}, false, nil},
		{"cloud without provider", func(c *RunConfiguration) { c.ExecutionMode = ModeCloud }, false, core.ErrMissingCloudProvider},
		{"unknown browser", func(c *RunConfiguration) { c.Browser = "safari" }, false, core.ErrUnsupportedBrowser},
		{"unknown platform", func(c *RunConfiguration) { c.Platform = "windows" }, false, core.ErrUnsupportedPlatform},
		{"unknown provider", func(c *RunConfiguration) {
			c.ExecutionMode = ModeCloud
			c.CloudProvider = "lambdatest"
		}, false, core.ErrUnsupportedProvider},
		{"unknown mode", func(c *RunConfiguration) { c.ExecutionMode = "hybrid" }, false, core.ErrUnsupportedExecutionMode},
		{"unknown test type", func(c *RunConfiguration) { c.TestType = "perf" }, false, core.ErrUnsupportedTestType},
		{"all rejected per test", func(c *RunConfiguration) { c.TestType = TestTypeAll }, false, core.ErrUnsupportedTestType},
		{"all accepted for runner", func(c *RunConfiguration) { c.TestType = TestTypeAll }, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate(tt.allowAll)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestWithTestType_DoesNotMutate(t *testing.T) {
	c := Default()
	mobile := c.WithTestType(TestTypeMobile)

	assert.Equal(t, TestTypeUI, c.TestType)
	assert.Equal(t, TestTypeMobile, mobile.TestType)
}

func TestEnv_LocalUI(t *testing.T) {
	c := Default()
	c.Headless = true

	want := map[string]string{
		EnvEnvironment:   "staging",
		EnvTestType:      "ui",
		EnvExecutionMode: "local",
		EnvImplicitWait:  "10",
		EnvRemote:        "False",
		EnvBrowser:       "chrome",
		EnvHeadless:      "true",
	}
	if diff := cmp.Diff(want, c.Env()); diff != "" {
		t.Errorf("Env() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnv_CloudAll(t *testing.T) {
	c := Default()
	c.TestType = TestTypeAll
	c.ExecutionMode = ModeCloud
	c.CloudProvider = ProviderBrowserStack
	c.AppPath = "bs://app-id"

	env := c.Env()
	assert.Equal(t, "True", env[EnvRemote])
	assert.Equal(t, "browserstack", env[EnvCloudProvider])
	assert.Equal(t, "chrome", env[EnvBrowser])
	assert.Equal(t, "android", env[EnvPlatform])
	assert.Equal(t, "bs://app-id", env[EnvApp])
}

func TestExportThenFromEnv_RoundTrip(t *testing.T) {
	clearRunEnv(t)

	c := Default()
	c.Environment = "dev"
	c.TestType = TestTypeAll
	c.ExecutionMode = ModeCloud
	c.CloudProvider = ProviderSauceLabs
	c.Browser = BrowserFirefox
	c.Headless = true
	c.AppPath = "/tmp/app.apk"
	c.ImplicitWait = 5 * time.Second

	require.NoError(t, Export(c))

	got, err := FromEnv()
	require.NoError(t, err)
	if diff := cmp.Diff(c, got); diff != "" {
		t.Errorf("FromEnv() mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEnv_CurrentTestTypeWins(t *testing.T) {
	clearRunEnv(t)
	t.Setenv(EnvTestType, "all")
	t.Setenv(EnvCurrentTestType, "API")

	got, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, TestTypeAPI, got.TestType)
}

func TestFromEnv_BadValues(t *testing.T) {
	clearRunEnv(t)
	t.Setenv(EnvHeadless, "sometimes")
	_, err := FromEnv()
	assert.Error(t, err)

	clearRunEnv(t)
	t.Setenv(EnvImplicitWait, "ten")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestSecondsFromEnv(t *testing.T) {
	t.Setenv(EnvExplicitWait, "")
	d, err := SecondsFromEnv(EnvExplicitWait, DefaultExplicitWait)
	require.NoError(t, err)
	assert.Equal(t, DefaultExplicitWait, d)

	t.Setenv(EnvExplicitWait, "3")
	d, err = SecondsFromEnv(EnvExplicitWait, DefaultExplicitWait)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, d)

	t.Setenv(EnvExplicitWait, "-1")
	_, err = SecondsFromEnv(EnvExplicitWait, DefaultExplicitWait)
	assert.Error(t, err)
}
