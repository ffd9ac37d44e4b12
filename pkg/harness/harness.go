// Package harness provides the per-test fixtures suite code calls from
// its Test functions: a live session for UI and mobile tests, an HTTP
// dispatcher for API tests, and report annotations.
//
//	func TestLogin(t *testing.T) {
//		harness.Tag(t, core.TagPositive)
//		harness.Describe(t, "logs in with a valid user")
//		page := fakebank.NewLoginPage(harness.Mobile(t))
//		...
//	}
package harness

import (
	"context"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/httpapi"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
	"github.com/devicelab-dev/unified-runner/pkg/pages"
	"github.com/devicelab-dev/unified-runner/pkg/session"
	"github.com/devicelab-dev/unified-runner/pkg/testtype"
)

// T is the part of testing.TB the fixtures use.
type T interface {
	Helper()
	Name() string
	Cleanup(func())
	Failed() bool
	Log(args ...interface{})
	Logf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Skipf(format string, args ...interface{})
}

// sessionFactory is satisfied by *session.Factory.
type sessionFactory interface {
	Initialize(ctx context.Context, cfg config.RunConfiguration) (core.SessionHandle, error)
	Release(handle core.SessionHandle)
}

var newFactory = func() sessionFactory { return session.New() }

// Config returns the run configuration for the calling test process.
// The test type comes from CURRENT_TEST_TYPE when the runner set it,
// otherwise from the package directory, so `go test ./tests/api/...`
// works without the runner.
func Config() (config.RunConfiguration, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}
	if os.Getenv(config.EnvCurrentTestType) != "" {
		return cfg, nil
	}

	fallback := cfg.TestType
	if fallback == config.TestTypeAll {
		fallback = config.TestTypeUI
	}
	if wd, err := os.Getwd(); err == nil {
		cfg.TestType = testtype.Resolve(wd+"/", fallback)
	} else {
		cfg.TestType = fallback
	}
	return cfg, nil
}

// Session opens the session the test's type calls for and releases it
// when the test ends. API tests get nil. A failed UI or mobile test has a
// screenshot saved and attached to its report entry before the session
// is released.
func Session(t T) core.SessionHandle {
	t.Helper()
	cfg, err := Config()
	if err != nil {
		t.Fatalf("load run configuration: %v", err)
	}

	logger.Info("Initializing driver for %s test in %s mode", cfg.TestType, cfg.ExecutionMode)
	factory := newFactory()
	handle, err := factory.Initialize(context.Background(), cfg)
	if err != nil {
		t.Fatalf("initialize %s session: %v", cfg.TestType, err)
	}
	if handle == nil {
		return nil
	}

	t.Cleanup(func() {
		if t.Failed() {
			captureFailure(t, handle)
		}
		logger.Info("Closing %s driver session", cfg.TestType)
		factory.Release(handle)
	})
	return handle
}

// Mobile opens a session and wraps it in a page-object base.
func Mobile(t T) *pages.Base {
	t.Helper()
	handle := Session(t)
	d, ok := handle.(pages.Driver)
	if !ok {
		t.Fatalf("session %T does not support element interactions", handle)
	}
	base, err := pages.NewBase(d)
	if err != nil {
		t.Fatalf("create page base: %v", err)
	}
	return base
}

// API returns a dispatcher backed by a fresh HTTP session that is closed
// when the test ends. Non-API tests are skipped.
func API(t T) *httpapi.Dispatcher {
	t.Helper()
	cfg, err := Config()
	if err != nil {
		t.Fatalf("load run configuration: %v", err)
	}
	if cfg.TestType != config.TestTypeAPI {
		t.Skipf("API client fixture is only available for API tests")
	}

	client := httpapi.NewSession()
	t.Cleanup(func() {
		logger.Info("API test completed, closing HTTP session")
		httpapi.Close(client)
	})
	return httpapi.NewDispatcher(client)
}

// Tag classifies the test for the report. Tests whose tag the run's
// include/exclude lists reject are skipped.
func Tag(t T, tag core.Tag) {
	t.Helper()
	if !config.TagFilterFromEnv().Allows(string(tag)) {
		t.Skipf("tag %q filtered out", tag)
	}
	t.Log(core.FormatMarker(core.MarkerTag, string(tag)))
}

// Describe sets the report's Description column for the test.
func Describe(t T, text string) {
	t.Helper()
	t.Log(core.FormatMarker(core.MarkerDescription, text))
}

func screenshotConfig() core.ArtifactConfig {
	c := core.DefaultArtifactConfig()
	c.Dir = config.EnvOrDefault(config.EnvScreenshotsDir, core.DefaultScreenshotsDir)
	return c
}

func captureFailure(t T, handle core.SessionHandle) {
	artifacts := screenshotConfig()
	if !artifacts.ShouldCapture(core.StatusFailed) {
		return
	}

	data, err := handle.Screenshot()
	if err != nil {
		logger.Warn("Failed to take screenshot for %s: %v", t.Name(), err)
		return
	}
	path := artifacts.ScreenshotPath(t.Name())
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("Failed to create screenshot dir: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("Failed to save screenshot %s: %v", path, err)
		return
	}
	logger.Info("Screenshot saved: %s", path)
	t.Log(core.FormatMarker(core.MarkerScreenshot, path))
}
