package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/report"
)

func TestResolveOutputDir_Default(t *testing.T) {
	dir, err := resolveOutputDir("", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(dir, "reports/") {
		t.Errorf("expected dir to start with reports/, got %s", dir)
	}
	if parts := strings.Split(dir, "/"); len(parts) != 2 {
		t.Errorf("expected reports/<timestamp>, got %s", dir)
	}
}

func TestResolveOutputDir_Flatten(t *testing.T) {
	dir, err := resolveOutputDir("./my-reports", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir != "my-reports" {
		t.Errorf("expected my-reports, got %s", dir)
	}
}

func TestResolveOutputDir_FlattenWithoutOutput(t *testing.T) {
	if _, err := resolveOutputDir("", true); err == nil {
		t.Error("expected error when flatten is used without output")
	}
}

func TestParseEnvVars(t *testing.T) {
	got := parseEnvVars([]string{"USER=test", "URL=http://x/?a=b", "broken"})
	assert.Equal(t, map[string]string{"USER": "test", "URL": "http://x/?a=b"}, got)
	assert.Empty(t, parseEnvVars(nil))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailures, ExitCode(cli.Exit("tests failed", ExitFailures)))
	assert.Equal(t, ExitError, ExitCode(errors.New("boom")))
}

func TestPrintOutcome(t *testing.T) {
	colorsEnabled = false
	var buf bytes.Buffer
	printOutcome(&buf, core.TestOutcome{Name: "m/tests/ui/Shop::TestCart", Status: core.StatusPassed, Duration: 1200 * time.Millisecond})
	printOutcome(&buf, core.TestOutcome{Name: "m/tests/ui/Shop::TestPay", Status: core.StatusFailed, Reason: "\ncard declined\nstack"})
	printOutcome(&buf, core.TestOutcome{Name: "m/tests/ui/Shop::TestRefund", Status: core.StatusSkipped})

	want := "  ✓ m/tests/ui/Shop::TestCart (1.2s)\n" +
		"  ✗ m/tests/ui/Shop::TestPay (0ms)\n" +
		"    ╰─ card declined\n" +
		"  - m/tests/ui/Shop::TestRefund (skipped)\n"
	assert.Equal(t, want, buf.String())
}

const suiteStream = `{"Time":"2024-05-01T12:00:00Z","Action":"run","Package":"example.com/suite/tests/api/Billing","Test":"TestInvoice"}
{"Time":"2024-05-01T12:00:00Z","Action":"output","Package":"example.com/suite/tests/api/Billing","Test":"TestInvoice","Output":"    invoice_test.go:9: ##harness[tag]=Positive\n"}
{"Time":"2024-05-01T12:00:01Z","Action":"pass","Package":"example.com/suite/tests/api/Billing","Test":"TestInvoice","Elapsed":0.5}
{"Time":"2024-05-01T12:00:01Z","Action":"run","Package":"example.com/suite/tests/api/Billing","Test":"TestRefund"}
{"Time":"2024-05-01T12:00:01Z","Action":"output","Package":"example.com/suite/tests/api/Billing","Test":"TestRefund","Output":"    refund_test.go:14: refund rejected: 409\n"}
{"Time":"2024-05-01T12:00:02Z","Action":"fail","Package":"example.com/suite/tests/api/Billing","Test":"TestRefund","Elapsed":1}
{"Time":"2024-05-01T12:00:02Z","Action":"fail","Package":"example.com/suite/tests/api/Billing","Elapsed":1.6}`

// isolateEnv pins every variable the run command reads or exports, so
// values leaking from the developer's shell or from Export are undone
// when the test ends.
func isolateEnv(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		config.EnvEnvironment:    "qa",
		config.EnvTestType:       "api",
		config.EnvExecutionMode:  "local",
		config.EnvCloudProvider:  "",
		config.EnvBrowser:        "chrome",
		config.EnvHeadless:       "false",
		config.EnvPlatform:       "android",
		config.EnvApp:            "",
		config.EnvRemote:         "",
		config.EnvImplicitWait:   "",
		config.EnvScreenshotsDir: "",
		config.EnvHome:           t.TempDir(),
		"HARNESS_GO":             "go",
		"NO_COLOR":               "1",
	} {
		t.Setenv(k, v)
	}
	config.ResetHome()
	t.Cleanup(config.ResetHome)
}

// fakeSuite creates a suite with one API package and a stand-in go binary
// that prints stream and exits with code.
func fakeSuite(t *testing.T, stream string, code int) (root, goBin string) {
	t.Helper()
	if os.PathSeparator != '/' {
		t.Skip("shell script stand-in for go")
	}
	root = t.TempDir()
	pkgDir := filepath.Join(root, "tests", "api", "Billing")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "billing_test.go"), []byte("package billing\n"), 0o644))

	events := filepath.Join(root, "events.json")
	require.NoError(t, os.WriteFile(events, []byte(stream+"\n"), 0o644))
	goBin = filepath.Join(root, "fake-go")
	script := "#!/bin/sh\ncat '" + events + "'\nexit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(goBin, []byte(script), 0o755))
	return root, goBin
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"unified-runner", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestRunCommand_WritesReports(t *testing.T) {
	isolateEnv(t)
	root, goBin := fakeSuite(t, suiteStream, 1)
	out := filepath.Join(root, "out")

	stdout, err := runApp(t, "run", "--dir", root, "--go", goBin, "--output", out, "--flatten", "--allure")
	assert.Equal(t, ExitFailures, ExitCode(err))

	assert.Contains(t, stdout, "✓ example.com/suite/tests/api/Billing::TestInvoice")
	assert.Contains(t, stdout, "Environment : qa")
	assert.Contains(t, stdout, "Billing      > Total: 2 | Passed: 1 | Failed: 1 | Skipped: 0")
	assert.Contains(t, stdout, "  - Positive > Total: 1 | Passed: 1 | Failed: 0 | Skipped: 0")
	assert.Contains(t, stdout, "    Reason: refund_test.go:14: refund rejected: 409")

	for _, name := range []string{report.ResultsFile, report.HTMLFile, report.MetricsFile} {
		assert.FileExists(t, filepath.Join(out, name), name)
	}
	assert.DirExists(t, filepath.Join(out, report.AllureDir))

	run, err := report.ReadResults(out)
	require.NoError(t, err)
	assert.Equal(t, "qa", run.Environment)
	assert.Equal(t, "api", run.TestType)
	assert.Equal(t, 2, run.Total)
	assert.Equal(t, "api", os.Getenv(config.EnvTestType))
	assert.Equal(t, "False", os.Getenv(config.EnvRemote))
}

func TestRunCommand_AllPassing(t *testing.T) {
	isolateEnv(t)
	stream := `{"Action":"pass","Package":"example.com/suite/tests/api/Billing","Test":"TestInvoice","Elapsed":0.1}`
	root, goBin := fakeSuite(t, stream, 0)

	_, err := runApp(t, "run", "--dir", root, "--go", goBin, "--output", filepath.Join(root, "out"), "--flatten")
	assert.NoError(t, err)
}

func TestRunCommand_PackageFailure(t *testing.T) {
	isolateEnv(t)
	stream := `{"Action":"output","Package":"example.com/suite/tests/api/Billing","Output":"panic: boom\n"}
{"Action":"fail","Package":"example.com/suite/tests/api/Billing"}`
	root, goBin := fakeSuite(t, stream, 1)

	_, err := runApp(t, "run", "--dir", root, "--go", goBin, "--output", filepath.Join(root, "out"), "--flatten")
	assert.Equal(t, ExitError, ExitCode(err))
}

func TestRunCommand_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unsupported test type", []string{"--test-type", "desktop"}},
		{"unsupported browser", []string{"--browser", "safari"}},
		{"cloud without provider", []string{"--execution-mode", "cloud"}},
		{"flatten without output", []string{"--flatten"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			root, goBin := fakeSuite(t, suiteStream, 1)
			args := append([]string{"run", "--dir", root, "--go", goBin}, tt.args...)
			_, err := runApp(t, args...)
			assert.Equal(t, ExitError, ExitCode(err))
		})
	}
}

func TestRunCommand_WorkspaceDefaults(t *testing.T) {
	isolateEnv(t)
	os.Unsetenv(config.EnvEnvironment)
	root, goBin := fakeSuite(t, suiteStream, 1)
	ws := "environment: prod\noutputDir: " + filepath.Join(root, "ws-out") + "\nexcludeTags: [Semantic]\nenv:\n  API_BASE_URL: https://api.example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "harness.yaml"), []byte(ws), 0o644))

	stdout, err := runApp(t, "run", "--dir", root, "--go", goBin, "--flatten")
	assert.Equal(t, ExitFailures, ExitCode(err))
	assert.Contains(t, stdout, "Environment : prod")
	assert.FileExists(t, filepath.Join(root, "ws-out", report.ResultsFile))
}

func TestRunCommand_FlagsDoNotLeakBetweenApps(t *testing.T) {
	isolateEnv(t)
	root, goBin := fakeSuite(t, suiteStream, 1)
	t.Setenv(config.EnvEnvironment, "qa")
	stdout, err := runApp(t, "run", "--dir", root, "--go", goBin, "--output", filepath.Join(root, "first"), "--flatten")
	assert.Equal(t, ExitFailures, ExitCode(err))
	assert.Contains(t, stdout, "Environment : qa")

	os.Unsetenv(config.EnvEnvironment)
	ws := "environment: prod\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "harness.yaml"), []byte(ws), 0o644))
	stdout, err = runApp(t, "run", "--dir", root, "--go", goBin, "--output", filepath.Join(root, "second"), "--flatten")
	assert.Equal(t, ExitFailures, ExitCode(err))
	assert.Contains(t, stdout, "Environment : prod")
}

func TestNewAppBuildsFreshFlags(t *testing.T) {
	a, b := NewApp(), NewApp()
	assert.NotSame(t, a.Flags[0], b.Flags[0])
	assert.NotSame(t, a.Commands[0], b.Commands[0])
	assert.NotSame(t, a.Commands[0].Flags[0], b.Commands[0].Flags[0])
}
func TestProcessEnv(t *testing.T) {
	t.Setenv(config.EnvScreenshotsDir, "")
	opts := &RunOptions{
		Workspace: &config.Workspace{
			Env:         map[string]string{"API_BASE_URL": "https://ws", "TOKEN": "a"},
			IncludeTags: []string{"Positive"},
		},
		Env: map[string]string{"TOKEN": "b"},
	}
	env := processEnv(opts, "/out")
	assert.Equal(t, "https://ws", env["API_BASE_URL"])
	assert.Equal(t, "b", env["TOKEN"])
	assert.Equal(t, "Positive", env[config.EnvIncludeTags])
	assert.Equal(t, filepath.Join("/out", "screenshots"), env[config.EnvScreenshotsDir])
}

func TestCapsCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BS_USERNAME", "alice")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	caps := `{
  "local": {"platformName": "Android", "deviceName": "emulator-5554"},
  "browserstack": {"platformName": "Android", "bstack:options": {"userName": "${BS_USERNAME}"}}
}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "android_caps.json"), []byte(caps), 0o644))

	stdout, err := runApp(t, "caps", "--dir", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# android_caps.json (local)")
	assert.Contains(t, stdout, `"appium:deviceName": "emulator-5554"`)

	stdout, err = runApp(t, "caps", "--dir", root, "--execution-mode", "cloud", "--cloud-provider", "browserstack", "--app", "bs://abc")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"userName": "alice"`)
	assert.Contains(t, stdout, `"appium:app": "bs://abc"`)

	_, err = runApp(t, "caps", "--platform", "windows")
	assert.Equal(t, ExitError, ExitCode(err))
}

func TestReportCommand(t *testing.T) {
	isolateEnv(t)
	root, goBin := fakeSuite(t, suiteStream, 1)
	out := filepath.Join(root, "out")
	_, err := runApp(t, "run", "--dir", root, "--go", goBin, "--output", out, "--flatten")
	require.Equal(t, ExitFailures, ExitCode(err))
	require.NoError(t, os.Remove(filepath.Join(out, report.HTMLFile)))

	stdout, err := runApp(t, "report", "--from", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "FAILED TESTS")
	assert.FileExists(t, filepath.Join(out, report.HTMLFile))

	_, err = runApp(t, "report", "--from", t.TempDir())
	assert.Equal(t, ExitError, ExitCode(err))
}
