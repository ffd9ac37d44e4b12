package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func suiteTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tests/ui/Shop/cart_test.go"), "package shop\n")
	writeFile(t, filepath.Join(root, "tests/api/Billing/refund_test.go"), "package billing\n")
	writeFile(t, filepath.Join(root, "tests/mobile/FakeBank/login/login_test.go"), "package login\n")
	writeFile(t, filepath.Join(root, "tests/mobile/FakeBank/pages.go"), "package fakebank\n")
	writeFile(t, filepath.Join(root, "tests/smoke/ping_test.go"), "package smoke\n")
	writeFile(t, filepath.Join(root, "tests/ui/Shop/testdata/fixture_test.go"), "package x\n")
	writeFile(t, filepath.Join(root, "tests/_wip/draft_test.go"), "package wip\n")
	return root
}

func TestDiscover(t *testing.T) {
	root := suiteTree(t)

	tests := []struct {
		selected config.TestType
		want     []string
	}{
		{config.TestTypeAll, []string{"./tests/api/Billing", "./tests/mobile/FakeBank/login", "./tests/smoke", "./tests/ui/Shop"}},
		{config.TestTypeUI, []string{"./tests/smoke", "./tests/ui/Shop"}},
		{config.TestTypeAPI, []string{"./tests/api/Billing", "./tests/smoke"}},
		{config.TestTypeMobile, []string{"./tests/mobile/FakeBank/login", "./tests/smoke"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.selected), func(t *testing.T) {
			got, err := Discover(root, tt.selected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscoverMissingTestsDir(t *testing.T) {
	_, err := Discover(t.TempDir(), config.TestTypeAll)
	assert.Error(t, err)
}

func TestBuildArgs(t *testing.T) {
	r := &Runner{}
	assert.Equal(t, []string{"test", "./tests/ui/Shop", "-json", "-v", "-count", "1"}, r.buildArgs("./tests/ui/Shop"))

	r = &Runner{Filter: "^TestLogin$", Timeout: 5 * time.Minute}
	assert.Equal(t,
		[]string{"test", "./tests/ui/Shop", "-json", "-v", "-count", "1", "-run", "^TestLogin$", "-timeout", "5m0s"},
		r.buildArgs("./tests/ui/Shop"))
}

func TestCommandEnv(t *testing.T) {
	tests := []struct {
		selected config.TestType
		pkg      string
		want     string
	}{
		{config.TestTypeAll, "./tests/api/Billing", "CURRENT_TEST_TYPE=api"},
		{config.TestTypeAll, "./tests/mobile/FakeBank/login", "CURRENT_TEST_TYPE=mobile"},
		{config.TestTypeAll, "./tests/smoke", "CURRENT_TEST_TYPE=ui"},
		{config.TestTypeAPI, "./tests/smoke", "CURRENT_TEST_TYPE=api"},
		{config.TestTypeUI, "./tests/ui", "CURRENT_TEST_TYPE=ui"},
	}
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			r := &Runner{Dir: "/suite", Selected: tt.selected, Env: map[string]string{"ENVIRONMENT": "qa"}}
			cmd := r.command(context.Background(), tt.pkg)
			assert.Equal(t, "/suite", cmd.Dir)
			assert.Equal(t, tt.want, cmd.Env[len(cmd.Env)-1])
			assert.Contains(t, cmd.Env, "ENVIRONMENT=qa")
			assert.Equal(t, DefaultGoBinary, filepath.Base(cmd.Args[0]))
		})
	}
}

// fakeGo writes a script that prints stream and exits with code.
func fakeGo(t *testing.T, stream string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for go")
	}
	dir := t.TempDir()
	events := filepath.Join(dir, "events.json")
	writeFile(t, events, stream+"\n")
	script := filepath.Join(dir, "go")
	body := "#!/bin/sh\ncat '" + events + "'\necho \"$CURRENT_TEST_TYPE\" >&2\nexit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestRunStreamsOutcomes(t *testing.T) {
	r := &Runner{Dir: t.TempDir(), GoBinary: fakeGo(t, shopStream, 1), Selected: config.TestTypeUI}

	var got []core.TestOutcome
	res, err := r.Run(context.Background(), []string{"./tests/ui/Shop"}, func(o core.TestOutcome) {
		got = append(got, o)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Packages)
	assert.Empty(t, res.PackageFailures)
	assert.Len(t, got, 3)
}

func TestRunReasonIgnoresLoggerLines(t *testing.T) {
	r := &Runner{Dir: t.TempDir(), GoBinary: fakeGo(t, invoiceStream, 1), Selected: config.TestTypeAPI}

	var got []core.TestOutcome
	res, err := r.Run(context.Background(), []string{"./tests/api/Billing"}, func(o core.TestOutcome) {
		got = append(got, o)
	})
	require.NoError(t, err)
	assert.Empty(t, res.PackageFailures)
	require.Len(t, got, 1)
	assert.Equal(t, core.StatusFailed, got[0].Status)
	assert.Equal(t, "invoice_test.go:14: invoice rejected: 409", got[0].ShortReason())
}

func TestRunReportsStderrWhenNoEvents(t *testing.T) {
	r := &Runner{Dir: t.TempDir(), GoBinary: fakeGo(t, "", 2), Selected: config.TestTypeAll}

	res, err := r.Run(context.Background(), []string{"./tests/api/Billing"}, func(core.TestOutcome) {})
	require.NoError(t, err)
	require.Len(t, res.PackageFailures, 1)
	assert.Equal(t, "api", res.PackageFailures[0].Output)
}

func TestRunMissingBinary(t *testing.T) {
	r := &Runner{Dir: t.TempDir(), GoBinary: filepath.Join(t.TempDir(), "no-such-go")}
	_, err := r.Run(context.Background(), []string{"./tests/ui/Shop"}, func(core.TestOutcome) {})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{}
	res, err := r.Run(ctx, []string{"./tests/ui/Shop"}, func(core.TestOutcome) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Packages)
}
