package config

import (
	"os"
	"path/filepath"
	"sync"
)

// EnvHome overrides the harness home directory.
const EnvHome = "HARNESS_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the harness home directory.
//
// Resolution order:
//  1. $HARNESS_HOME environment variable
//  2. Parent of the binary's directory (if binary is in <home>/bin/)
//  3. Current working directory (development fallback)
//
// The runner exports HARNESS_HOME to every child test process, so test
// binaries resolve the same home as the CLI that launched them.
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// GetConfigDir returns <home>/config.
func GetConfigDir() string {
	return filepath.Join(GetHome(), "config")
}

// GetDriversDir returns <home>/drivers/<browser>.
func GetDriversDir(browser string) string {
	return filepath.Join(GetHome(), "drivers", browser)
}

// GetReportsDir returns <home>/reports.
func GetReportsDir() string {
	return filepath.Join(GetHome(), "reports")
}

func resolveHome() string {
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}

	// Binary-relative: if binary is at <home>/bin/unified-runner, use <home>
	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		binDir := filepath.Dir(execPath)
		if filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

// ResetHome resets the cached home directory (for testing).
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
