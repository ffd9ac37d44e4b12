// Package config handles configuration for unified-runner: the workspace
// file, per-run settings and per-environment variable files.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Workspace represents the workspace configuration (harness.yaml).
// Every field is a default that command-line flags override.
type Workspace struct {
	// Test selection
	Packages    []string `yaml:"packages"`    // Package patterns, default ./tests/...
	IncludeTags []string `yaml:"includeTags"` // Tags to include
	ExcludeTags []string `yaml:"excludeTags"` // Tags to exclude

	// Run defaults
	Environment   string `yaml:"environment"`
	TestType      string `yaml:"testType"`
	ExecutionMode string `yaml:"executionMode"`
	CloudProvider string `yaml:"cloudProvider"`
	Browser       string `yaml:"browser"`
	Platform      string `yaml:"platform"`

	// Output
	OutputDir string `yaml:"outputDir"` // Default: reports

	// Execution settings
	Env map[string]string `yaml:"env"` // Environment variables for test processes
}

// Load loads configuration from a file.
func Load(path string) (*Workspace, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, errors.Wrapf(err, "read workspace config %s", path)
	}

	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, errors.Wrapf(err, "parse workspace config %s", path)
	}

	return &ws, nil
}

// LoadFromDir looks for harness.yaml or harness.yml in the directory.
func LoadFromDir(dir string) (*Workspace, error) {
	for _, name := range []string{"harness.yaml", "harness.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	// No config file found, return empty config
	return &Workspace{}, nil
}

// Allows reports whether a test tag passes the include/exclude lists.
// An empty include list admits every tag, including untagged tests.
func (w *Workspace) Allows(tag string) bool {
	for _, ex := range w.ExcludeTags {
		if ex == tag {
			return false
		}
	}
	if len(w.IncludeTags) == 0 {
		return true
	}
	for _, in := range w.IncludeTags {
		if in == tag {
			return true
		}
	}
	return false
}

// Tag filter variables handed to test processes.
const (
	EnvIncludeTags = "HARNESS_INCLUDE_TAGS"
	EnvExcludeTags = "HARNESS_EXCLUDE_TAGS"
)

// TagFilterEnv returns the include/exclude lists as comma-joined variables.
// Empty lists are omitted.
func (w *Workspace) TagFilterEnv() map[string]string {
	env := map[string]string{}
	if len(w.IncludeTags) > 0 {
		env[EnvIncludeTags] = strings.Join(w.IncludeTags, ",")
	}
	if len(w.ExcludeTags) > 0 {
		env[EnvExcludeTags] = strings.Join(w.ExcludeTags, ",")
	}
	return env
}

// TagFilterFromEnv rebuilds the tag filter inside a test process.
func TagFilterFromEnv() *Workspace {
	return &Workspace{
		IncludeTags: splitList(os.Getenv(EnvIncludeTags)),
		ExcludeTags: splitList(os.Getenv(EnvExcludeTags)),
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
