// Package testtype maps a test's location to the kind of session it needs.
// Tests live under tests/<type>/<project>/..., where type is ui, mobile
// or api.
package testtype

import (
	"os"
	"strings"

	"github.com/devicelab-dev/unified-runner/pkg/config"
)

// normalize turns a file path, package import path or test ID into a
// slash-separated path with a leading slash, so "tests/ui/x" and
// "/repo/tests/ui/x" match the same way.
func normalize(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func under(path string, tt config.TestType) bool {
	return strings.Contains(path, "/tests/"+string(tt)+"/")
}

// Resolve returns the concrete test type for path. Paths outside
// tests/<type>/ fall back to fallback; an empty fallback means FromEnv.
func Resolve(path string, fallback config.TestType) config.TestType {
	p := normalize(path)
	for _, tt := range []config.TestType{config.TestTypeMobile, config.TestTypeUI, config.TestTypeAPI} {
		if under(p, tt) {
			return tt
		}
	}
	if fallback == "" {
		return FromEnv()
	}
	return fallback
}

// FromEnv reads TEST_TYPE, defaulting to ui.
func FromEnv() config.TestType {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(config.EnvTestType)))
	if v == "" {
		return config.TestTypeUI
	}
	return config.TestType(v)
}

// Ignore reports whether path should be skipped when running selected.
// Nothing is ignored for "all"; otherwise paths under another type's
// tests directory are.
func Ignore(selected config.TestType, path string) bool {
	if selected == config.TestTypeAll {
		return false
	}
	p := normalize(path)
	for _, tt := range config.ConcreteTestTypes {
		if tt != selected && under(p, tt) {
			return true
		}
	}
	return false
}
