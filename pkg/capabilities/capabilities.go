// Package capabilities loads per-platform session capability files.
//
// A capability file is a JSON document whose top-level keys name an
// execution target ("local", "browserstack", "saucelabs"); each value is
// the capability map sent when opening a session on that target.
package capabilities

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// Capability file names.
const (
	AndroidFile = "android_caps.json"
	IOSFile     = "ios_caps.json"
)

// LocalKey selects the block used in local execution mode.
const LocalKey = "local"

// Set is a capability map. A nil or empty Set is valid.
type Set map[string]interface{}

// Clone returns a deep copy, so callers can override keys without
// touching the loaded value.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// With returns a copy with key set to value.
func (s Set) With(key string, value interface{}) Set {
	out := s.Clone()
	out[key] = value
	return out
}

// Keys returns the sorted capability names.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, vv := range t {
			l[i] = cloneValue(vv)
		}
		return l
	default:
		return v
	}
}

// Loader resolves capability files from an ordered list of directories.
type Loader struct {
	// SearchPaths are tried in order. When no file is found, the first
	// entry is created so the user knows where to put one.
	SearchPaths []string

	// Lookup resolves placeholders. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// NewLoader returns a Loader over config.DefaultSearchPaths.
func NewLoader() *Loader {
	return &Loader{SearchPaths: config.DefaultSearchPaths()}
}

// BlockKey returns the top-level key selected for a mode and provider.
func BlockKey(mode config.ExecutionMode, provider config.CloudProvider) string {
	if mode == config.ModeLocal {
		return LocalKey
	}
	if provider == config.ProviderNone {
		return string(mode)
	}
	return string(provider)
}

// Load reads file, selects the block for mode/provider and substitutes
// environment placeholders in every string value.
//
// Load never fails: a missing file, malformed JSON or a missing block all
// yield an empty Set and a log entry.
func (l *Loader) Load(file string, mode config.ExecutionMode, provider config.CloudProvider) Set {
	path, ok := l.find(file)
	if !ok {
		expected := file
		if len(l.SearchPaths) > 0 {
			if err := os.MkdirAll(l.SearchPaths[0], 0755); err != nil {
				logger.Warn("Could not create config directory %s: %v", l.SearchPaths[0], err)
			}
			expected = filepath.Join(l.SearchPaths[0], file)
		}
		logger.Warn("Config file not found. Expected path: %s", expected)
		return Set{}
	}

	logger.Info("Loading capabilities from: %s", path)
	key := BlockKey(mode, provider)
	set, err := l.loadBlock(path, key)
	if err != nil {
		logger.Error("Error loading capabilities from %s: %v", file, err)
		return Set{}
	}
	logger.Info("Successfully loaded capabilities for %s mode", key)
	return set
}

func (l *Loader) find(file string) (string, bool) {
	for _, dir := range l.SearchPaths {
		path := filepath.Join(dir, file)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func (l *Loader) loadBlock(path, key string) (Set, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- capability file from configured search path
	if err != nil {
		return nil, errors.Wrap(err, "read capabilities")
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "invalid JSON in capabilities file %s", filepath.Base(path))
	}

	raw, ok := doc[key]
	if !ok {
		return nil, errors.Errorf("no capabilities found for configuration key %q (available: %v)", key, Set(doc).Keys())
	}
	block, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("capabilities for %q must be an object, got %T", key, raw)
	}

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Set(SubstituteValue(block, lookup).(map[string]interface{})), nil
}
