package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// ErrEnvironmentFileNotFound is returned when no .env.<name> file exists.
var ErrEnvironmentFileNotFound = errors.New("environment file not found")

// EnvironmentFileName returns ".env.<name>".
func EnvironmentFileName(name string) string {
	return ".env." + name
}

// LoadEnvironment loads the first <dir>/.env.<name> found in dirs into the
// process environment. Variables that are already set are not overridden.
// It returns the path that was loaded.
func LoadEnvironment(name string, dirs []string) (string, error) {
	file := EnvironmentFileName(name)
	for _, dir := range dirs {
		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return path, errors.Wrapf(err, "load environment file %s", path)
		}
		return path, nil
	}
	return "", errors.Wrapf(ErrEnvironmentFileNotFound, "%s in %v", file, dirs)
}

// DefaultSearchPaths returns <home>/config, <cwd>/config and <cwd>/../config.
func DefaultSearchPaths() []string {
	paths := []string{GetConfigDir()}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(cwd, "config"),
			filepath.Join(filepath.Dir(cwd), "config"),
		)
	}
	return dedupe(paths)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		clean := filepath.Clean(p)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}
