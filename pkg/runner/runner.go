// Package runner discovers test packages under tests/, runs them with
// `go test -json` and turns the event stream into test outcomes.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
	"github.com/devicelab-dev/unified-runner/pkg/testtype"
)

// Command constants.
const (
	DefaultGoBinary   = "go"
	TestsDir          = "tests"
	TestCommand       = "test"
	JSONFlag          = "-json"
	VerboseFlag       = "-v"
	CountFlag         = "-count"
	DisableCacheCount = "1"
	RunFlag           = "-run"
	TimeoutFlag       = "-timeout"
)

// Discover returns the packages below <root>/tests that contain test
// files, as "./tests/..." patterns relative to root. Packages belonging to
// a test type other than selected are left out.
func Discover(root string, selected config.TestType) ([]string, error) {
	testsRoot := filepath.Join(root, TestsDir)
	seen := map[string]bool{}

	err := filepath.WalkDir(testsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != testsRoot && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		seen["./"+filepath.ToSlash(rel)] = true
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "no %s directory in %s", TestsDir, root)
		}
		return nil, errors.Wrap(err, "discover test packages")
	}

	var pkgs []string
	for pkg := range seen {
		if testtype.Ignore(selected, pkg+"/") {
			logger.Debug("Skipping %s for test type %s", pkg, selected)
			continue
		}
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

// Runner runs test packages one after another.
type Runner struct {
	Dir      string            // Module root the packages are relative to
	GoBinary string            // Default: go
	Selected config.TestType   // The run's test type, possibly "all"
	Env      map[string]string // Extra variables for every test process
	Filter   string            // Optional -run filter
	Timeout  time.Duration     // Optional per-package -timeout
}

// Result is what one Run produced besides the streamed outcomes.
type Result struct {
	Packages        int
	PackageFailures []PackageFailure
}

// Run executes every package and emits each test's outcome as soon as it
// finishes. A failing go test exit status is not an error; only failing to
// start the process or read its output is.
func (r *Runner) Run(ctx context.Context, pkgs []string, emit func(core.TestOutcome)) (*Result, error) {
	res := &Result{}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		failures, err := r.runPackage(ctx, pkg, emit)
		if err != nil {
			return res, errors.Wrapf(err, "run %s", pkg)
		}
		res.Packages++
		res.PackageFailures = append(res.PackageFailures, failures...)
	}
	return res, nil
}

func (r *Runner) runPackage(ctx context.Context, pkg string, emit func(core.TestOutcome)) ([]PackageFailure, error) {
	cmd := r.command(ctx, pkg)
	logger.Info("Running %s (test type %s)", pkg, r.testTypeFor(pkg))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", r.goBinary())
	}

	emitted := 0
	failures, parseErr := ParseEvents(stdout, pkg, func(o core.TestOutcome) {
		emitted++
		emit(o)
	})
	waitErr := cmd.Wait()
	if parseErr != nil {
		return failures, errors.Wrap(parseErr, "read test events")
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return failures, waitErr
	}
	if waitErr != nil && emitted == 0 && len(failures) == 0 && stderr.Len() > 0 {
		failures = append(failures, PackageFailure{Package: pkg, Output: strings.TrimSpace(stderr.String())})
	}
	for _, f := range failures {
		logger.Error("Package %s failed outside of any test:\n%s", f.Package, f.Output)
	}
	return failures, nil
}

func (r *Runner) goBinary() string {
	if r.GoBinary == "" {
		return DefaultGoBinary
	}
	return r.GoBinary
}

// testTypeFor resolves the session type for pkg. Under "all" packages
// outside tests/<type>/ default to ui.
func (r *Runner) testTypeFor(pkg string) config.TestType {
	fallback := r.Selected
	if fallback == config.TestTypeAll || fallback == "" {
		fallback = config.TestTypeUI
	}
	return testtype.Resolve(pkg+"/", fallback)
}

func (r *Runner) buildArgs(pkg string) []string {
	args := []string{TestCommand, pkg, JSONFlag, VerboseFlag, CountFlag, DisableCacheCount}
	if r.Filter != "" {
		args = append(args, RunFlag, r.Filter)
	}
	if r.Timeout > 0 {
		args = append(args, TimeoutFlag, r.Timeout.String())
	}
	return args
}

func (r *Runner) command(ctx context.Context, pkg string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.goBinary(), r.buildArgs(pkg)...)
	cmd.Dir = r.Dir

	env := os.Environ()
	keys := make([]string, 0, len(r.Env))
	for k := range r.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, r.Env[k]))
	}
	cmd.Env = append(env, fmt.Sprintf("%s=%s", config.EnvCurrentTestType, r.testTypeFor(pkg)))
	return cmd
}
