package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
	"github.com/devicelab-dev/unified-runner/pkg/report"
	"github.com/devicelab-dev/unified-runner/pkg/runner"
)

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the test suite",
		Description: `Discover the test packages under <dir>/tests, run the ones matching
--test-type with go test, and write the summary and reports.

Reports are generated in the output directory:
  - Default: ./reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

Exit status is 0 when every test passed or was skipped, 1 when a test
failed and 2 on configuration or runtime errors.`,
		Flags: []cli.Flag{
			// Run configuration
			&cli.StringFlag{
				Name:    "environment",
				Usage:   "Environment to run tests against (staging, prod, dev)",
				Value:   config.DefaultEnvironment,
				EnvVars: []string{config.EnvEnvironment},
			},
			&cli.StringFlag{
				Name:    "test-type",
				Aliases: []string{"t"},
				Usage:   "Type of test to run: ui, mobile, api or all",
				Value:   string(config.TestTypeUI),
				EnvVars: []string{config.EnvTestType},
			},
			&cli.StringFlag{
				Name:    "execution-mode",
				Usage:   "Execution mode: local or cloud",
				Value:   string(config.ModeLocal),
				EnvVars: []string{config.EnvExecutionMode},
			},
			&cli.StringFlag{
				Name:    "cloud-provider",
				Usage:   "Cloud provider for remote execution (browserstack, saucelabs)",
				EnvVars: []string{config.EnvCloudProvider},
			},
			&cli.StringFlag{
				Name:    "browser",
				Usage:   "Browser to use for UI tests (chrome, firefox, edge)",
				Value:   string(config.BrowserChrome),
				EnvVars: []string{config.EnvBrowser},
			},
			&cli.BoolFlag{
				Name:    "headless",
				Usage:   "Run browser in headless mode",
				EnvVars: []string{config.EnvHeadless},
			},
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Usage:   "Mobile platform to use (android, ios)",
				Value:   string(config.PlatformAndroid),
				EnvVars: []string{config.EnvPlatform},
			},
			&cli.StringFlag{
				Name:    "app",
				Usage:   "Path to mobile app, or app ID for cloud execution",
				EnvVars: []string{config.EnvApp},
			},

			// Suite
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Suite module root containing tests/",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to harness.yaml (default: <dir>/harness.yaml if present)",
			},
			&cli.StringSliceFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Extra environment variables for test processes (KEY=VALUE)",
			},
			&cli.StringSliceFlag{
				Name:  "include-tags",
				Usage: "Only run tests with these tags",
			},
			&cli.StringSliceFlag{
				Name:  "exclude-tags",
				Usage: "Skip tests with these tags",
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "Only run tests matching this go test -run pattern",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-package go test timeout (0 = go default)",
			},
			&cli.StringFlag{
				Name:    "go",
				Usage:   "Go binary used to run the packages",
				Value:   runner.DefaultGoBinary,
				EnvVars: []string{"HARNESS_GO"},
			},

			// Output
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output directory for reports (default: ./reports)",
			},
			&cli.BoolFlag{
				Name:  "flatten",
				Usage: "Don't create timestamp subfolder (requires --output)",
			},
			&cli.BoolFlag{
				Name:  "embed-screenshots",
				Usage: "Embed screenshots in report.html",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "allure",
				Usage: "Also write Allure results to <output>/allure-results",
			},
		},
		Action: runTests,
	}
}

// RunOptions holds everything one run needs after flags, harness.yaml
// and defaults are merged.
type RunOptions struct {
	Dir       string
	Workspace *config.Workspace
	Config    config.RunConfiguration
	Env       map[string]string // Extra variables for test processes

	Filter   string
	Timeout  time.Duration
	GoBinary string

	OutputDir        string
	EmbedScreenshots bool
	Allure           bool

	Out io.Writer
}

func runTests(c *cli.Context) error {
	opts, err := buildRunOptions(c)
	if err != nil {
		return cli.Exit(err, ExitError)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, res, err := executeRun(ctx, opts)
	if err != nil {
		return cli.Exit(err, ExitError)
	}
	if n := len(res.PackageFailures); n > 0 {
		return cli.Exit(fmt.Sprintf("%d package(s) failed outside of any test", n), ExitError)
	}
	if !run.Success() {
		return cli.Exit(fmt.Sprintf("%d of %d tests failed", run.Failed, run.Total), ExitFailures)
	}
	return nil
}

// buildRunOptions merges flags over harness.yaml over defaults. A flag
// counts as set when given on the command line or through its variable.
func buildRunOptions(c *cli.Context) (*RunOptions, error) {
	dir, err := filepath.Abs(c.String("dir"))
	if err != nil {
		return nil, errors.Wrap(err, "resolve suite dir")
	}

	var ws *config.Workspace
	if path := c.String("config"); path != "" {
		ws, err = config.Load(path)
	} else {
		ws, err = config.LoadFromDir(dir)
	}
	if err != nil {
		return nil, err
	}

	pick := func(flag, fromWorkspace string) string {
		if c.IsSet(flag) || fromWorkspace == "" {
			return c.String(flag)
		}
		return fromWorkspace
	}

	cfg := config.Default()
	cfg.Environment = pick("environment", ws.Environment)
	cfg.TestType = config.TestType(strings.ToLower(pick("test-type", ws.TestType)))
	cfg.ExecutionMode = config.ExecutionMode(strings.ToLower(pick("execution-mode", ws.ExecutionMode)))
	cfg.CloudProvider = config.CloudProvider(strings.ToLower(pick("cloud-provider", ws.CloudProvider)))
	cfg.Browser = config.Browser(strings.ToLower(pick("browser", ws.Browser)))
	cfg.Platform = config.Platform(strings.ToLower(pick("platform", ws.Platform)))
	cfg.Headless = c.Bool("headless")
	cfg.AppPath = c.String("app")
	if cfg.ImplicitWait, err = config.SecondsFromEnv(config.EnvImplicitWait, config.DefaultImplicitWait); err != nil {
		return nil, err
	}
	if err := cfg.Validate(true); err != nil {
		return nil, err
	}

	if c.IsSet("include-tags") {
		ws.IncludeTags = c.StringSlice("include-tags")
	}
	if c.IsSet("exclude-tags") {
		ws.ExcludeTags = c.StringSlice("exclude-tags")
	}

	output := c.String("output")
	if output == "" && ws.OutputDir != "" {
		output = ws.OutputDir
	}
	outputDir, err := resolveOutputDir(output, c.Bool("flatten"))
	if err != nil {
		return nil, err
	}

	return &RunOptions{
		Dir:              dir,
		Workspace:        ws,
		Config:           cfg,
		Env:              parseEnvVars(c.StringSlice("env")),
		Filter:           c.String("run"),
		Timeout:          c.Duration("timeout"),
		GoBinary:         c.String("go"),
		OutputDir:        outputDir,
		EmbedScreenshots: c.Bool("embed-screenshots"),
		Allure:           c.Bool("allure"),
		Out:              c.App.Writer,
	}, nil
}

// executeRun prepares the environment, runs every selected package and
// writes the reports. Test failures are reported through the returned
// run, not as an error.
func executeRun(ctx context.Context, opts *RunOptions) (*core.RunResult, *runner.Result, error) {
	start := time.Now()
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if err := setupEnvironment(opts); err != nil {
		return nil, nil, err
	}
	logBanner(opts.Config)

	pkgs, err := runner.Discover(opts.Dir, opts.Config.TestType)
	if err != nil {
		return nil, nil, err
	}
	if len(pkgs) == 0 {
		logger.Warn("No test packages found for test type %s under %s", opts.Config.TestType, opts.Dir)
	}

	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolve output dir")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "create output dir %s", outputDir)
	}

	r := &runner.Runner{
		Dir:      opts.Dir,
		GoBinary: opts.GoBinary,
		Selected: opts.Config.TestType,
		Env:      processEnv(opts, outputDir),
		Filter:   opts.Filter,
		Timeout:  opts.Timeout,
	}

	agg := report.NewAggregator()
	res, err := r.Run(ctx, pkgs, func(o core.TestOutcome) {
		agg.Record(o)
		printOutcome(out, o)
	})
	if err != nil {
		return nil, res, err
	}

	end := time.Now()
	run := report.NewRun(opts.Config.Environment, string(opts.Config.TestType), start)
	report.Finish(run, agg, end)

	fmt.Fprint(out, agg.Summary(report.Meta{Environment: run.Environment, Date: end, Duration: run.Duration}))
	fmt.Fprintln(out, agg.Table("Test Results"))

	if err := writeReports(outputDir, run, opts); err != nil {
		return run, res, err
	}
	return run, res, nil
}

// setupEnvironment loads config/.env.<environment> and exports the run
// configuration for child processes. A missing environment file is only
// a warning.
func setupEnvironment(opts *RunOptions) error {
	cfg := opts.Config
	logger.Info("Setting up environment: %s, test_type: %s, execution_mode: %s", cfg.Environment, cfg.TestType, cfg.ExecutionMode)

	paths := append([]string{filepath.Join(opts.Dir, "config")}, config.DefaultSearchPaths()...)
	if path, err := config.LoadEnvironment(cfg.Environment, paths); err != nil {
		logger.Warn("Could not load environment %s: %v", cfg.Environment, err)
	} else {
		logger.Info("Loaded environment file %s", path)
	}

	if err := config.Export(cfg); err != nil {
		return err
	}
	if cfg.Remote() {
		logger.Info("Cloud execution enabled with provider: %s", cfg.CloudProvider)
	} else {
		logger.Info("Local execution mode enabled")
	}
	return nil
}

// processEnv returns the variables added to every test process. CLI -e
// values win over harness.yaml env.
func processEnv(opts *RunOptions, outputDir string) map[string]string {
	env := map[string]string{}
	for k, v := range opts.Workspace.Env {
		env[k] = v
	}
	for k, v := range opts.Env {
		env[k] = v
	}
	for k, v := range opts.Workspace.TagFilterEnv() {
		env[k] = v
	}
	if _, ok := env[config.EnvScreenshotsDir]; !ok && os.Getenv(config.EnvScreenshotsDir) == "" {
		env[config.EnvScreenshotsDir] = filepath.Join(outputDir, "screenshots")
	}
	return env
}

func writeReports(outputDir string, run *core.RunResult, opts *RunOptions) error {
	path, err := report.WriteResults(outputDir, run)
	if err != nil {
		return err
	}
	logger.Info("Results written to %s", path)

	htmlPath := filepath.Join(outputDir, report.HTMLFile)
	if err := report.GenerateHTML(run, report.HTMLConfig{OutputPath: htmlPath, EmbedAssets: opts.EmbedScreenshots}); err != nil {
		return err
	}
	logger.Info("HTML report written to %s", htmlPath)

	metrics := report.NewMetrics()
	metrics.ObserveRun(run)
	if path, err = metrics.Write(outputDir); err != nil {
		return err
	}
	logger.Info("Metrics written to %s", path)

	if opts.Allure {
		if err := report.GenerateAllure(outputDir, run); err != nil {
			return err
		}
		logger.Info("Allure results written to %s", filepath.Join(outputDir, report.AllureDir))
	}
	return nil
}
