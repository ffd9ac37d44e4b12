// Package cli provides the command-line interface for unified-runner.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// Exit codes.
const (
	ExitOK       = 0
	ExitFailures = 1 // at least one test failed
	ExitError    = 2 // configuration or runtime error
)

// globalFlags builds the flags available to all commands. Flags keep
// parsed state, so every App gets its own set.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (console, json)",
			Value:   "console",
			EnvVars: []string{"LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "log-file",
			Usage:   "Also write JSON logs to this file",
			EnvVars: []string{"LOG_FILE"},
		},
		&cli.BoolFlag{
			Name:  "no-ansi",
			Usage: "Disable ANSI colors",
		},
	}
}

// NewApp builds the application. Exit codes are left to the caller.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "unified-runner",
		Usage:   "Run UI, mobile and API test suites with one configuration",
		Version: Version,
		Description: `unified-runner runs the Go test packages under tests/<type>/<project>/
with a browser, device or HTTP session configured from flags, harness.yaml
and config/.env.<environment>, then writes a grouped summary and reports.

Examples:
  unified-runner run --test-type ui --browser firefox --headless
  unified-runner run --test-type all --environment prod
  unified-runner run --test-type mobile --execution-mode cloud --cloud-provider browserstack
  unified-runner caps --platform android --execution-mode cloud --cloud-provider saucelabs
  unified-runner report --from reports/2024-05-01_12-00-00`,
		Flags:          globalFlags(),
		Before:         setupLogging,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			newRunCommand(),
			newCapsCommand(),
			newReportCommand(),
		},
	}
}

// Execute runs the CLI and exits with 0, 1 or 2.
func Execute() {
	err := NewApp().Run(os.Args)
	code := ExitCode(err)
	if err != nil && err.Error() != "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	logger.Close()
	os.Exit(code)
}

// ExitCode maps a command error to the process exit status. Errors that
// carry no exit code are runtime or configuration errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return ExitError
}

func setupLogging(c *cli.Context) error {
	if c.Bool("no-ansi") {
		colorsEnabled = false
	}
	return logger.Init(logger.Options{
		Level:  c.String("log-level"),
		Format: c.String("log-format"),
		File:   c.String("log-file"),
	})
}
