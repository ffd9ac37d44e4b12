package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/unified-runner/pkg/capabilities"
	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/driver/appium"
)

func newCapsCommand() *cli.Command {
	return &cli.Command{
		Name:  "caps",
		Usage: "Print the resolved mobile capabilities",
		Description: `Load <platform>_caps.json from the config search paths, select the block
for the execution mode and provider, substitute ${VAR} placeholders and
print the capabilities a session would be opened with.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Value:   string(config.PlatformAndroid),
				EnvVars: []string{config.EnvPlatform},
			},
			&cli.StringFlag{
				Name:    "execution-mode",
				Value:   string(config.ModeLocal),
				EnvVars: []string{config.EnvExecutionMode},
			},
			&cli.StringFlag{
				Name:    "cloud-provider",
				EnvVars: []string{config.EnvCloudProvider},
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Suite root whose config/ directory is searched first",
				Value: ".",
			},
			&cli.StringFlag{
				Name:    "app",
				Usage:   "Override appium:app",
				EnvVars: []string{config.EnvApp},
			},
		},
		Action: printCapabilities,
	}
}

func printCapabilities(c *cli.Context) error {
	platform := config.Platform(strings.ToLower(c.String("platform")))
	mode := config.ExecutionMode(strings.ToLower(c.String("execution-mode")))
	provider := config.CloudProvider(strings.ToLower(c.String("cloud-provider")))

	var file string
	switch platform {
	case config.PlatformAndroid:
		file = capabilities.AndroidFile
	case config.PlatformIOS:
		file = capabilities.IOSFile
	default:
		return cli.Exit(fmt.Sprintf("unsupported platform: %s", platform), ExitError)
	}

	loader := capabilities.NewLoader()
	loader.SearchPaths = append([]string{filepath.Join(c.String("dir"), "config")}, loader.SearchPaths...)
	caps := appium.NormalizeCapabilities(loader.Load(file, mode, provider))
	if app := c.String("app"); app != "" {
		caps["appium:app"] = app
	}

	data, err := json.MarshalIndent(caps, "", "  ")
	if err != nil {
		return cli.Exit(errors.Wrap(err, "marshal capabilities"), ExitError)
	}
	fmt.Fprintf(c.App.Writer, "# %s (%s)\n%s\n", file, capabilities.BlockKey(mode, provider), data)
	return nil
}
