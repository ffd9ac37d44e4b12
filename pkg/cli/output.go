package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// Tests at or above this duration are flagged as slow.
const slowThreshold = 30 * time.Second

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// printOutcome writes the live progress line for one finished test.
func printOutcome(w io.Writer, o core.TestOutcome) {
	dur := formatDuration(o.Duration)
	switch o.Status {
	case core.StatusPassed:
		symbol, symbolColor, durColor := "✓", color(colorGreen), color(colorGray)
		if o.Duration >= slowThreshold {
			symbol, symbolColor, durColor = "⚠", color(colorYellow), color(colorYellow)
		}
		fmt.Fprintf(w, "  %s%s%s %s %s(%s)%s\n", symbolColor, symbol, color(colorReset), o.Name, durColor, dur, color(colorReset))
	case core.StatusFailed:
		fmt.Fprintf(w, "  %s✗%s %s (%s)\n", color(colorRed), color(colorReset), o.Name, dur)
		if reason := o.ShortReason(); reason != "" {
			fmt.Fprintf(w, "    %s╰─%s %s\n", color(colorGray), color(colorReset), reason)
		}
	default:
		fmt.Fprintf(w, "  %s-%s %s %s(skipped)%s\n", color(colorYellow), color(colorReset), o.Name, color(colorGray), color(colorReset))
	}
}

// formatDuration shows milliseconds below one second, seconds below one
// minute, and minutes and seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}

// resolveOutputDir determines the output directory based on flags.
// - No --output: ./reports/<timestamp>/
// - --output given: <output>/<timestamp>/
// - --output + --flatten: <output>/ (error if --output not given)
func resolveOutputDir(output string, flatten bool) (string, error) {
	if flatten && output == "" {
		return "", fmt.Errorf("--flatten requires --output to be specified")
	}

	baseDir := output
	if baseDir == "" {
		baseDir = "./reports"
	}

	if flatten {
		return filepath.Clean(baseDir), nil
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(baseDir, timestamp), nil
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
