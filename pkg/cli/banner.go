package cli

import (
	"strings"

	"github.com/devicelab-dev/unified-runner/pkg/config"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// logBanner logs the session settings before any test runs. Browser
// settings appear for ui/all runs and the platform for mobile/all runs.
func logBanner(cfg config.RunConfiguration) {
	rule := strings.Repeat("=", 80)
	logger.Info(rule)
	logger.Info("STARTING TEST SESSION")
	logger.Info("Environment: %s", cfg.Environment)
	logger.Info("Test Type: %s", cfg.TestType)
	logger.Info("Execution Mode: %s", cfg.ExecutionMode)
	if cfg.Remote() {
		logger.Info("Cloud Provider: %s", cfg.CloudProvider)
	}
	if cfg.TestType == config.TestTypeUI || cfg.TestType == config.TestTypeAll {
		logger.Info("Browser: %s, Headless: %t", cfg.Browser, cfg.Headless)
	}
	if cfg.TestType == config.TestTypeMobile || cfg.TestType == config.TestTypeAll {
		logger.Info("Platform: %s", cfg.Platform)
	}
	logger.Info(rule)
}
