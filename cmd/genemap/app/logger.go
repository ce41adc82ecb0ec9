package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/agentstation/genemap/internal/config"
	"github.com/agentstation/genemap/pkg/logging"
)

// NewLogger creates a configured logger based on the application configuration
// and installs it as the default logger, which the engine packages fall back
// to when the context carries none.
// Log level precedence (highest to lowest):
//  1. --log-level flag (explicit always wins)
//  2. -q/--quiet flag (shortcut for warn)
//  3. -v/--verbose flag (shortcut for debug)
//  4. log.level in the config file, GENEMAP_LOG_LEVEL or LOG_LEVEL
//  5. Default (info)
func NewLogger(cfg *config.Config) zerolog.Logger {
	logConfig := cfg.Log
	logConfig.Level = validateLogLevel(logConfig.Level)

	logger := logging.NewLoggerFromConfig(&logConfig)
	logging.SetDefault(logger)
	return logger
}

// validateLogLevel validates a log level string and returns a valid level.
// If the input is invalid, returns "info" as a safe default.
func validateLogLevel(level string) string {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if level == "" || validLevels[level] {
		return level
	}

	fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", level, "info")
	return "info"
}
