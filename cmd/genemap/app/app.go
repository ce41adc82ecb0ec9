// Package app provides the application context for the genemap CLI. It
// centralizes configuration, logging and construction of the reconciliation
// pipeline.
package app

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/genemap/internal/config"
	"github.com/agentstation/genemap/pkg/errors"
)

// App represents the genemap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	viper  *viper.Viper
	config *config.Config
	logger *zerolog.Logger

	stdout io.Writer
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment and the default config file
// locations; flags are applied when a command runs.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		viper:   config.New(),
		stdout:  os.Stdout,
	}

	cfg, err := config.Load(app.viper, "")
	if err != nil {
		return nil, err
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithViper replaces the configuration source (useful for testing).
func WithViper(v *viper.Viper) Option {
	return func(a *App) error {
		if v == nil {
			return errors.NewValidationError("viper", nil, "cannot be nil")
		}
		a.viper = v
		cfg, err := config.Load(v, "")
		if err != nil {
			return err
		}
		a.config = cfg
		return nil
	}
}

// WithOutput sets the writer commands print to.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.stdout = w
		return nil
	}
}
