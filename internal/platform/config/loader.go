package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "printbridge-probe/internal/platform/errors"
)

// ConfigFileName is looked up in the working directory.
const ConfigFileName = ".config.yaml"

// Loader reads configuration from defaults, an optional yaml file and the
// environment, in that order.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader that reads the default config file.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      ConfigFileName,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	cfg := DefaultConfig()
	path := "defaults"

	if data, err := os.ReadFile(l.path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(
				platformerrors.KindConfig,
				"config:load",
				fmt.Sprintf("failed to parse %s", l.path),
				err,
			)
		}
		path = l.path
	} else if !os.IsNotExist(err) {
		return nil, platformerrors.Wrap(
			platformerrors.KindConfig,
			"config:load",
			fmt.Sprintf("failed to read %s", l.path),
			err,
		)
	}

	applyEnvOverrides(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

// applyEnvOverrides maps the handful of environment variables the harness
// honours onto the config.
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("PRINTBRIDGE_URL"); url != "" {
		cfg.Bridge.URL = url
	}
	if level := os.Getenv("PRINTBRIDGE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Bridge.URL == "" {
		return platformerrors.New(
			platformerrors.KindConfig,
			"config:validate",
			"bridge url is required",
		)
	}
	if cfg.Label.WidthMM <= 0 || cfg.Label.HeightMM <= 0 {
		return platformerrors.New(
			platformerrors.KindConfig,
			"config:validate",
			fmt.Sprintf("label dimensions must be positive, got %gx%g mm", cfg.Label.WidthMM, cfg.Label.HeightMM),
		)
	}
	if cfg.Label.DPI <= 0 {
		return platformerrors.New(
			platformerrors.KindConfig,
			"config:validate",
			fmt.Sprintf("label dpi must be positive, got %d", cfg.Label.DPI),
		)
	}
	if cfg.Probe.Sessions < 1 {
		return platformerrors.New(
			platformerrors.KindConfig,
			"config:validate",
			fmt.Sprintf("probe sessions must be at least 1, got %d", cfg.Probe.Sessions),
		)
	}
	if cfg.Stub.Enabled && (cfg.Stub.Port < 1 || cfg.Stub.Port > 65535) {
		return platformerrors.New(
			platformerrors.KindConfig,
			"config:validate",
			fmt.Sprintf("stub port out of range: %d", cfg.Stub.Port),
		)
	}
	return nil
}
