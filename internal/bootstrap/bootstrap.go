// Package bootstrap wires configuration, logging, the optional loopback stub
// and the probe itself into one run with graceful shutdown.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	platformconfig "printbridge-probe/internal/platform/config"
	platformerrors "printbridge-probe/internal/platform/errors"
	platformlogging "printbridge-probe/internal/platform/logging"
	"printbridge-probe/internal/probe"
	"printbridge-probe/internal/stub"
	"printbridge-probe/internal/utils"
)

const shutdownTimeout = 15 * time.Second

// Options carries command line overrides into the bootstrap.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string
	// BridgeURL overrides the configured bridge endpoint.
	BridgeURL string
	// EnableStub forces the loopback stub on, regardless of config.
	EnableStub bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts        Options
	config      *platformconfig.Config
	configPath  string
	logProvider *platformlogging.Logger
	logger      *utils.Logger
	runner      *probe.Runner
	reporter    *probe.Reporter
}

// Run executes the whole probe lifecycle: load configuration, initialise
// dependencies, optionally start the stub bridge, run the probe sessions and
// shut everything down cleanly.
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}

	logBootstrapGraph(steps, logger)

	// The runner owns its bus, so repeated runs in one process stay isolated.
	defer state.runner.Close()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)

	stubCancel, err := startStub(config, logger, group, groupCtx)
	if err != nil {
		cancel()
		return err
	}

	group.Go(func() error {
		defer stubCancel()
		if err := state.runner.Run(groupCtx); err != nil {
			if groupCtx.Err() != nil {
				logger.InfoTag("Bootstrap", "probe interrupted: %v", context.Cause(groupCtx))
				return nil
			}
			return err
		}
		return nil
	})

	runErr := waitForShutdown(logger, group, runTimeout(config))

	// Give the async bus a beat to drain before summarising.
	time.Sleep(100 * time.Millisecond)
	state.reporter.LogSummary()

	logger.Close()
	return runErr
}

func logBootstrapGraph(steps []initStep, logger *utils.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("Bootstrap", "initialisation order")
	for _, step := range steps {
		logger.InfoTag("Bootstrap", "  %s", step.Title)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialisation steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "probe:init-runner",
			Title:     "Initialise probe runner",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindProbe,
			Execute:   initRunnerStep,
		},
		{
			ID:        "probe:init-reporter",
			Title:     "Initialise run reporter",
			DependsOn: []string{"probe:init-runner"},
			Kind:      platformerrors.KindProbe,
			Execute:   initReporterStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader()
	if state.opts.ConfigPath != "" {
		loader = loader.WithPath(state.opts.ConfigPath)
	}

	result, err := loader.Load()
	if err != nil {
		return err
	}

	cfg := result.Config
	if state.opts.BridgeURL != "" {
		cfg.Bridge.URL = state.opts.BridgeURL
	}
	if state.opts.EnableStub {
		cfg.Stub.Enabled = true
	}
	if cfg.Stub.Enabled && state.opts.BridgeURL == "" {
		// Point the probe at the stub unless the caller named a bridge.
		cfg.Bridge.URL = fmt.Sprintf("ws://%s:%d/ws", cfg.Stub.IP, cfg.Stub.Port)
	}

	state.config = cfg
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init-provider",
			"config not loaded",
		)
	}

	logProvider, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}

	state.logProvider = logProvider
	state.logger = logProvider.Base()
	utils.DefaultLogger = state.logger

	state.logger.InfoTag(
		"Bootstrap",
		"logging ready [%s] config from %s",
		state.config.Log.Level,
		state.configPath,
	)
	return nil
}

func initRunnerStep(_ context.Context, state *appState) error {
	if state == nil || state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"probe:init-runner",
			"missing config/logger",
		)
	}

	runner, err := probe.NewRunner(probe.Options{
		Config: state.config,
		Logger: state.logger,
	})
	if err != nil {
		return err
	}
	state.runner = runner
	return nil
}

func initReporterStep(_ context.Context, state *appState) error {
	if state == nil || state.runner == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"probe:init-reporter",
			"runner not initialised",
		)
	}

	reporter, err := probe.NewReporter(state.runner.Bus(), state.logger)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindProbe, "probe:init-reporter", "failed to create reporter", err)
	}
	state.reporter = reporter
	return nil
}

// startStub boots the loopback bridge when enabled. The listener is bound
// before the serve goroutine starts, so the probe can dial immediately
// without polling. The returned cancel stops the stub once the probe is done.
func startStub(
	config *platformconfig.Config,
	logger *utils.Logger,
	g *errgroup.Group,
	groupCtx context.Context,
) (context.CancelFunc, error) {
	if !config.Stub.Enabled {
		return func() {}, nil
	}

	server := stub.NewServer(stub.Config{
		IP:             config.Stub.IP,
		Port:           config.Stub.Port,
		Printers:       config.Stub.Printers,
		DefaultPrinter: config.Stub.DefaultPrinter,
	}, logger)

	if err := server.Listen(); err != nil {
		return func() {}, err
	}

	stubCtx, stubCancel := context.WithCancel(groupCtx)
	g.Go(func() error {
		return server.Start(stubCtx)
	})
	return stubCancel, nil
}

func waitForShutdown(logger *utils.Logger, g *errgroup.Group, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("Bootstrap", "run finished with error: %v", err)
			return err
		}
		logger.InfoTag("Bootstrap", "all services stopped")
	case <-time.After(timeout):
		timeoutErr := errors.New("shutdown timed out")
		logger.ErrorTag("Bootstrap", "shutdown timed out, forcing exit")
		return timeoutErr
	}
	return nil
}

// runTimeout bounds the whole run: the configured observation window plus the
// handshake allowance and the graceful shutdown allowance.
func runTimeout(config *platformconfig.Config) time.Duration {
	window := parseDurationOrDefault(config.Probe.Duration, 10*time.Second)
	handshake := parseDurationOrDefault(config.Bridge.HandshakeTimeout, 10*time.Second)
	return window + handshake + shutdownTimeout
}

func parseDurationOrDefault(value string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
