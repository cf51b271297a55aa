package bootstrap

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	platformconfig "printbridge-probe/internal/platform/config"
	platformerrors "printbridge-probe/internal/platform/errors"
)

func TestExecuteInitSteps_DependencyOrder(t *testing.T) {
	var executed []string
	steps := []initStep{
		{
			ID:    "first",
			Title: "First",
			Execute: func(context.Context, *appState) error {
				executed = append(executed, "first")
				return nil
			},
		},
		{
			ID:        "second",
			Title:     "Second",
			DependsOn: []string{"first"},
			Execute: func(context.Context, *appState) error {
				executed = append(executed, "second")
				return nil
			},
		},
	}

	if err := executeInitSteps(context.Background(), steps, &appState{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(executed) != 2 || executed[0] != "first" || executed[1] != "second" {
		t.Errorf("steps ran out of order: %v", executed)
	}
}

func TestExecuteInitSteps_UnsatisfiedDependency(t *testing.T) {
	steps := []initStep{
		{
			ID:        "needs-missing",
			Title:     "Broken",
			DependsOn: []string{"missing"},
			Execute:   func(context.Context, *appState) error { return nil },
		},
	}

	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil {
		t.Fatal("expected dependency error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindBootstrap) {
		t.Errorf("expected bootstrap kind, got %v", err)
	}
}

func TestExecuteInitSteps_WrapsStepErrors(t *testing.T) {
	steps := []initStep{
		{
			ID:      "failing",
			Title:   "Failing",
			Kind:    platformerrors.KindConfig,
			Execute: func(context.Context, *appState) error { return fmt.Errorf("boom") },
		},
	}

	err := executeInitSteps(context.Background(), steps, &appState{})
	if err == nil {
		t.Fatal("expected step error")
	}
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Errorf("expected the step kind to be applied, got %v", err)
	}
}

func TestInitGraph_DependenciesResolvable(t *testing.T) {
	seen := map[string]struct{}{}
	for _, step := range InitGraph() {
		for _, dep := range step.DependsOn {
			if _, ok := seen[dep]; !ok {
				t.Errorf("step %s depends on %s which does not precede it", step.ID, dep)
			}
		}
		seen[step.ID] = struct{}{}
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

func TestRun_AgainstOwnStub(t *testing.T) {
	dir := t.TempDir()
	port := freePort(t)

	configPath := filepath.Join(dir, "config.yaml")
	configYAML := fmt.Sprintf(`
probe:
  duration: 500ms
  ack_delay: 10ms
stub:
  enabled: true
  ip: 127.0.0.1
  port: %d
log:
  log_level: DEBUG
  log_dir: %s
  log_file: probe.log
`, port, filepath.Join(dir, "logs"))
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	if err := Run(context.Background(), Options{ConfigPath: configPath}); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// A second run in the same process starts from fresh state.
	if err := Run(context.Background(), Options{ConfigPath: configPath}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
}

func TestRunTimeout_FollowsConfig(t *testing.T) {
	cfg := platformconfig.DefaultConfig()
	cfg.Probe.Duration = "30m"
	cfg.Bridge.HandshakeTimeout = "5s"

	if got := runTimeout(cfg); got != 30*time.Minute+5*time.Second+shutdownTimeout {
		t.Errorf("unexpected timeout for a long window: %s", got)
	}

	cfg.Probe.Duration = "garbage"
	cfg.Bridge.HandshakeTimeout = ""
	if got := runTimeout(cfg); got != 10*time.Second+10*time.Second+shutdownTimeout {
		t.Errorf("unexpected fallback timeout: %s", got)
	}
}
