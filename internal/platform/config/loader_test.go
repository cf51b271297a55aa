package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, ".config.yaml")

	configContent := `
bridge:
  url: "ws://127.0.0.1:9090/ws"
probe:
  duration: "2s"
  sessions: 3
label:
  width_mm: 40
  height_mm: 20
  dpi: 203
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader().WithDotEnv(false).WithPath(configFile)
	result, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := result.Config

	if cfg.Bridge.URL != "ws://127.0.0.1:9090/ws" {
		t.Errorf("expected bridge url ws://127.0.0.1:9090/ws, got %s", cfg.Bridge.URL)
	}
	if cfg.Probe.Sessions != 3 {
		t.Errorf("expected 3 sessions, got %d", cfg.Probe.Sessions)
	}
	if cfg.Label.DPI != 203 {
		t.Errorf("expected 203 dpi, got %d", cfg.Label.DPI)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected log level DEBUG, got %s", cfg.Log.Level)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Label.Text != "TEST" {
		t.Errorf("expected default label text TEST, got %s", cfg.Label.Text)
	}
}

func TestLoader_LoadDefaults(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "missing.yaml"))

	result, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if result.Path != "defaults" {
		t.Errorf("expected origin defaults, got %s", result.Path)
	}
	if result.Config.Bridge.URL != "ws://localhost:8080/ws" {
		t.Errorf("expected default bridge url, got %s", result.Config.Bridge.URL)
	}
	if result.Config.Label.WidthMM != 56 || result.Config.Label.HeightMM != 31 {
		t.Errorf("expected 56x31 mm label, got %gx%g",
			result.Config.Label.WidthMM, result.Config.Label.HeightMM)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("PRINTBRIDGE_URL", "ws://bridge.local:8080/ws")

	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "missing.yaml"))
	result, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if result.Config.Bridge.URL != "ws://bridge.local:8080/ws" {
		t.Errorf("env override not applied, got %s", result.Config.Bridge.URL)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	valid := func() *Config { return DefaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing bridge url",
			mutate:  func(c *Config) { c.Bridge.URL = "" },
			wantErr: true,
		},
		{
			name:    "zero label width",
			mutate:  func(c *Config) { c.Label.WidthMM = 0 },
			wantErr: true,
		},
		{
			name:    "negative dpi",
			mutate:  func(c *Config) { c.Label.DPI = -1 },
			wantErr: true,
		},
		{
			name:    "zero sessions",
			mutate:  func(c *Config) { c.Probe.Sessions = 0 },
			wantErr: true,
		},
		{
			name: "stub port out of range",
			mutate: func(c *Config) {
				c.Stub.Enabled = true
				c.Stub.Port = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
