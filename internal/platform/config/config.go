package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
	Probe  ProbeConfig  `yaml:"probe"`
	Label  LabelConfig  `yaml:"label"`
	Stub   StubConfig   `yaml:"stub"`
	Log    LogConfig    `yaml:"log"`
}

// BridgeConfig points the probe at a print-bridge endpoint.
type BridgeConfig struct {
	URL              string `yaml:"url"`
	HandshakeTimeout string `yaml:"handshake_timeout"`
}

// ProbeConfig controls the harness run.
type ProbeConfig struct {
	// Duration is the watchdog window after which each session closes its
	// connection, successful or not.
	Duration string `yaml:"duration"`
	// AckDelay is the pause between receiving the connection ack and sending
	// the label payload.
	AckDelay string `yaml:"ack_delay"`
	// Sessions is the number of concurrent probe connections.
	Sessions int `yaml:"sessions"`
}

// LabelConfig describes the synthetic label raster.
type LabelConfig struct {
	WidthMM  float64        `yaml:"width_mm"`
	HeightMM float64        `yaml:"height_mm"`
	DPI      int            `yaml:"dpi"`
	Text     string         `yaml:"text"`
	Security SecurityConfig `yaml:"security"`
}

// SecurityConfig bounds the payload the probe is willing to transmit.
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
}

// StubConfig configures the loopback print bridge.
type StubConfig struct {
	Enabled        bool     `yaml:"enabled"`
	IP             string   `yaml:"ip"`
	Port           int      `yaml:"port"`
	Printers       []string `yaml:"printers"`
	DefaultPrinter string   `yaml:"default_printer"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}
