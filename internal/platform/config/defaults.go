package config

// DefaultConfig returns the standard manual check: one session against a
// local bridge, a 56x31 mm label at 108 DPI, a one second pause after the ack
// and a ten second watchdog.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			URL:              "ws://localhost:8080/ws",
			HandshakeTimeout: "10s",
		},
		Probe: ProbeConfig{
			Duration: "10s",
			AckDelay: "1s",
			Sessions: 1,
		},
		Label: LabelConfig{
			WidthMM:  56,
			HeightMM: 31,
			DPI:      108,
			Text:     "TEST",
			Security: SecurityConfig{
				MaxFileSize:    5 * 1024 * 1024,
				MaxPixels:      16777216,
				MaxWidth:       4096,
				MaxHeight:      4096,
				AllowedFormats: []string{"png"},
			},
		},
		Stub: StubConfig{
			Enabled:        false,
			IP:             "127.0.0.1",
			Port:           8080,
			Printers:       []string{"PDF Printer", "Label Printer"},
			DefaultPrinter: "Label Printer",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "probe.log",
		},
	}
}
