package config

import "time"

// Config holds runtime settings for the guestkeeper admin CLI.
type Config struct {
	ServerEndpointAddr string
	PublicBaseURL      string
	RequestTimeout     time.Duration
	AdminSecret        string
	PromptAdminSecret  bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.PublicBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
