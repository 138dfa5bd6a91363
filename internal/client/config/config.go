// Package config loads runtime configuration for relayctl.
//
// Sources, later ones win:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-g string   base URL of the gateway
//	-t int      response header timeout (seconds)
//
// JSON schema:
//
//	{
//	  "gateway_addr": "http://127.0.0.1:8080",
//	  "request_timeout": "30s"
//	}
package config

import "time"

// Config holds runtime settings for relayctl.
//
// Fields:
//   - GatewayAddr: base URL of the gateway, without a trailing slash.
//   - RequestTimeout: how long to wait for the gateway's answer once the body
//     has been sent. The transfer itself is not bounded.
type Config struct {
	GatewayAddr    string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.GatewayAddr = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig applies defaults, then JSON (if present) and flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
