// Package config handles configuration for the storage node, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for a storage node.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the upload endpoint the gateway relays to.
//   - EndpointAddrGRPC: bind address of the gRPC health service.
//   - RedisAddr / RedisPassword / RedisDB / SessionKeyPrefix: session authority store.
//   - TrustedClientPassword: the node's trusted-client credential.
//   - RelaySecretKey: when set, every upload must carry a matching relay token.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - SpoolDir: where request bodies are buffered before the S3 upload.
type Config struct {
	EndpointAddrHTTP      string `validate:"required"`
	EndpointAddrGRPC      string `validate:"required"`
	RedisAddr             string `validate:"required,hostname_port"`
	RedisPassword         string
	RedisDB               int    `validate:"min=0"`
	SessionKeyPrefix      string `validate:"required"`
	TrustedClientPassword string `validate:"required"`
	RelaySecretKey        string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string `validate:"required"`
	S3Region              string `validate:"required"`
	S3BaseEndpoint        string `validate:"omitempty,url"`
	SpoolDir              string
	LogLevel              string `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8081"
	c.EndpointAddrGRPC = ":50052"
	c.RedisAddr = "127.0.0.1:6379"
	c.SessionKeyPrefix = "gophrelay"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "gophrelay"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
