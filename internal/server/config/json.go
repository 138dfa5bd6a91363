package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
	"github.com/dmitrijs2005/gophrelay/internal/timex"
	"github.com/labstack/gommon/bytes"
)

// JsonConfig is the DTO read from the JSON config file. Durations accept
// "10s" or integer nanoseconds; max_payload_size accepts "512MB" or bytes.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	DatabaseDSN           string         `json:"database_dsn"`
	RedisAddr             string         `json:"redis_addr"`
	RedisPassword         string         `json:"redis_password"`
	RedisDB               *int           `json:"redis_db"`
	SessionKeyPrefix      string         `json:"session_key_prefix"`
	TrustedClientPassword string         `json:"trusted_client_password"`
	TrustedClientSecretID string         `json:"trusted_client_secret_id"`
	AWSRegion             string         `json:"aws_region"`
	Backends              []string       `json:"backends"`
	Discovery             string         `json:"discovery"`
	HealthPort            int            `json:"health_port"`
	HealthCheckInterval   timex.Duration `json:"health_check_interval"`
	AttemptTimeout        timex.Duration `json:"attempt_timeout"`
	SpoolDir              string         `json:"spool_dir"`
	MaxPayloadSize        string         `json:"max_payload_size"`
	RelaySecretKey        string         `json:"relay_secret_key"`
	LogLevel              string         `json:"log_level"`
}

// parseJson loads the file named by -c or -config, if any, over config.
// Fields absent from the file keep their current value. Unreadable or
// invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.SessionKeyPrefix, c.SessionKeyPrefix)
	setString(&config.TrustedClientPassword, c.TrustedClientPassword)
	setString(&config.TrustedClientSecretID, c.TrustedClientSecretID)
	setString(&config.AWSRegion, c.AWSRegion)
	if len(c.Backends) > 0 {
		config.Backends = c.Backends
	}
	setString(&config.Discovery, c.Discovery)
	if c.HealthPort != 0 {
		config.HealthPort = c.HealthPort
	}
	if c.HealthCheckInterval.Duration != 0 {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
	if c.AttemptTimeout.Duration != 0 {
		config.AttemptTimeout = c.AttemptTimeout.Duration
	}
	setString(&config.SpoolDir, c.SpoolDir)
	if c.MaxPayloadSize != "" {
		n, err := bytes.Parse(c.MaxPayloadSize)
		if err != nil {
			panic(err)
		}
		config.MaxPayloadSize = n
	}
	setString(&config.RelaySecretKey, c.RelaySecretKey)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
