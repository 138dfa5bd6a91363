package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "mongodb://db:27017/files", "-r", "redis:6379", "-rp", "pw", "-rdb", "2",
			"-kp", "relay", "-tp", "trusted", "-ts", "secret-id", "-g", "eu-west-1",
			"-b", "http://n1:8081, http://n2:8081/", "-m", "health", "-hp", "6000", "-hi", "5s",
			"-t", "3s", "-sd", "/var/spool/relay", "-ms", "536870912", "-k", "sign", "-l", "debug",
		}, expected: &Config{
			EndpointAddrHTTP:      "127.0.0.1:9090",
			DatabaseDSN:           "mongodb://db:27017/files",
			RedisAddr:             "redis:6379",
			RedisPassword:         "pw",
			RedisDB:               2,
			SessionKeyPrefix:      "relay",
			TrustedClientPassword: "trusted",
			TrustedClientSecretID: "secret-id",
			AWSRegion:             "eu-west-1",
			Backends:              []string{"http://n1:8081", "http://n2:8081"},
			Discovery:             "health",
			HealthPort:            6000,
			HealthCheckInterval:   5 * time.Second,
			AttemptTimeout:        3 * time.Second,
			SpoolDir:              "/var/spool/relay",
			MaxPayloadSize:        512 * 1024 * 1024,
			RelaySecretKey:        "sign",
			LogLevel:              "debug",
		}},
		{name: "bad duration", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
		{name: "bad size", args: []string{"cmd", "-ms", "lots"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_KeepsUnsetValues(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-unknown", "x", "-l", "warn"}

	var c Config
	c.LoadDefaults()
	parseFlags(&c)

	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, []string{"http://127.0.0.1:8081"}, c.Backends)
	assert.Equal(t, int64(1<<30), c.MaxPayloadSize)
}
