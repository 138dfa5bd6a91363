package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":       "www.example:9000",
		"database_dsn":             "postgres://db/relay",
		"redis_addr":               "redis:6379",
		"redis_db":                 3,
		"trusted_client_secret_id": "relay/trusted",
		"backends":                 []string{"http://a:1", "http://b:2"},
		"discovery":                "health",
		"health_port":              7000,
		"health_check_interval":    "15s",
		"attempt_timeout":          5000000000,
		"max_payload_size":         "67108864",
		"log_level":                "debug",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://db/relay", cfg.DatabaseDSN)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 3, cfg.RedisDB)
		assert.Equal(t, "relay/trusted", cfg.TrustedClientSecretID)
		assert.Equal(t, []string{"http://a:1", "http://b:2"}, cfg.Backends)
		assert.Equal(t, DiscoveryHealth, cfg.Discovery)
		assert.Equal(t, 7000, cfg.HealthPort)
		assert.Equal(t, 15*time.Second, cfg.HealthCheckInterval)
		assert.Equal(t, 5*time.Second, cfg.AttemptTimeout)
		assert.Equal(t, int64(64*1024*1024), cfg.MaxPayloadSize)
		assert.Equal(t, "debug", cfg.LogLevel)

		// untouched fields keep defaults
		assert.Equal(t, "gophrelay", cfg.SessionKeyPrefix)
		assert.Equal(t, "us-east-1", cfg.AWSRegion)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg
		parseJson(cfg)

		assert.Equal(t, want, *cfg)
	})

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("invalid size → panics", func(t *testing.T) {
		bad := writeTempJSON(t, dir, "size.json", map[string]any{"max_payload_size": "huge"})
		os.Args = []string{"testbin", "-c", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
