package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
)

// JsonConfig is the DTO read from the JSON config file.
type JsonConfig struct {
	EndpointAddrHTTP      string `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string `json:"endpoint_addr_grpc"`
	RedisAddr             string `json:"redis_addr"`
	RedisPassword         string `json:"redis_password"`
	RedisDB               *int   `json:"redis_db"`
	SessionKeyPrefix      string `json:"session_key_prefix"`
	TrustedClientPassword string `json:"trusted_client_password"`
	RelaySecretKey        string `json:"relay_secret_key"`
	S3RootUser            string `json:"s3_root_user"`
	S3RootPassword        string `json:"s3_root_password"`
	S3Bucket              string `json:"s3_bucket"`
	S3Region              string `json:"s3_region"`
	S3BaseEndpoint        string `json:"s3_base_endpoint"`
	SpoolDir              string `json:"spool_dir"`
	LogLevel              string `json:"log_level"`
}

// parseJson loads the file named by -c or -config, if any, over config.
// Fields absent from the file keep their current value.
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

	for dst, v := range map[*string]string{
		&config.EndpointAddrHTTP:      c.EndpointAddrHTTP,
		&config.EndpointAddrGRPC:      c.EndpointAddrGRPC,
		&config.RedisAddr:             c.RedisAddr,
		&config.RedisPassword:         c.RedisPassword,
		&config.SessionKeyPrefix:      c.SessionKeyPrefix,
		&config.TrustedClientPassword: c.TrustedClientPassword,
		&config.RelaySecretKey:        c.RelaySecretKey,
		&config.S3RootUser:            c.S3RootUser,
		&config.S3RootPassword:        c.S3RootPassword,
		&config.S3Bucket:              c.S3Bucket,
		&config.S3Region:              c.S3Region,
		&config.S3BaseEndpoint:        c.S3BaseEndpoint,
		&config.SpoolDir:              c.SpoolDir,
		&config.LogLevel:              c.LogLevel,
	} {
		if v != "" {
			*dst = v
		}
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
}
