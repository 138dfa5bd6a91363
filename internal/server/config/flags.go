package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
	"github.com/dmitrijs2005/gophrelay/internal/server/discovery"
)

var flagNames = []string{
	"-a", "-d", "-r", "-rp", "-rdb", "-kp", "-tp", "-ts", "-g",
	"-b", "-m", "-hp", "-hi", "-t", "-sd", "-ms", "-k", "-l",
}

// parseFlags populates gateway Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     file registry DSN
//	-r string     Redis address
//	-rp string    Redis password
//	-rdb int      Redis database
//	-kp string    session key prefix
//	-tp string    trusted-client credential
//	-ts string    Secrets Manager id of the trusted-client credential
//	-g string     AWS region
//	-b string     comma separated backend URLs
//	-m string     discovery mode: static|health
//	-hp int       backend gRPC health port
//	-hi duration  health check interval
//	-t duration   relay attempt timeout
//	-sd string    spool directory
//	-ms size      max payload size (e.g., "512MB")
//	-k string     relay token secret key
//	-l string     log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], flagNames)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "file registry DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "rp", config.RedisPassword, "Redis password")
	fs.IntVar(&config.RedisDB, "rdb", config.RedisDB, "Redis database")
	fs.StringVar(&config.SessionKeyPrefix, "kp", config.SessionKeyPrefix, "session key prefix")
	fs.StringVar(&config.TrustedClientPassword, "tp", config.TrustedClientPassword, "trusted client credential")
	fs.StringVar(&config.TrustedClientSecretID, "ts", config.TrustedClientSecretID, "Secrets Manager id of the trusted client credential")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")

	backends := fs.String("b", "", "comma separated backend URLs")

	fs.StringVar(&config.Discovery, "m", config.Discovery, "backend discovery: static|health")
	fs.IntVar(&config.HealthPort, "hp", config.HealthPort, "backend gRPC health port")
	fs.DurationVar(&config.HealthCheckInterval, "hi", config.HealthCheckInterval, "health check interval")
	fs.DurationVar(&config.AttemptTimeout, "t", config.AttemptTimeout, "relay attempt timeout")
	fs.StringVar(&config.SpoolDir, "sd", config.SpoolDir, "spool directory")

	maxPayload := flagx.ByteSize(config.MaxPayloadSize)
	fs.Var(&maxPayload, "ms", "max payload size")

	fs.StringVar(&config.RelaySecretKey, "k", config.RelaySecretKey, "relay token secret key")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *backends != "" {
		config.Backends = discovery.ParseList(*backends)
	}
	config.MaxPayloadSize = int64(maxPayload)
}
