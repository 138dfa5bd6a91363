package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
)

// parseFlags populates storage node Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string    HTTP bind address (e.g., ":8081")
//	-ga string   gRPC health bind address (e.g., ":50052")
//	-r string    Redis address
//	-rp string   Redis password
//	-rdb int     Redis database
//	-kp string   session key prefix
//	-tp string   trusted-client credential
//	-k string    relay token secret key
//	-u string    S3 root user
//	-p string    S3 root password
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-sd string   spool directory
//	-l string    log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-ga", "-r", "-rp", "-rdb", "-kp", "-tp", "-k",
		"-u", "-p", "-b", "-g", "-e", "-sd", "-l",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "ga", config.EndpointAddrGRPC, "address and port of the gRPC health service")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "rp", config.RedisPassword, "Redis password")
	fs.IntVar(&config.RedisDB, "rdb", config.RedisDB, "Redis database")
	fs.StringVar(&config.SessionKeyPrefix, "kp", config.SessionKeyPrefix, "session key prefix")
	fs.StringVar(&config.TrustedClientPassword, "tp", config.TrustedClientPassword, "trusted client credential")
	fs.StringVar(&config.RelaySecretKey, "k", config.RelaySecretKey, "relay token secret key")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.SpoolDir, "sd", config.SpoolDir, "spool directory")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
