package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/flagx"
)

// parseFlags populates Config from the global flags it owns; subcommand flags
// are left to the command.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-g", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.GatewayAddr, "g", cfg.GatewayAddr, "gateway base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "response timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.GatewayAddr = strings.TrimRight(cfg.GatewayAddr, "/")
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
