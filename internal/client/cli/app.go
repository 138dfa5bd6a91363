package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/gophrelay/internal/client/config"
	"github.com/dmitrijs2005/gophrelay/internal/cryptox"
)

var ErrUsage = errors.New("usage error")

const usage = `usage: relayctl [-c config.json] [-g gateway] [-t seconds] <command> [flags]

commands:
  hash-credential          hash a trusted-client credential read from the terminal
  gen-key [-n bytes]       print a random hex key
  upload -s <session> -f <path> [-n name] [-e ext]
                           stream a file through the gateway
`

type App struct {
	config *config.Config
	client *http.Client
	params cryptox.Params
	stdin  *os.File
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: c.RequestTimeout,
		}},
		params: cryptox.DefaultParams,
		stdin:  os.Stdin,
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// Run executes the command named by args[0] with the remaining arguments.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := command(args)
	switch cmd {
	case "hash-credential":
		return a.hashCredential()
	case "gen-key":
		return a.genKey(rest)
	case "upload":
		return a.upload(ctx, rest)
	case "", "help":
		fmt.Fprint(a.errOut, usage)
		if cmd == "" {
			return ErrUsage
		}
		return nil
	default:
		fmt.Fprint(a.errOut, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// command finds the first positional argument, skipping the global flags and
// their values.
func command(args []string) (string, []string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-c", "-config", "-g", "-t":
			i++
			continue
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			continue
		}
		return args[i], args[i+1:]
	}
	return "", nil
}
