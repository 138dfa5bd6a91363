// Package flagx contains the command-line helpers shared by the gateway, the
// storage node and relayctl. Each binary layers defaults, an optional JSON file
// and flags; these helpers let every layer parse only the flags it owns.
package flagx

import (
	"flag"
	"os"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// FilterArgs returns the subset of args made of allowed flags and their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//
// A value is only taken from the next argument when it does not itself look
// like a flag.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// JsonConfigFlags extracts the config file path given via -c or -config from
// os.Args. An empty string means no file was requested.
func JsonConfigFlags() string {
	return JsonConfigFrom(os.Args[1:])
}

// JsonConfigFrom is JsonConfigFlags over an explicit argument list.
func JsonConfigFrom(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}

// ByteSize is a flag.Value accepting human readable sizes such as "512MB".
type ByteSize int64

func (b *ByteSize) String() string {
	if b == nil {
		return "0"
	}
	return bytes.Format(int64(*b))
}

func (b *ByteSize) Set(s string) error {
	v, err := bytes.Parse(s)
	if err != nil {
		return err
	}
	*b = ByteSize(v)
	return nil
}
