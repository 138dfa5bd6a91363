package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/cryptox"
	"github.com/dmitrijs2005/gophrelay/internal/flagx"
	"github.com/dmitrijs2005/gophrelay/internal/netx"
)

// hashCredential reads the credential twice from a terminal, or once from a
// pipe, and prints its argon2id hash.
func (a *App) hashCredential() error {
	fd := int(a.stdin.Fd())

	var secret []byte
	if isTerminal(fd) {
		first, err := GetPassword(fd, "Enter credential", a.errOut)
		if err != nil {
			return err
		}
		defer cryptox.Wipe(first)

		second, err := GetPassword(fd, "Repeat credential", a.errOut)
		if err != nil {
			return err
		}
		defer cryptox.Wipe(second)

		if !bytes.Equal(first, second) {
			return fmt.Errorf("%w: credentials do not match", ErrUsage)
		}
		secret = first
	} else {
		line, err := GetSimpleText(a.in, "Enter credential", io.Discard)
		if err != nil {
			return fmt.Errorf("read credential: %w", err)
		}
		secret = []byte(line)
		defer cryptox.Wipe(secret)
	}

	if len(secret) == 0 {
		return fmt.Errorf("%w: empty credential", ErrUsage)
	}

	hash, err := cryptox.HashCredential(secret, a.params)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, hash)
	return nil
}

func (a *App) genKey(args []string) error {
	fs := flag.NewFlagSet("gen-key", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	size := fs.Int("n", 32, "key size in bytes")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-n"})); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *size <= 0 {
		return fmt.Errorf("%w: key size must be positive", ErrUsage)
	}

	key, err := cryptox.RandomHex(*size)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, key)
	return nil
}

func (a *App) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	session := fs.String("s", "", "session id")
	path := fs.String("f", "", "file to upload")
	name := fs.String("n", "", "stored name (default: file name without extension)")
	ext := fs.String("e", "", "stored extension (default: file extension)")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-s", "-f", "-n", "-e"})); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *session == "" || *path == "" {
		return fmt.Errorf("%w: upload needs -s and -f", ErrUsage)
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUsage, *path)
	}

	n, e := splitName(filepath.Base(*path))
	if *name != "" {
		n = *name
	}
	if *ext != "" {
		e = *ext
	}

	id, err := netx.PostStream(ctx, a.client, uploadURL(a.config.GatewayAddr, *session, n, e, st.Size()), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

// splitName turns "report.tar.gz" into ("report.tar", "gz"). A name without a
// dot gets the extension "bin".
func splitName(base string) (string, string) {
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return base, "bin"
	}
	return strings.TrimSuffix(base, ext), ext[1:]
}

func uploadURL(gateway, session, name, ext string, size int64) string {
	q := url.Values{}
	q.Set(common.SessionParam, session)
	q.Set("name", name)
	q.Set("ext", ext)
	q.Set("size", strconv.FormatInt(size, 10))
	return gateway + common.UploadPath + "?" + q.Encode()
}
