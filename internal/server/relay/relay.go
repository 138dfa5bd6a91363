// Package relay streams an upload to one of several backend nodes, failing
// over to the next candidate until one accepts it.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/discovery"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

// ErrAttemptStalled is reported for an attempt whose backend neither accepted
// body bytes nor answered within AttemptTimeout.
var ErrAttemptStalled = errors.New("backend attempt stalled")

// signRelayToken is a test seam.
var signRelayToken = auth.GenerateRelayToken

type Options struct {
	// AttemptTimeout bounds dialing, the TLS handshake and waiting for
	// response headers. During the body transfer it is an idle deadline: an
	// attempt is abandoned once the backend takes no bytes for that long.
	// Time spent waiting on the uploader does not count.
	AttemptTimeout time.Duration
	SpoolDir       string
	// MaxPayloadSize <= 0 means unlimited.
	MaxPayloadSize int64
	// SecretKey signs a bearer token on every attempt when set.
	SecretKey []byte
	TokenTTL  time.Duration
}

type Relay struct {
	selector discovery.Selector
	client   *http.Client
	opts     Options
	logger   logging.Logger
}

func New(selector discovery.Selector, opts Options, l logging.Logger) *Relay {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 5 * time.Minute
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 30 * time.Second
	}
	return &Relay{
		selector: selector,
		client:   &http.Client{Transport: NewTransport(opts.AttemptTimeout)},
		opts:     opts,
		logger:   l.With("module", "relay"),
	}
}

// NewTransport gives every attempt its own connection.
func NewTransport(timeout time.Duration) *http.Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
	}
}

// Relay sends body to the first candidate that answers 200. It returns nil on
// success and an *Error when the transfer failed. A relay token that cannot be
// signed is returned as a plain error before any backend is contacted.
func (r *Relay) Relay(ctx context.Context, sess *models.Session, body io.Reader, file *models.FileRecord) error {
	candidates := r.selector.Init()
	target := candidates.URL()
	if target == "" {
		return &Error{Kind: KindNoBackend, Err: errors.New("no backend available")}
	}

	src := NewSource(body, r.opts.SpoolDir, r.opts.MaxPayloadSize)
	defer src.Close()

	var (
		lastStatus int
		lastErr    error
		attempts   int
	)
	for {
		attempts++
		token, err := r.sign(sess, file)
		if err != nil {
			r.logger.Error(ctx, "cannot sign relay token", "file_id", file.ID.String(), "error", err.Error())
			return fmt.Errorf("sign relay token: %w", err)
		}

		status, err := r.attempt(ctx, src, target, sess, file, token)
		serr := src.Err()
		if err == nil && serr == nil && status == http.StatusOK {
			r.logger.Info(ctx, "file relayed", "backend", target, "file_id", file.ID.String(),
				"attempts", attempts, "bytes", src.Size())
			return nil
		}

		if cerr := ctx.Err(); cerr != nil {
			r.logger.Debug(ctx, "relay interrupted", "backend", target, "error", cerr.Error())
			return &Error{Kind: KindInterrupted, Status: lastStatus, Attempts: attempts, Err: cerr}
		}
		if serr != nil {
			if errors.Is(serr, ErrPayloadTooLarge) {
				return &Error{Kind: KindTooLarge, Attempts: attempts, Err: serr}
			}
			var spoolErr *SpoolError
			if errors.As(serr, &spoolErr) {
				r.logger.Error(ctx, "relay spool failed", "file_id", file.ID.String(), "error", serr.Error())
				return &Error{Kind: KindSpool, Status: lastStatus, Attempts: attempts, Err: serr}
			}
			r.logger.Debug(ctx, "relay interrupted", "backend", target, "error", serr.Error())
			return &Error{Kind: KindInterrupted, Status: lastStatus, Attempts: attempts, Err: serr}
		}

		if err != nil {
			lastErr = err
			r.logger.Debug(ctx, "relay attempt failed", "backend", target, "error", err.Error())
		} else {
			lastStatus = status
			lastErr = fmt.Errorf("backend %s answered %d", target, status)
			r.logger.Debug(ctx, "backend rejected upload", "backend", target, "status", status)
		}

		candidates.Fail()
		target = candidates.URL()
		if target == "" {
			return &Error{Kind: KindIO, Status: lastStatus, Attempts: attempts, Err: lastErr}
		}
	}
}

func (r *Relay) sign(sess *models.Session, file *models.FileRecord) (string, error) {
	if len(r.opts.SecretKey) == 0 {
		return "", nil
	}
	return signRelayToken(sess.ID.String(), file.ID.String(), r.opts.SecretKey, r.opts.TokenTTL)
}

func (r *Relay) attempt(ctx context.Context, src *Source, target string, sess *models.Session, file *models.FileRecord, token string) (int, error) {
	body, err := src.Attempt()
	if err != nil {
		return 0, err
	}
	defer body.Close()

	actx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	idle := newIdleTimer(r.opts.AttemptTimeout, func() { cancel(ErrAttemptStalled) })
	defer idle.stop()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, UploadURL(target, sess.ID.String(), file),
		&progressReader{rc: body, idle: idle})
	if err != nil {
		return 0, err
	}
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/octet-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(context.Cause(actx), ErrAttemptStalled) {
			return 0, fmt.Errorf("%w: %w", ErrAttemptStalled, err)
		}
		return 0, err
	}
	defer resp.Body.Close()
	idle.touch()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return resp.StatusCode, nil
}

// idleTimer fires fn once d passes without a touch.
type idleTimer struct {
	t *time.Timer
	d time.Duration
}

func newIdleTimer(d time.Duration, fn func()) *idleTimer {
	return &idleTimer{t: time.AfterFunc(d, fn), d: d}
}

func (i *idleTimer) touch() { i.t.Reset(i.d) }
func (i *idleTimer) stop()  { i.t.Stop() }

// progressReader re-arms the idle timer each time the transport asks for more
// body. The timer is paused while the read waits on the uploader.
type progressReader struct {
	rc   io.ReadCloser
	idle *idleTimer
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.idle.stop()
	n, err := p.rc.Read(b)
	p.idle.touch()
	return n, err
}

func (p *progressReader) Close() error { return p.rc.Close() }

// UploadURL is <backend>/upload?s=<sessionID>&f=<file param>.
func UploadURL(backend, sessionID string, file *models.FileRecord) string {
	q := url.Values{}
	q.Set(common.SessionParam, sessionID)
	q.Set(common.FileParam, file.URLParam())
	return backend + common.UploadPath + "?" + q.Encode()
}
