package relay

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/discovery"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	srv *httptest.Server

	mu      sync.Mutex
	hits    int
	bodies  [][]byte
	queries []url.Values
	headers []http.Header
}

func newBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) *backend {
	t.Helper()
	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.hits++
		b.bodies = append(b.bodies, body)
		b.queries = append(b.queries, r.URL.Query())
		b.headers = append(b.headers, r.Header.Clone())
		b.mu.Unlock()
		handler(w, r, body)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func statusBackend(t *testing.T, status int) *backend {
	return newBackend(t, func(w http.ResponseWriter, _ *http.Request, _ []byte) { w.WriteHeader(status) })
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

func (b *backend) lastBody() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[len(b.bodies)-1]
}

func urls(bs ...*backend) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.srv.URL)
	}
	return out
}

func newRelay(t *testing.T, backends []string, opts Options) *Relay {
	t.Helper()
	if opts.SpoolDir == "" {
		opts.SpoolDir = t.TempDir()
	}
	if opts.AttemptTimeout == 0 {
		opts.AttemptTimeout = 2 * time.Second
	}
	return New(discovery.NewStatic(backends), opts, logging.Nop{})
}

func testSession() *models.Session {
	return &models.Session{ID: uuid.New(), User: models.User{Login: "alice"}, Permissions: []string{"api.enabled"}}
}

func fiveBytes() *int64 { v := int64(5); return &v }

func TestRelay_SingleBackendSuccess(t *testing.T) {
	b := statusBackend(t, http.StatusOK)
	r := newRelay(t, urls(b), Options{})

	sess := testSession()
	file := models.NewFileRecord("foo", "txt", fiveBytes(), time.Now())

	require.NoError(t, r.Relay(context.Background(), sess, onlyReader{strings.NewReader("hello")}, file))
	require.Equal(t, 1, b.count())
	assert.Equal(t, []byte("hello"), b.lastBody())

	q := b.queries[0]
	assert.Equal(t, sess.ID.String(), q.Get("s"))
	got, err := models.ParseFileParam(q.Get("f"))
	require.NoError(t, err)
	assert.Equal(t, file, got)
	assert.Empty(t, b.headers[0].Get("Authorization"))
}

func TestRelay_FailoverUntilSuccess(t *testing.T) {
	payload := make([]byte, 256*1024)
	_, _ = rand.Read(payload)

	// first backend gives up after a few bytes, second reads everything and refuses
	partial := &backend{}
	partial.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		partial.mu.Lock()
		partial.hits++
		partial.mu.Unlock()
		_, _ = io.CopyN(io.Discard, r.Body, 1024)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(partial.srv.Close)

	refusing := statusBackend(t, http.StatusServiceUnavailable)
	ok := statusBackend(t, http.StatusOK)
	unused := statusBackend(t, http.StatusOK)

	r := newRelay(t, urls(partial, refusing, ok, unused), Options{})
	err := r.Relay(context.Background(), testSession(), onlyReader{iotest.HalfReader(bytes.NewReader(payload))},
		models.NewFileRecord("blob", "bin", nil, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, 1, partial.count())
	assert.Equal(t, 1, refusing.count())
	assert.Equal(t, payload, refusing.lastBody())
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, payload, ok.lastBody(), "final attempt gets the full payload")
	assert.Equal(t, 0, unused.count())
}

func TestRelay_AllFailCarriesLastStatus(t *testing.T) {
	a := statusBackend(t, http.StatusServiceUnavailable)
	b := statusBackend(t, http.StatusInternalServerError)
	c := statusBackend(t, http.StatusInsufficientStorage)

	r := newRelay(t, urls(a, b, c), Options{})
	err := r.Relay(context.Background(), testSession(), strings.NewReader("hello"), models.NewFileRecord("foo", "txt", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindIO, re.Kind)
	assert.Equal(t, http.StatusInsufficientStorage, re.Status)
	assert.Equal(t, 3, re.Attempts)
	assert.Equal(t, http.StatusInsufficientStorage, re.HTTPStatus())
	for _, be := range []*backend{a, b, c} {
		assert.Equal(t, 1, be.count())
		assert.Equal(t, []byte("hello"), be.lastBody())
	}
}

func TestRelay_NetworkErrorsFailOverAndKeepLastStatus(t *testing.T) {
	refusing := statusBackend(t, http.StatusServiceUnavailable)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	r := newRelay(t, []string{refusing.srv.URL, dead.URL}, Options{})
	err := r.Relay(context.Background(), testSession(), strings.NewReader("x"), models.NewFileRecord("a", "b", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindIO, re.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, re.Status)
	assert.Equal(t, 2, re.Attempts)
}

func TestRelay_OnlyNetworkErrors(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	r := newRelay(t, []string{dead.URL}, Options{})
	err := r.Relay(context.Background(), testSession(), strings.NewReader("x"), models.NewFileRecord("a", "b", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindIO, re.Kind)
	assert.Zero(t, re.Status)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestRelay_NoBackend(t *testing.T) {
	r := newRelay(t, nil, Options{})
	err := r.Relay(context.Background(), testSession(), strings.NewReader("x"), models.NewFileRecord("a", "b", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindNoBackend, re.Kind)
	assert.Equal(t, http.StatusBadGateway, re.HTTPStatus())
}

func TestRelay_CancellationStopsFailover(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	first := statusBackend(t, http.StatusServiceUnavailable)
	hanging := newBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		cancel()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })
	after := statusBackend(t, http.StatusOK)

	r := newRelay(t, urls(first, hanging, after), Options{})
	err := r.Relay(ctx, testSession(), strings.NewReader("hello"), models.NewFileRecord("a", "b", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindInterrupted, re.Kind)
	assert.Equal(t, 2, re.Attempts)
	assert.True(t, IsInterrupted(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusClientClosedRequest, StatusOf(err))
	assert.Equal(t, 0, after.count(), "no attempt after cancellation")
}

func TestRelay_InboundReadErrorIsInterruption(t *testing.T) {
	a := statusBackend(t, http.StatusOK)
	b := statusBackend(t, http.StatusOK)

	body := io.MultiReader(strings.NewReader("hel"), iotest.ErrReader(errors.New("client reset")))
	r := newRelay(t, urls(a, b), Options{})
	err := r.Relay(context.Background(), testSession(), body, models.NewFileRecord("a", "b", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindInterrupted, re.Kind)
	var se *SourceError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, 0, b.count())
}

func TestRelay_TooLarge(t *testing.T) {
	a := statusBackend(t, http.StatusOK)
	b := statusBackend(t, http.StatusOK)

	r := newRelay(t, urls(a, b), Options{MaxPayloadSize: 4})
	err := r.Relay(context.Background(), testSession(), onlyReader{strings.NewReader("hello")}, models.NewFileRecord("a", "b", nil, time.Now()))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindTooLarge, re.Kind)
	assert.Equal(t, http.StatusRequestEntityTooLarge, re.HTTPStatus())
	assert.Equal(t, 0, b.count())
}

func TestRelay_HeaderTimeoutFailsOver(t *testing.T) {
	release := make(chan struct{})
	slow := newBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })
	ok := statusBackend(t, http.StatusOK)

	r := newRelay(t, urls(slow, ok), Options{AttemptTimeout: 100 * time.Millisecond})
	err := r.Relay(context.Background(), testSession(), strings.NewReader("hello"), models.NewFileRecord("a", "b", nil, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), ok.lastBody())
}

func TestRelay_SignsAttempts(t *testing.T) {
	secret := []byte("relay-secret")
	a := statusBackend(t, http.StatusServiceUnavailable)
	b := statusBackend(t, http.StatusOK)

	sess := testSession()
	file := models.NewFileRecord("a", "b", nil, time.Now())
	r := newRelay(t, urls(a, b), Options{SecretKey: secret})
	require.NoError(t, r.Relay(context.Background(), sess, strings.NewReader("x"), file))

	for _, be := range []*backend{a, b} {
		h := be.headers[0].Get("Authorization")
		require.True(t, strings.HasPrefix(h, "Bearer "))
		require.NoError(t, auth.VerifyRelayToken(strings.TrimPrefix(h, "Bearer "), secret, sess.ID.String(), file.ID.String()))
	}
}

func TestErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{&Error{Kind: KindIO, Status: 409}, 409},
		{&Error{Kind: KindIO, Status: 413}, 413},
		{&Error{Kind: KindIO, Status: 503}, 503},
		{&Error{Kind: KindIO, Status: 507}, 507},
		{&Error{Kind: KindIO, Status: 404}, 502},
		{&Error{Kind: KindIO}, 502},
		{&Error{Kind: KindNoBackend}, 502},
		{&Error{Kind: KindInterrupted, Status: 503}, 499},
		{&Error{Kind: KindTooLarge}, 413},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), tt.err.Error())
	}
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("other")))
}

func TestUploadURL(t *testing.T) {
	file := &models.FileRecord{ID: uuid.MustParse("6f1c2c8e-2a5b-4a53-9d6a-0c2b8f3e9a10"), Name: "a b", Extension: "txt", CreatedAt: time.UnixMilli(5)}
	got := UploadURL("http://node:8081", "sid", file)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/upload", u.Path)
	assert.Equal(t, "sid", u.Query().Get("s"))
	assert.Equal(t, file.URLParam(), u.Query().Get("f"))
}
