package relay

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/gophrelay/internal/filex"
)

// ErrPayloadTooLarge is returned once the inbound stream exceeds the limit.
var ErrPayloadTooLarge = errors.New("payload too large")

var errSourceClosed = errors.New("relay source closed")

// SourceError wraps a failure reading the inbound request body. It means the
// client went away and is never retried.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return "read request body: " + e.Err.Error() }
func (e *SourceError) Unwrap() error { return e.Err }

// SpoolError wraps a failure of the local replay spool: the directory could
// not be created or the disk is full. It is a gateway fault, not the client's.
type SpoolError struct {
	Err error
}

func (e *SpoolError) Error() string { return "spool request body: " + e.Err.Error() }
func (e *SpoolError) Unwrap() error { return e.Err }

// Source makes a single-pass request body replayable across failover
// attempts. The inbound stream is read at most once. Bytes are spooled to a
// temp file as the first attempt consumes them; later attempts replay the
// spool and then continue from the live stream. Bodies that are already
// io.ReadSeeker are rewound instead of spooled.
//
// Starting a new attempt invalidates readers of earlier attempts, since the
// HTTP transport may still be reading an abandoned body.
type Source struct {
	mu sync.Mutex

	src    io.Reader
	seeker io.ReadSeeker
	dir    string
	limit  int64

	spool   *os.File
	spooled int64
	eof     bool
	err     error
	gen     int
	closed  bool
}

// NewSource wraps body. limit <= 0 means unlimited.
func NewSource(body io.Reader, spoolDir string, limit int64) *Source {
	s := &Source{src: body, dir: spoolDir, limit: limit}
	if rs, ok := body.(io.ReadSeeker); ok {
		s.seeker = rs
	}
	return s
}

// Attempt returns a reader positioned at the start of the payload.
func (s *Source) Attempt() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errSourceClosed
	}
	if s.err != nil {
		return nil, s.err
	}

	s.gen++
	if s.seeker != nil && s.gen > 1 {
		if _, err := s.seeker.Seek(0, io.SeekStart); err != nil {
			s.err = &SourceError{Err: err}
			return nil, s.err
		}
	}
	return &attemptReader{s: s, gen: s.gen}, nil
}

// Err returns the sticky inbound failure, if any.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Size is the number of payload bytes consumed from the inbound stream so far.
func (s *Source) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spooled
}

// Close removes the spool. Outstanding readers fail afterwards.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	filex.RemoveQuietly(s.spool)
	s.spool = nil
	return nil
}

type attemptReader struct {
	s      *Source
	gen    int
	off    int64
	closed bool
}

func (a *attemptReader) Read(p []byte) (int, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.closed || s.closed || a.gen != s.gen {
		return 0, errSourceClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if s.seeker != nil {
		return a.readSeeker(p)
	}

	if a.off < s.spooled {
		n := int64(len(p))
		if rest := s.spooled - a.off; rest < n {
			n = rest
		}
		m, err := s.spool.ReadAt(p[:n], a.off)
		a.off += int64(m)
		if err != nil && !errors.Is(err, io.EOF) {
			return m, err
		}
		return m, nil
	}

	if s.eof {
		return 0, io.EOF
	}
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.src.Read(p)
	if n > 0 {
		if s.limit > 0 && s.spooled+int64(n) > s.limit {
			s.err = ErrPayloadTooLarge
			return 0, s.err
		}
		if werr := s.append(p[:n]); werr != nil {
			s.err = &SpoolError{Err: werr}
			return 0, s.err
		}
		a.off += int64(n)
	}

	switch {
	case errors.Is(err, io.EOF):
		s.eof = true
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	case err != nil:
		s.err = &SourceError{Err: err}
		return n, s.err
	}
	return n, nil
}

func (a *attemptReader) readSeeker(p []byte) (int, error) {
	s := a.s
	n, err := s.seeker.Read(p)
	if n > 0 {
		a.off += int64(n)
		if s.limit > 0 && a.off > s.limit {
			s.err = ErrPayloadTooLarge
			return 0, s.err
		}
		if a.off > s.spooled {
			s.spooled = a.off
		}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = &SourceError{Err: err}
		return n, s.err
	}
	return n, err
}

// append writes to the spool, creating it on first use. Caller holds s.mu.
func (s *Source) append(p []byte) error {
	if s.spool == nil {
		dir, err := filex.EnsureDir(s.dir)
		if err != nil {
			return err
		}
		f, err := os.CreateTemp(dir, "relay-*.spool")
		if err != nil {
			return err
		}
		s.spool = f
	}
	if _, err := s.spool.Write(p); err != nil {
		return err
	}
	s.spooled += int64(len(p))
	return nil
}

func (a *attemptReader) Close() error {
	a.s.mu.Lock()
	a.closed = true
	a.s.mu.Unlock()
	return nil
}
