// Package api is the gateway's HTTP surface: the upload endpoint, a file
// record lookup and a liveness probe.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/models"
	"github.com/dmitrijs2005/gophrelay/internal/server/sessions"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const shutdownTimeout = 10 * time.Second

// Uploader is implemented by *services.UploadService.
type Uploader interface {
	Upload(ctx context.Context, sess *models.Session, body io.Reader, file *models.FileRecord) error
	Get(ctx context.Context, id uuid.UUID) (*models.FileRecord, error)
}

type Server struct {
	address   string
	echo      *echo.Echo
	authority sessions.Authority
	authn     *auth.Authenticator
	uploads   Uploader
	validate  *validator.Validate
	logger    logging.Logger
	now       func() time.Time
}

func NewServer(address string, l logging.Logger, authority sessions.Authority, authn *auth.Authenticator, uploads Uploader) *Server {
	s := &Server{
		address:   address,
		authority: authority,
		authn:     authn,
		uploads:   uploads,
		validate:  NewValidator(),
		logger:    l.With("module", "http_server"),
		now:       time.Now,
	}
	s.echo = NewEchoApp(s.logger)
	s.echo.Server.ReadHeaderTimeout = 10 * time.Second
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/ping", s.ping)
	s.echo.POST("/upload", s.upload)

	g := s.echo.Group("/api", RequireSession(s.authn))
	g.GET("/files/:id", s.getFile)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Run(ctx context.Context) error {
	return Serve(ctx, s.echo, s.address, s.logger)
}

// Serve runs e on address until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, e *echo.Echo, address string, l logging.Logger) error {
	go func() {
		<-ctx.Done()
		l.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(sctx); err != nil {
			l.Warn(sctx, "HTTP server shutdown", "error", err.Error())
		}
	}()

	l.Info(ctx, "Starting HTTP server", "address", address)

	if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
