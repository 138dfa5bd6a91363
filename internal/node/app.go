// Package node is a reference storage node: it accepts uploads relayed by the
// gateway, stores them in an S3 bucket and reports its health over gRPC.
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophrelay/internal/common"
	"github.com/dmitrijs2005/gophrelay/internal/filex"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/node/config"
	nodegrpc "github.com/dmitrijs2005/gophrelay/internal/node/grpc"
	"github.com/dmitrijs2005/gophrelay/internal/node/storage"
	"github.com/dmitrijs2005/gophrelay/internal/server/api"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/sessions"
	goerrors "github.com/go-errors/errors"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// newBlobStore is a seam for testing without a bucket.
var newBlobStore = func(ctx context.Context, o storage.Options) (BlobStore, error) {
	return storage.NewS3Store(ctx, o)
}

type App struct {
	config *config.Config
	logger logging.Logger
	rdb    *redis.Client
	echo   *echo.Echo
	health *nodegrpc.HealthServer
}

// NewApp connects Redis and the bucket. A trusted-client credential rejected
// by the session authority aborts startup.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	app.rdb = redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	authority := sessions.NewRedisAuthority(app.rdb, c.SessionKeyPrefix)

	if err := authority.VerifyTrusted(ctx, c.TrustedClientPassword); err != nil {
		_ = app.rdb.Close()
		return nil, goerrors.WrapPrefix(err, "unable to login with trusted client credential", 0)
	}

	store, err := newBlobStore(ctx, storage.Options{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		_ = app.rdb.Close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}

	spoolDir, err := filex.EnsureDir(c.SpoolDir)
	if err != nil {
		_ = app.rdb.Close()
		return nil, fmt.Errorf("spool dir: %w", err)
	}

	authn := auth.NewAuthenticator(authority, c.TrustedClientPassword, logger)
	h := NewHandler(authn, store, []byte(c.RelaySecretKey), spoolDir, logger)

	app.echo = api.NewEchoApp(logger)
	app.echo.POST(common.UploadPath, h.Upload)
	app.echo.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "OK") })

	app.health = nodegrpc.NewHealthServer(c.EndpointAddrGRPC, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP and gRPC health until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting storage node...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, app.echo, app.config.EndpointAddrHTTP, app.logger)
	})
	g.Go(func() error {
		return app.health.Run(gctx)
	})

	err := g.Wait()
	if cerr := app.rdb.Close(); cerr != nil {
		app.logger.Warn(ctx, "close redis", "error", cerr.Error())
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "storage node stopped", "error", err.Error())
		return err
	}
	app.logger.Info(ctx, "Storage node stopped")
	return nil
}

// Handler exposes the HTTP router, mainly for tests.
func (app *App) Handler() http.Handler {
	return app.echo
}
