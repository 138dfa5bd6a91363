// Package server wires the gateway: session authority, file registry, backend
// discovery, the relay and the HTTP API. It handles graceful shutdown on
// SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophrelay/internal/filex"
	"github.com/dmitrijs2005/gophrelay/internal/logging"
	"github.com/dmitrijs2005/gophrelay/internal/server/api"
	"github.com/dmitrijs2005/gophrelay/internal/server/auth"
	"github.com/dmitrijs2005/gophrelay/internal/server/config"
	"github.com/dmitrijs2005/gophrelay/internal/server/discovery"
	"github.com/dmitrijs2005/gophrelay/internal/server/relay"
	"github.com/dmitrijs2005/gophrelay/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophrelay/internal/server/secrets"
	"github.com/dmitrijs2005/gophrelay/internal/server/services"
	"github.com/dmitrijs2005/gophrelay/internal/server/sessions"
	goerrors "github.com/go-errors/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const closeTimeout = 5 * time.Second

// newSecretsClient is a seam for testing credential resolution.
var newSecretsClient = func(ctx context.Context, region string) (secrets.SecretsManagerAPI, error) {
	return secrets.NewSecretsManagerClient(ctx, region)
}

// openRepositories is a seam for testing startup without a database.
var openRepositories = repomanager.Open

type App struct {
	config   *config.Config
	logger   logging.Logger
	rdb      *redis.Client
	repos    repomanager.RepositoryManager
	registry *discovery.HealthRegistry
	server   *api.Server
}

// NewApp validates c and connects every dependency. A trusted-client
// credential rejected by the session authority aborts startup.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	credential, err := resolveCredential(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("trusted client credential: %w", err)
	}

	app.rdb = redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	authority := sessions.NewRedisAuthority(app.rdb, c.SessionKeyPrefix)

	if err := authority.VerifyTrusted(ctx, credential); err != nil {
		app.close(ctx)
		return nil, goerrors.WrapPrefix(err, "unable to login with trusted client credential", 0)
	}

	app.repos, err = openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := app.repos.RunMigrations(ctx); err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("migration error: %w", err)
	}

	selector, err := app.newSelector()
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	spoolDir, err := filex.EnsureDir(c.SpoolDir)
	if err != nil {
		app.close(ctx)
		return nil, fmt.Errorf("spool dir: %w", err)
	}

	r := relay.New(selector, relay.Options{
		AttemptTimeout: c.AttemptTimeout,
		SpoolDir:       spoolDir,
		MaxPayloadSize: c.MaxPayloadSize,
		SecretKey:      []byte(c.RelaySecretKey),
	}, logger)

	uploads := services.NewUploadService(r, app.repos.Files(), logger)
	authn := auth.NewAuthenticator(authority, credential, logger)
	app.server = api.NewServer(c.EndpointAddrHTTP, logger, authority, authn, uploads)

	return app, nil
}

func resolveCredential(ctx context.Context, c *config.Config) (string, error) {
	if c.TrustedClientSecretID == "" {
		return c.TrustedClientPassword, nil
	}
	client, err := newSecretsClient(ctx, c.AWSRegion)
	if err != nil {
		return "", err
	}
	return secrets.NewResolver(client).Resolve(ctx, c.TrustedClientSecretID)
}

func (app *App) newSelector() (discovery.Selector, error) {
	if app.config.Discovery != config.DiscoveryHealth {
		return discovery.NewStatic(app.config.Backends), nil
	}
	reg, err := discovery.NewHealthRegistry(app.config.Backends, app.config.HealthPort,
		app.config.HealthCheckInterval, app.config.AttemptTimeout, app.logger)
	if err != nil {
		return nil, fmt.Errorf("health registry: %w", err)
	}
	app.registry = reg
	return reg, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives, then closes the
// Redis and database handles.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx)
	})
	if app.registry != nil {
		g.Go(func() error {
			return app.registry.Run(gctx)
		})
	}

	err := g.Wait()
	app.close(context.WithoutCancel(ctx))

	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "app stopped", "error", err.Error())
		return err
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	if app.repos != nil {
		if err := app.repos.Close(ctx); err != nil {
			app.logger.Warn(ctx, "close repositories", "error", err.Error())
		}
	}
	if app.rdb != nil {
		if err := app.rdb.Close(); err != nil {
			app.logger.Warn(ctx, "close redis", "error", err.Error())
		}
	}
}
