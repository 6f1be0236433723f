// Package server wires the guest access server together: storage, the key
// manager, the identity provider, the public HTTP endpoint and the admin
// gRPC channel. It handles graceful shutdown on SIGINT/SIGTERM/SIGQUIT.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/dmitrijs2005/guestkeeper/internal/server/config"
	"github.com/dmitrijs2005/guestkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/guestkeeper/internal/server/identity"
	"github.com/dmitrijs2005/guestkeeper/internal/server/keys"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/guestkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/guestkeeper/internal/server/grpc"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	redis      *redis.Client
	httpServer *httpapi.Server
	grpcServer *gs.GRPCServer
}

// newKeyStorage is a seam so tests can run NewApp without S3.
var newKeyStorage = func(ctx context.Context, c *config.Config) (keys.Storage, error) {
	switch c.KeyStorage {
	case config.KeyStorageFile, "":
		return keys.NewFileStorage(c.KeyDir), nil
	case config.KeyStorageS3:
		return keys.NewS3Storage(ctx, keys.S3Config{
			Region:   c.S3Region,
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Endpoint: c.S3BaseEndpoint,
			Bucket:   c.S3Bucket,
			Prefix:   c.S3Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown key storage %q", c.KeyStorage)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewApp opens storage, runs migrations and loads (or generates) the signing
// key. Any failure here is fatal: the server never starts without a key.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	level := parseLevel(c.LogLevel)
	logger := logging.NewJSONLogger(level)
	if level <= slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app := &App{config: c, logger: logger, db: db}

	if err := app.build(ctx, rm); err != nil {
		app.close(ctx)
		return nil, err
	}
	return app, nil
}

func (app *App) build(ctx context.Context, rm *repomanager.SQLRepositoryManager) error {
	c := app.config

	if err := rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	storage, err := newKeyStorage(ctx, c)
	if err != nil {
		return fmt.Errorf("key storage init error: %w", err)
	}
	km := keys.NewManager(storage, c.KeyBits, c.KeyPassphrase, app.logger)
	if err := km.LoadOrGenerate(ctx); err != nil {
		return fmt.Errorf("key manager error: %w", err)
	}

	clock := clockx.Real()
	provider := identity.NewLocalProvider(app.db, rm, []byte(c.SessionSecret), clock, app.logger)

	issuer := services.NewIssuer(app.db, rm, km, provider, clock, c, app.logger)
	redeemer := services.NewRedeemer(app.db, rm, km, provider, clock, c, app.logger)
	sweeper := services.NewSweeper(app.db, rm, provider, clock, c, app.logger)
	admin := services.NewAdminService(app.db, rm, provider, issuer, sweeper, clock, c, app.logger)

	var middleware []gin.HandlerFunc
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		middleware = append(middleware, httpapi.RateLimit(app.redis, c.RateLimitPerSecond, clock, app.logger))
	}
	router := httpapi.NewRouter(httpapi.NewHandler(redeemer, app.logger), provider, middleware...)
	app.httpServer = httpapi.NewServer(c.EndpointAddrHTTP, router, app.logger)

	app.grpcServer, err = gs.NewGRPCServer(c.EndpointAddrGRPC, app.logger, admin, c.AdminSecret, clock)
	if err != nil {
		return fmt.Errorf("grpc server init error: %w", err)
	}
	return nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

type runner interface {
	Run(ctx context.Context) error
}

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
		cancelFunc()
	}
}

// Run serves until a signal arrives or either server fails, then releases
// the database and redis connections.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "http", app.httpServer)
	}()
	go func() {
		defer wg.Done()
		app.start(ctx, cancelFunc, "grpc", app.grpcServer)
	}()

	wg.Wait()
	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}
}
