// Package server wires the file store together: catalog, cache, storage
// backend, services and the HTTP API. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/filestore/internal/logging"
	"github.com/dmitrijs2005/filestore/internal/metrics"
	"github.com/dmitrijs2005/filestore/internal/server/cache"
	"github.com/dmitrijs2005/filestore/internal/server/config"
	"github.com/dmitrijs2005/filestore/internal/server/httpapi"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filestore/internal/server/services"
	"github.com/dmitrijs2005/filestore/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []func() error
	server  *httpapi.Server
}

// OpenDB opens the catalog connection pool. It does not dial.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	app := &App{config: c, logger: logger}

	db, err := OpenDB(c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		app.close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, closeStore := newCacheStore(c)
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	backend, err := newBackend(ctx, c)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	metrics.Register()

	aside := cache.NewAside(store, c.CacheTTL, logger)
	resolver := services.NewResolver(db, rm, aside, c.IDCacheTTL)

	deps := httpapi.Deps{
		Users:    services.NewUserService(db, rm, c),
		Resolver: resolver,
		Mutator:  services.NewMutator(db, rm, backend, logger),
		Archiver: services.NewArchiver(resolver, backend, logger),
		Health:   services.NewHealthService(db, rm, aside.Store(), c.HealthTimeout),
		Backend:  backend,
	}
	app.server = httpapi.NewServer(c.HTTPAddr, logger, deps, c.MaxUploadSize)

	logger.Info(ctx, "app configured",
		"storage", c.StorageBackend, "cache", c.CacheBackend, "address", c.HTTPAddr)
	return app, nil
}

// newCacheStore returns the configured store and, for redis, a func that
// closes its connection pool.
func newCacheStore(c *config.Config) (cache.Store, func() error) {
	if c.CacheBackend == config.CacheMemory {
		return cache.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	return cache.NewRedisStore(client), client.Close
}

func newBackend(ctx context.Context, c *config.Config) (storage.Backend, error) {
	switch c.StorageBackend {
	case config.StorageFS:
		b, err := storage.NewLocalBackend(c.FilesRoot)
		if err != nil {
			return nil, err
		}
		return storage.Instrumented(b, config.StorageFS), nil
	case config.StorageS3:
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, err
		}
		return storage.Instrumented(storage.NewS3Backend(client, c.S3Bucket), config.StorageS3), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until a termination signal arrives or the server fails, then
// releases the database and cache connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.close(); err != nil {
		app.logger.Error(ctx, "shutdown", "error", err)
	}
	app.logger.Info(ctx, "Stopped")
}

func (app *App) close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		errs = append(errs, app.closers[i]())
	}
	app.closers = nil
	return errors.Join(errs...)
}
