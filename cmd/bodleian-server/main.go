// Package main is the entry point for the Bodleian server.
// Bodleian is a library-management backend: a book catalog, registered
// borrowers, and a borrow/return transaction ledger with due dates and
// late fees.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/config"
	"github.com/bodleian-io/bodleian/internal/handler"
	"github.com/bodleian-io/bodleian/internal/lock"
	"github.com/bodleian-io/bodleian/internal/logging"
	"github.com/bodleian-io/bodleian/internal/metrics"
	"github.com/bodleian-io/bodleian/internal/repository"
	"github.com/bodleian-io/bodleian/internal/repository/postgres"
	"github.com/bodleian-io/bodleian/internal/repository/sqlite"
	"github.com/bodleian-io/bodleian/internal/service"
	"github.com/bodleian-io/bodleian/internal/session"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	logger := logging.New(cfg.Logging)

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting bodleian server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	repos, closeDB, err := openDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	sessions, locker, closeRedis, err := openSessionBackend(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	m := metrics.New()

	userSvc := service.NewUserService(repos.Users, logger)
	authSvc := service.NewAuthService(userSvc, sessions, cfg.Session.TTL, logger)
	catalogSvc := service.NewCatalogService(repos.Books, repos.Users, repos.Transactions, cfg.Loans.DailyFineRate, logger)
	ledgerSvc := service.NewLedgerService(repos, locker, m, service.LedgerConfig{
		LoanPeriod:    cfg.Loans.Period(),
		DailyFineRate: cfg.Loans.DailyFineRate,
		LockTTL:       cfg.Loans.LockTTL,
	}, logger)

	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler: handler.NewAuthHandler(handler.AuthConfig{
			UserService: userSvc,
			AuthService: authSvc,
			CookieName:  cfg.Session.CookieName,
			SessionTTL:  cfg.Session.TTL,
			Logger:      logger,
		}),
		CatalogHandler: handler.NewCatalogHandler(catalogSvc, logger),
		LedgerHandler:  handler.NewLedgerHandler(ledgerSvc, logger),
		AdminHandler:   handler.NewAdminHandler(catalogSvc, userSvc, logger),
		Middleware:     handler.NewMiddleware(authSvc, cfg.Session.CookieName, m, logger),
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}

// openDatabase opens the configured backend, applies migrations, and
// returns the repository bundle.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*repository.Repositories, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Path,
			JournalMode:     cfg.JournalMode,
			BusyTimeout:     cfg.BusyTimeout,
			SynchronousMode: cfg.SynchronousMode,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlite.NewRepositories(db), func() { _ = db.Close() }, nil

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.NewRepositories(db), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// openSessionBackend wires the session store and the per-book locker.
// With Redis enabled both are shared across instances; otherwise they are
// process local.
func openSessionBackend(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (session.Store, lock.Locker, func(), error) {
	if !cfg.Enabled {
		logger.Info().Msg("using in-memory sessions and locks")
		return session.NewMemoryStore(), lock.NewMemoryLocker(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr()).Msg("connected to redis")
	return session.NewRedisStore(rdb), lock.NewRedisLocker(rdb), func() { _ = rdb.Close() }, nil
}
