package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookvote/internal/config"
	"bookvote/internal/httpx"
	"bookvote/internal/journal"
	"bookvote/internal/ledger"
	"bookvote/internal/logging"
	"bookvote/internal/shelf"
	"bookvote/internal/snapshot"
	"bookvote/internal/web"

	"github.com/gorilla/handlers"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("config", "", "Path to a config file (default ./bookvote.yaml when present)")
	flag.Parse()

	config.LoadEnvFiles()
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	client := ledger.NewClient(ledger.Options{
		GatewayURL: cfg.Ledger.GatewayURL,
		Contract:   cfg.Ledger.Contract,
		Account:    cfg.Ledger.Account,
		Secret:     cfg.Ledger.GatewaySecret,
		RPS:        cfg.Ledger.RPS,
		MaxRetries: cfg.Ledger.MaxRetries,
		Timeout:    cfg.Ledger.Timeout,
		Logger:     logger,
	})

	shelfOpts := shelf.Options{
		Caller:      client.Caller(),
		TTL:         cfg.ShelfTTL,
		LoadTimeout: cfg.ShelfLoadTimeout,
		Logger:      logger,
	}
	webOpts := web.Options{
		Contract:       client.Contract(),
		InternalSecret: cfg.InternalSecret,
		CORSOrigins:    cfg.CORSOrigins,
		Logger:         logger,
	}

	if cfg.JournalEnabled() {
		pool, err := openDB(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info("database connection OK", zap.String("dsn", redactDSN(cfg.DBDSN)))

		repo := journal.NewPostgresRepo(pool, 3*time.Second)
		shelfOpts.Journal = repo
		webOpts.Journal = repo
		webOpts.DB = repo
	}

	if cfg.SnapshotPath != "" {
		store, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer store.Close()
		shelfOpts.Snapshots = store
		shelfOpts.SnapshotKey = snapshot.KeyFor(client.Contract())
	}

	books := shelf.New(client, shelfOpts)
	if ok, err := books.Warm(ctx); err != nil {
		logger.Warn("warm from snapshot failed", zap.Error(err))
	} else if ok {
		logger.Info("serving snapshot until the first ledger load")
	}

	webOpts.Shelf = books
	limiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           buildHandler(cfg, web.NewRouter(webOpts), limiter, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Ledger.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The first load runs in the background so the listener comes up at once.
		if err := books.Refresh(gctx, true); err != nil {
			logger.Warn("initial load failed", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", cfg.AppAddr), zap.String("contract", client.Contract()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildHandler wraps the router in the middleware chain, outermost first.
func buildHandler(cfg *config.Config, router http.Handler, limiter *httpx.RateLimitMiddleware, logger *zap.Logger) http.Handler {
	var h http.Handler = router
	h = handlers.CompressHandler(h)
	h = limiter.Middleware(h)
	h = httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes)(h)
	h = httpx.SecurityHeadersMiddleware(cfg.EnableHSTS)(h)
	h = httpx.RecoveryMiddleware(logger)(h)
	h = httpx.AccessLogMiddleware(logger)(h)
	h = httpx.RequestIDMiddleware(h)
	return handlers.ProxyHeaders(h)
}

func openDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", redactDSN(dsn), err)
	}
	return pool, nil
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
