package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/auth"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.MustSetup(log.ComponentApp, (*config.Config).Validate)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	authSvc, err := auth.NewService(be.Store, cfg.JWTSecret,
		auth.WithTTL(cfg.TokenTTL),
		auth.WithLogger(logger))
	if err != nil {
		return err
	}

	// A zero TTL disables list caching.
	var lists *cache.LRUCache[int64, []core.Transaction]
	caches := cache.NewManager(logger)
	if cfg.SummaryCacheTTL > 0 {
		lists = cache.NewLRUCache[int64, []core.Transaction](1000, cfg.SummaryCacheTTL)
		caches.Register(lists)
	}

	var publisher services.EventPublisher
	if be.Publisher != nil {
		publisher = be.Publisher
	}
	txs := services.NewTransactionService(be.Store, publisher, lists, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:               authSvc,
		Transactions:       txs,
		Store:              be.Store,
		Lists:              lists,
		Logger:             logger,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if lists != nil {
		g.Go(func() error {
			caches.Run(gctx, cfg.SummaryCacheTTL)
			return nil
		})
	}
	g.Go(func() error {
		srv.RunMaintenance(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
