package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finwise/internal/auth"
	"finwise/internal/backend"
	"finwise/internal/cache"
	"finwise/internal/cli"
	"finwise/internal/core"
	"finwise/internal/export"
	apphttp "finwise/internal/http"
	"finwise/internal/log"
	"finwise/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, logger := cli.MustSetup()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend config", log.FieldError, err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger).CreateBackend(startupCtx, bcfg)
	cancelStartup()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	budgets := services.NewBudgetService(res.Store, core.Thresholds{NearRatio: cfg.BudgetNearRatio}, logger)

	var (
		ledgerOpts   []services.LedgerOption
		cacheManager *cache.Manager
	)
	if cfg.ReportCacheTTL > 0 {
		reports := cache.NewLRUCache[core.Report](1000, cfg.ReportCacheTTL)
		cacheManager = cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
		cacheManager.Register(reports)
		cacheManager.StartCleanup(time.Minute)
		ledgerOpts = append(ledgerOpts, services.WithReportCache(reports))
	}
	if res.Publisher != nil {
		ledgerOpts = append(ledgerOpts, services.WithPublisher(res.Publisher))
	}

	opts := apphttp.Options{
		Ledger:             services.NewLedgerService(res.Store, budgets, logger, ledgerOpts...),
		Budgets:            budgets,
		Accounts:           services.NewAccountService(res.Store, issuer, logger),
		Issuer:             issuer,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Export:             export.Options{CurrencySymbol: cfg.CurrencySymbol, DateFormat: cfg.DateFormat},
	}
	if p, ok := res.Store.(pinger); ok {
		opts.Ready = p.Ping
	}
	srv := apphttp.NewServer(cli.Addr(cfg.Port), opts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if cacheManager != nil {
			cacheManager.Stop()
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting finwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", res.Publisher != nil,
		"report_cache_ttl", cfg.ReportCacheTTL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
