package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/market"
	"fintrack/internal/ocr"
	"fintrack/internal/receipt"
	"fintrack/internal/remoteconfig"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger.Logger)
	defer cancel()

	be, err := cli.InitBackend(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	categories := services.NewCategoryService(be.Store, logger.Logger)
	transactions := services.NewTransactionService(be.Store, be.Publisher, logger.Logger)
	budgets := services.NewBudgetService(be.Store)
	stats := services.NewStatsService(be.Store, budgets)

	// Serving starts right away; readiness waits for the repair pass.
	repair := services.NewRepairService(be.Store, logger.Logger).RunAtStartup(ctx)

	keys := remoteconfig.New(cfg.RemoteConfigURL, cfg.RemoteConfigTTL, cfg.HTTPClientTimeout,
		remoteconfig.Defaults(cfg.OCRAPIKey, cfg.MarketAPIKey), logger.Logger)

	recognizer := ocr.NewClient(cfg.OCRAPIURL, cfg.OCRLanguage, keys.Key(remoteconfig.KeyOCRAPIKey), cfg.HTTPClientTimeout, logger.Logger)
	importer := receipt.NewImporter(recognizer, cfg.ImportSessionTTL, logger.Logger)
	marketClient := market.NewClient(cfg.MarketAPIURL, keys.Key(remoteconfig.KeyMarketAPIKey), cfg.HTTPClientTimeout, logger.Logger)

	caches := cache.NewManager(logger.Logger)
	caches.Register("import_sessions", importer.Sessions())
	caches.Register("market_listings", marketClient.Listings())
	caches.StartCleanup(time.Minute)

	pinger, _ := be.Store.(interface{ Ping(context.Context) error })
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Categories:   categories,
		Transactions: transactions,
		Budgets:      budgets,
		Stats:        stats,
		Importer:     importer,
		Market:       marketClient,
		Ready: func(ctx context.Context) error {
			if err := repair.Ready(ctx); err != nil {
				return err
			}
			if pinger != nil {
				return pinger.Ping(ctx)
			}
			return nil
		},
	}, logger.WithComponent(log.ComponentHTTP), apphttp.DefaultOptions())

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			cancel()
		}
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	<-ctx.Done()

	cli.Shutdown(logger.Logger, 30*time.Second,
		srv.Shutdown,
		func(context.Context) error {
			caches.Stop()
			return nil
		},
		func(context.Context) error { return be.Close() },
	)
}
