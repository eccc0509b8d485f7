package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ecitizenpay/internal/bootstrap"
	"ecitizenpay/internal/catalog"
	"ecitizenpay/internal/config"
	cronpkg "ecitizenpay/internal/cron"
	"ecitizenpay/internal/metrics"
	"ecitizenpay/internal/middleware"
	"ecitizenpay/internal/payment"
	"ecitizenpay/internal/pkg/telegram"
	"ecitizenpay/internal/repository"
	"ecitizenpay/internal/router"
)

func serveCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payment HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(logger)
		},
	}
}

func runServe(logger *zap.Logger) error {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// --- Service catalog ---
	cat, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("load service catalog: %w", err)
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("bootstrap database schema: %w", err)
	}

	metrics.Register()

	// --- Daraja client ---
	gateway := payment.NewClient(cfg.Mpesa, logger)

	// --- Operator notifications ---
	notifier, err := telegram.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)
	if err != nil {
		logger.Warn("Telegram notifications disabled", zap.Error(err))
	}

	// --- Callback Deduper (Redis with in-memory fallback) ---
	deduper, dedupeErr := middleware.NewCallbackDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		cfg.Redis.DedupTTL,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for callback dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true
	router.Setup(e, cfg, db, cat, gateway, notifier, deduper, logger)

	// --- Cron Scheduler ---
	var scheduler *cronpkg.Scheduler
	if cfg.Cron.Enabled {
		var reporter cronpkg.Reporter
		if notifier != nil {
			reporter = notifier
		}
		scheduler = cronpkg.New(repository.NewAttemptRepository(db), reporter, cfg.Cron.AttemptTimeout, logger)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting ecitizenpay server",
			zap.String("addr", addr),
			zap.String("mpesa_env", cfg.Mpesa.Environment),
			zap.Int("services", len(cat.All())),
		)
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}
