package router

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecitizenpay/internal/catalog"
	"ecitizenpay/internal/checkout"
	"ecitizenpay/internal/config"
	"ecitizenpay/internal/handler"
	"ecitizenpay/internal/handler/api"
	"ecitizenpay/internal/middleware"
	"ecitizenpay/internal/pkg/telegram"
	"ecitizenpay/internal/repository"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	cfg *config.Config,
	db *gorm.DB,
	cat *catalog.Catalog,
	gateway checkout.Gateway,
	notifier *telegram.Notifier,
	deduper middleware.CallbackDeduper,
	logger *zap.Logger,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Metrics())
	e.Use(middleware.CORS())

	// Repositories
	repos := &api.Repos{
		Attempt:  repository.NewAttemptRepository(db),
		Callback: repository.NewCallbackRepository(db),
	}

	// Handlers
	checkoutSvc := checkout.NewService(cat, gateway, logger, checkout.WithAttemptStore(repos.Attempt))
	paymentHandler := api.NewPaymentHandler(checkoutSvc, cat, logger)

	var reporter handler.Reporter
	if notifier != nil {
		reporter = notifier
	}
	callbackHandler := handler.NewCallbackHandler(cfg.Mpesa.CallbackSecret, repos.Callback, repos.Attempt, reporter, logger)

	// Citizen-facing routes
	e.Any("/process-payment", paymentHandler.ProcessPayment)
	e.GET("/services", paymentHandler.Services)

	// Daraja callback: secret check first, then deduplication
	e.POST("/callback", callbackHandler.Handle,
		callbackHandler.RequireSecret(),
		middleware.CallbackDedup(deduper, logger),
	)

	// Operator API
	if cfg.Server.APIKey != "" {
		attemptHandler := api.NewAttemptHandler(repos, logger)
		apiGroup := e.Group("/api")
		apiGroup.Use(middleware.APIAuth(cfg.Server.APIKey))
		apiGroup.GET("/payments", attemptHandler.List)
		apiGroup.GET("/payments/:checkout_id", attemptHandler.Get)
	} else {
		logger.Info("Operator API disabled (API_KEY not set)")
	}

	// Metrics
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
