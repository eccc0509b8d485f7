package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecitizenpay/internal/catalog"
	"ecitizenpay/internal/checkout"
	"ecitizenpay/internal/models"
)

// Processor runs the payment request flow. *checkout.Service satisfies it.
type Processor interface {
	Process(ctx context.Context, req models.PaymentRequest) checkout.Outcome
}

// PaymentHandler serves the citizen-facing payment endpoints.
type PaymentHandler struct {
	checkout Processor
	catalog  *catalog.Catalog
	logger   *zap.Logger
}

func NewPaymentHandler(p Processor, cat *catalog.Catalog, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: p, catalog: cat, logger: logger}
}

// ProcessPayment handles /process-payment. It is mounted for every method
// so that anything but POST gets a JSON 405.
func (h *PaymentHandler) ProcessPayment(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return c.JSON(http.StatusMethodNotAllowed, models.PaymentResponse{
			Success: false,
			Message: "Method not allowed",
		})
	}

	var req models.PaymentRequest
	if err := c.Bind(&req); err != nil {
		// an unparseable body is treated like an empty form
		h.logger.Debug("Failed to bind payment request", zap.Error(err))
		req = models.PaymentRequest{}
	}

	out := h.checkout.Process(c.Request().Context(), req)

	resp := models.PaymentResponse{
		Success: out.Success(),
		Message: out.Message,
	}
	if out.Data != nil {
		resp.Data = out.Data
	}
	if len(out.ErrorDetails) > 0 {
		resp.ErrorDetails = out.ErrorDetails
	}
	return c.JSON(statusFor(out.Kind), resp)
}

func statusFor(k checkout.Kind) int {
	switch k {
	case checkout.KindOK, checkout.KindDeclined:
		return http.StatusOK
	case checkout.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Services lists the payable services for the browser form.
// GET /services
func (h *PaymentHandler) Services(c echo.Context) error {
	return c.JSON(http.StatusOK, models.PaymentResponse{
		Success: true,
		Message: "Successful",
		Data:    h.catalog.All(),
	})
}

// AttemptHandler serves operator lookups of payment attempts.
type AttemptHandler struct {
	repos  *Repos
	logger *zap.Logger
}

func NewAttemptHandler(repos *Repos, logger *zap.Logger) *AttemptHandler {
	return &AttemptHandler{repos: repos, logger: logger}
}

// List returns attempts newest first.
// GET /api/payments?limit=&page=&status=
func (h *AttemptHandler) List(c echo.Context) error {
	limit, page := pageParams(c)
	status := c.QueryParam("status")

	attempts, total, err := h.repos.Attempt.FindAll(c.Request().Context(), limit, page, status)
	if err != nil {
		h.logger.Error("Failed to list payment attempts", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "Failed to retrieve payments")
	}
	return successResponse(c, "Successful", paginatedResponse(attempts, total, page, limit))
}

// Get returns one attempt together with its callback, if any.
// GET /api/payments/:checkout_id
func (h *AttemptHandler) Get(c echo.Context) error {
	id := c.Param("checkout_id")
	ctx := c.Request().Context()

	attempt, err := h.repos.Attempt.FindByCheckoutID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorResponse(c, http.StatusNotFound, "Payment not found")
	}
	if err != nil {
		h.logger.Error("Failed to load payment attempt", zap.String("checkout_request_id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "Failed to retrieve payment")
	}

	obj := map[string]interface{}{"attempt": attempt}
	cb, err := h.repos.Callback.FindByCheckoutID(ctx, id)
	switch {
	case err == nil:
		obj["callback"] = cb
	case !errors.Is(err, gorm.ErrRecordNotFound):
		h.logger.Warn("Failed to load callback record", zap.String("checkout_request_id", id), zap.Error(err))
	}
	return successResponse(c, "Successful", obj)
}
