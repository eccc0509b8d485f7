package handler

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ecitizenpay/internal/metrics"
	"ecitizenpay/internal/models"
	"ecitizenpay/internal/payment"
)

// CallbackStore persists callback outcomes. *repository.CallbackRepository
// satisfies it.
type CallbackStore interface {
	Record(ctx context.Context, rec *models.CallbackRecord) (bool, error)
}

// AttemptResolver moves a payment attempt to its final status.
// *repository.AttemptRepository satisfies it.
type AttemptResolver interface {
	Resolve(ctx context.Context, checkoutID, status string, resultCode *int, resultDesc string) (bool, error)
}

// Reporter is told about every newly recorded callback.
type Reporter interface {
	PaymentReceived(rec *models.CallbackRecord)
}

// CallbackHandler receives asynchronous STK results from Daraja.
type CallbackHandler struct {
	secret   string
	store    CallbackStore
	attempts AttemptResolver
	reporter Reporter
	logger   *zap.Logger
}

// NewCallbackHandler creates a callback handler. attempts and reporter may be nil.
func NewCallbackHandler(secret string, store CallbackStore, attempts AttemptResolver, reporter Reporter, logger *zap.Logger) *CallbackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CallbackHandler{
		secret:   secret,
		store:    store,
		attempts: attempts,
		reporter: reporter,
		logger:   logger,
	}
}

// Authorized reports whether key matches the configured secret. An empty
// secret matches nothing.
func (h *CallbackHandler) Authorized(key string) bool {
	if h.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.secret)) == 1
}

// RequireSecret rejects requests whose ?key= does not match. It runs ahead
// of deduplication so forged deliveries never claim a dedup slot.
func (h *CallbackHandler) RequireSecret() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key := c.QueryParam("key"); !h.Authorized(key) {
				return h.forbidden(c, key)
			}
			return next(c)
		}
	}
}

// Handle processes POST /callback?key=<secret>.
func (h *CallbackHandler) Handle(c echo.Context) error {
	if key := c.QueryParam("key"); !h.Authorized(key) {
		return h.forbidden(c, key)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, payment.MaxCallbackBody))
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, models.CallbackAck{ResultCode: 1, ResultDesc: "Unreadable body"})
	}
	h.logger.Info("M-Pesa callback received", zap.ByteString("payload", body))

	result, err := payment.ParseCallback(body)
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("bad_request").Inc()
		h.logger.Warn("Malformed M-Pesa callback", zap.Error(err))
		return c.JSON(http.StatusBadRequest, models.CallbackAck{ResultCode: 1, ResultDesc: "Invalid callback payload"})
	}

	h.record(c.Request().Context(), result, body)
	return c.JSON(http.StatusOK, models.CallbackAck{ResultCode: 0, ResultDesc: "Success"})
}

func (h *CallbackHandler) forbidden(c echo.Context, key string) error {
	metrics.CallbacksTotal.WithLabelValues("forbidden").Inc()
	h.logger.Warn("Unauthorized callback attempt",
		zap.String("key", key),
		zap.String("ip", c.RealIP()),
	)
	return c.String(http.StatusForbidden, "Forbidden: Invalid secret key")
}

// record stores the outcome. Nothing here may change the acknowledgement,
// otherwise Daraja keeps redelivering.
func (h *CallbackHandler) record(ctx context.Context, result *payment.CallbackResult, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			metrics.CallbackPersistFailuresTotal.Inc()
			h.logger.Error("Callback processing panicked", zap.Any("panic", r))
		}
	}()

	rec := &models.CallbackRecord{
		CheckoutRequestID: result.CheckoutRequestID,
		MerchantRequestID: result.MerchantRequestID,
		ResultCode:        result.ResultCode,
		ResultDesc:        result.ResultDesc,
		Amount:            result.Amount(),
		ReceiptNo:         result.Receipt(),
		TransactionDate:   result.TransactionDate(),
		Phone:             result.PhoneNumber(),
		RawPayload:        string(raw),
		CreatedAt:         time.Now().UTC(),
	}

	// A callback without a usable result code still ends the push, but it
	// is never a payment.
	status := models.AttemptFailed
	if rec.Succeeded() {
		status = models.AttemptPaid
	}

	inserted, err := h.store.Record(ctx, rec)
	switch {
	case err != nil:
		metrics.CallbackPersistFailuresTotal.Inc()
		metrics.CallbacksTotal.WithLabelValues("persist_error").Inc()
		h.logger.Error("Failed to store M-Pesa callback",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
			zap.Error(err),
		)
	case !inserted:
		metrics.CallbacksTotal.WithLabelValues("duplicate").Inc()
		h.logger.Info("Duplicate M-Pesa callback ignored",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
		)
		return
	default:
		metrics.CallbacksTotal.WithLabelValues(status).Inc()
		h.logger.Info("M-Pesa callback stored",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
			zap.String("result_code", rec.ResultCodeText()),
			zap.String("receipt", rec.ReceiptNo),
		)
	}

	h.resolveAttempt(ctx, rec, status)
	if err == nil && h.reporter != nil {
		h.reporter.PaymentReceived(rec)
	}
}

func (h *CallbackHandler) resolveAttempt(ctx context.Context, rec *models.CallbackRecord, status string) {
	if h.attempts == nil {
		return
	}
	updated, err := h.attempts.Resolve(ctx, rec.CheckoutRequestID, status, rec.ResultCode, rec.ResultDesc)
	if err != nil {
		h.logger.Error("Failed to update payment attempt",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
			zap.Error(err),
		)
		return
	}
	if !updated {
		h.logger.Debug("No open payment attempt for callback",
			zap.String("checkout_request_id", rec.CheckoutRequestID),
		)
	}
}
