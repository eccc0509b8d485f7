// Package checkout validates payment requests against the service catalog
// and hands accepted ones to the M-Pesa gateway.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ecitizenpay/internal/catalog"
	"ecitizenpay/internal/metrics"
	"ecitizenpay/internal/models"
	"ecitizenpay/internal/payment"
	"ecitizenpay/internal/pkg/phone"
)

// Kind discriminates an Outcome.
type Kind int

const (
	// KindOK means the gateway accepted the push.
	KindOK Kind = iota
	// KindValidation means the request was refused before reaching the gateway.
	KindValidation
	// KindDeclined means the gateway could not be used or said no.
	KindDeclined
	// KindSystem is an unexpected internal fault.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindValidation:
		return "validation"
	case KindDeclined:
		return "declined"
	default:
		return "system"
	}
}

// User-facing messages.
const (
	MsgFieldsRequired   = "All fields are required"
	MsgInvalidService   = "Invalid service type selected"
	MsgAmountMismatch   = "Amount does not match service cost"
	MsgInvalidPhone     = "Invalid phone number format. Use 07XXXXXXXX or 2547XXXXXXXX"
	MsgPushSent         = "Payment request sent successfully. Please check your phone."
	MsgPushFailed       = "Payment request failed"
	MsgSystemError      = "A system error occurred. Please try again later."
	maxCustomerNameRune = 100
)

// Outcome is the result of processing one payment request.
type Outcome struct {
	Kind         Kind
	Message      string
	Data         *models.PaymentData
	ErrorDetails map[string]interface{}
}

// Success reports whether the push was accepted.
func (o Outcome) Success() bool {
	return o.Kind == KindOK
}

// Gateway initiates STK pushes. *payment.Client satisfies it.
type Gateway interface {
	InitiatePush(ctx context.Context, phone string, amount int, accountReference, description string) (*payment.PushResult, error)
}

// AttemptStore persists accepted pushes. *repository.AttemptRepository
// satisfies it.
type AttemptStore interface {
	Create(ctx context.Context, a *models.PaymentAttempt) error
}

// Service implements the payment request flow.
type Service struct {
	catalog  *catalog.Catalog
	gateway  Gateway
	attempts AttemptStore
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithAttemptStore records every accepted push.
func WithAttemptStore(s AttemptStore) Option {
	return func(svc *Service) {
		svc.attempts = s
	}
}

// WithClock overrides the time source used for account references.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

// NewService builds a checkout service.
func NewService(cat *catalog.Catalog, gw Gateway, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		catalog: cat,
		gateway: gw,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process validates req and, when valid, initiates the STK push. It never
// panics; unexpected faults come back as KindSystem.
func (s *Service) Process(ctx context.Context, req models.PaymentRequest) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Payment processing panicked", zap.Any("panic", r))
			out = Outcome{Kind: KindSystem, Message: MsgSystemError}
		}
		metrics.PaymentRequestsTotal.WithLabelValues(out.Kind.String()).Inc()
	}()

	cmd, svc, failure := s.validate(req)
	if failure != "" {
		s.logger.Info("Payment request rejected",
			zap.String("service_type", req.ServiceType),
			zap.String("reason", failure),
		)
		return Outcome{Kind: KindValidation, Message: failure}
	}

	s.logger.Info("Payment attempt",
		zap.String("service_type", svc.Key),
		zap.String("phone", cmd.Phone),
		zap.Int("amount", cmd.Amount),
		zap.String("customer", cmd.CustomerName),
	)

	res, err := s.gateway.InitiatePush(ctx, cmd.Phone, cmd.Amount, cmd.AccountReference, cmd.Description)
	if err != nil {
		var gwErr *payment.Error
		if errors.As(err, &gwErr) {
			s.logger.Warn("STK push failed",
				zap.String("kind", string(gwErr.Kind)),
				zap.String("account_reference", cmd.AccountReference),
				zap.Error(err),
			)
			msg := gwErr.Message
			if msg == "" {
				msg = MsgPushFailed
			}
			return Outcome{Kind: KindDeclined, Message: msg, ErrorDetails: gwErr.Raw}
		}
		s.logger.Error("Payment processing error", zap.Error(err))
		return Outcome{Kind: KindSystem, Message: MsgSystemError}
	}

	s.logger.Info("STK push accepted",
		zap.String("checkout_request_id", res.CheckoutRequestID),
		zap.String("account_reference", cmd.AccountReference),
	)
	s.recordAttempt(ctx, svc, cmd, res)

	return Outcome{
		Kind:    KindOK,
		Message: MsgPushSent,
		Data: &models.PaymentData{
			ServiceName:       svc.Name,
			Amount:            cmd.Amount,
			PhoneNumber:       cmd.Phone,
			AccountReference:  cmd.AccountReference,
			CheckoutRequestID: res.CheckoutRequestID,
		},
	}
}

// PushCommand is a validated request ready for the gateway.
type PushCommand struct {
	Phone            string
	Amount           int
	AccountReference string
	Description      string
	CustomerName     string
}

// validate applies the checks in order and returns the first failure message.
func (s *Service) validate(req models.PaymentRequest) (PushCommand, models.ServiceDefinition, string) {
	serviceKey := strings.TrimSpace(req.ServiceType)
	rawPhone := strings.TrimSpace(req.PhoneNumber)
	name := strings.TrimSpace(req.CustomerName)
	rawAmount := strings.TrimSpace(req.Amount)

	if serviceKey == "" || rawPhone == "" || name == "" || rawAmount == "" || rawAmount == "0" {
		return PushCommand{}, models.ServiceDefinition{}, MsgFieldsRequired
	}

	svc, ok := s.catalog.Lookup(serviceKey)
	if !ok {
		return PushCommand{}, models.ServiceDefinition{}, MsgInvalidService
	}

	amount, ok := wholeAmount(rawAmount)
	if !ok || amount != svc.AmountKES {
		return PushCommand{}, svc, MsgAmountMismatch
	}

	msisdn, err := phone.Normalize(rawPhone)
	if err != nil {
		return PushCommand{}, svc, MsgInvalidPhone
	}

	name = truncateRunes(name, maxCustomerNameRune)
	return PushCommand{
		Phone:            msisdn,
		Amount:           svc.AmountKES,
		AccountReference: AccountReference(svc.Code, s.now(), msisdn),
		Description:      svc.Name + " - " + name,
		CustomerName:     name,
	}, svc, ""
}

// AccountReference builds {code}_{yyyyMMddHHmmss}_{last 4 digits} using
// Nairobi wall-clock time.
func AccountReference(code string, at time.Time, msisdn string) string {
	return fmt.Sprintf("%s_%s_%s", code, payment.Timestamp(at), phone.Last4(msisdn))
}

// recordAttempt is best effort: the payer already has the prompt on their
// phone, so a storage failure must not turn into an error response.
func (s *Service) recordAttempt(ctx context.Context, svc models.ServiceDefinition, cmd PushCommand, res *payment.PushResult) {
	if s.attempts == nil {
		return
	}
	attempt := &models.PaymentAttempt{
		ID:                uuid.NewString(),
		CheckoutRequestID: res.CheckoutRequestID,
		MerchantRequestID: res.MerchantRequestID,
		ServiceKey:        svc.Key,
		ServiceCode:       svc.Code,
		CustomerName:      cmd.CustomerName,
		Phone:             cmd.Phone,
		Amount:            cmd.Amount,
		AccountReference:  cmd.AccountReference,
		Status:            models.AttemptPending,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		s.logger.Error("Failed to record payment attempt",
			zap.String("checkout_request_id", res.CheckoutRequestID),
			zap.Error(err),
		)
	}
}

// wholeAmount parses a submitted amount such as "2000" or "2000.00". Amounts
// with a fractional part are not whole shillings and never match.
func wholeAmount(raw string) (int, bool) {
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
