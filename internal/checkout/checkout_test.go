package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecitizenpay/internal/catalog"
	"ecitizenpay/internal/models"
	"ecitizenpay/internal/payment"
)

type fakeGateway struct {
	calls   int
	phone   string
	amount  int
	ref     string
	desc    string
	pushErr error
	panics  bool
}

func (f *fakeGateway) InitiatePush(_ context.Context, phone string, amount int, ref, desc string) (*payment.PushResult, error) {
	f.calls++
	f.phone, f.amount, f.ref, f.desc = phone, amount, ref, desc
	if f.panics {
		panic("boom")
	}
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	return &payment.PushResult{CheckoutRequestID: "ws_CO_1", MerchantRequestID: "m-1"}, nil
}

type fakeStore struct {
	createFn func(ctx context.Context, a *models.PaymentAttempt) error
}

func (f *fakeStore) Create(ctx context.Context, a *models.PaymentAttempt) error {
	return f.createFn(ctx, a)
}

// 07:08:09 UTC is 10:08:09 in Nairobi.
var fixedNow = time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)

func newService(gw Gateway, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(catalog.Default(), gw, zap.NewNop(), opts...)
}

func validRequest() models.PaymentRequest {
	return models.PaymentRequest{
		ServiceType:  "business_permit",
		PhoneNumber:  "0712345678",
		CustomerName: "Jane Wanjiku",
		Amount:       "2000",
	}
}

func TestProcessAccepted(t *testing.T) {
	gw := &fakeGateway{}
	var recorded *models.PaymentAttempt
	store := &fakeStore{createFn: func(_ context.Context, a *models.PaymentAttempt) error {
		recorded = a
		return nil
	}}
	svc := newService(gw, WithAttemptStore(store))

	out := svc.Process(context.Background(), validRequest())
	require.Equal(t, KindOK, out.Kind)
	assert.True(t, out.Success())
	assert.Equal(t, MsgPushSent, out.Message)
	require.NotNil(t, out.Data)
	assert.Equal(t, "Business Permit Application", out.Data.ServiceName)
	assert.Equal(t, 2000, out.Data.Amount)
	assert.Equal(t, "254712345678", out.Data.PhoneNumber)
	assert.Equal(t, "BP001_20240305100809_5678", out.Data.AccountReference)
	assert.Equal(t, "ws_CO_1", out.Data.CheckoutRequestID)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, "254712345678", gw.phone)
	assert.Equal(t, 2000, gw.amount)
	assert.Equal(t, "Business Permit Application - Jane Wanjiku", gw.desc)

	require.NotNil(t, recorded)
	assert.Equal(t, models.AttemptPending, recorded.Status)
	assert.Equal(t, "ws_CO_1", recorded.CheckoutRequestID)
	assert.Equal(t, "business_permit", recorded.ServiceKey)
	assert.Len(t, recorded.ID, 36)
}

func TestProcessValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PaymentRequest)
		want   string
	}{
		{"missing phone", func(r *models.PaymentRequest) { r.PhoneNumber = "" }, MsgFieldsRequired},
		{"blank name", func(r *models.PaymentRequest) { r.CustomerName = "   " }, MsgFieldsRequired},
		{"zero amount", func(r *models.PaymentRequest) { r.Amount = "0" }, MsgFieldsRequired},
		{"unknown service before bad phone", func(r *models.PaymentRequest) {
			r.ServiceType = "unknown_service"
			r.PhoneNumber = "123"
		}, MsgInvalidService},
		{"amount mismatch before bad phone", func(r *models.PaymentRequest) {
			r.Amount = "1999"
			r.PhoneNumber = "123"
		}, MsgAmountMismatch},
		{"non numeric amount", func(r *models.PaymentRequest) { r.Amount = "2000abc" }, MsgAmountMismatch},
		{"fractional amount", func(r *models.PaymentRequest) { r.Amount = "2000.50" }, MsgAmountMismatch},
		{"bad phone", func(r *models.PaymentRequest) { r.PhoneNumber = "0812345678" }, MsgInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			req := validRequest()
			tt.mutate(&req)

			out := newService(gw).Process(context.Background(), req)
			assert.Equal(t, KindValidation, out.Kind)
			assert.Equal(t, tt.want, out.Message)
			assert.Nil(t, out.Data)
			assert.Zero(t, gw.calls)
		})
	}
}

func TestProcessAcceptsWholeDecimalAmount(t *testing.T) {
	gw := &fakeGateway{}
	req := validRequest()
	req.Amount = "2000.00"

	out := newService(gw).Process(context.Background(), req)
	require.Equal(t, KindOK, out.Kind)
	assert.Equal(t, 2000, gw.amount)
	assert.Equal(t, 2000, out.Data.Amount)
}

func TestProcessMarriageCertPhoneVariants(t *testing.T) {
	for _, raw := range []string{"+254 712 345 678", "712345678", "254712345678"} {
		gw := &fakeGateway{}
		out := newService(gw).Process(context.Background(), models.PaymentRequest{
			ServiceType:  "marriage_cert",
			PhoneNumber:  raw,
			CustomerName: "Otieno",
			Amount:       "500",
		})
		require.Equal(t, KindOK, out.Kind, raw)
		assert.Equal(t, "254712345678", gw.phone)
		assert.Equal(t, "MC001_20240305100809_5678", gw.ref)
	}
}

func TestProcessDeclined(t *testing.T) {
	gw := &fakeGateway{pushErr: &payment.Error{
		Kind:    payment.KindRejected,
		Message: "Bad Request - Invalid PhoneNumber",
		Raw:     map[string]interface{}{"errorCode": "400.002.02"},
	}}
	called := false
	store := &fakeStore{createFn: func(context.Context, *models.PaymentAttempt) error {
		called = true
		return nil
	}}

	out := newService(gw, WithAttemptStore(store)).Process(context.Background(), validRequest())
	assert.Equal(t, KindDeclined, out.Kind)
	assert.Equal(t, "Bad Request - Invalid PhoneNumber", out.Message)
	assert.Equal(t, "400.002.02", out.ErrorDetails["errorCode"])
	assert.False(t, called)
}

func TestProcessAuthFailureIsDeclined(t *testing.T) {
	gw := &fakeGateway{pushErr: &payment.Error{Kind: payment.KindAuthentication, Message: "Failed to authenticate with M-Pesa API"}}

	out := newService(gw).Process(context.Background(), validRequest())
	assert.Equal(t, KindDeclined, out.Kind)
	assert.Equal(t, "Failed to authenticate with M-Pesa API", out.Message)
}

func TestProcessUnexpectedErrorIsSystem(t *testing.T) {
	gw := &fakeGateway{pushErr: errors.New("something odd")}

	out := newService(gw).Process(context.Background(), validRequest())
	assert.Equal(t, KindSystem, out.Kind)
	assert.Equal(t, MsgSystemError, out.Message)
}

func TestProcessRecoversPanic(t *testing.T) {
	gw := &fakeGateway{panics: true}

	out := newService(gw).Process(context.Background(), validRequest())
	assert.Equal(t, KindSystem, out.Kind)
	assert.Equal(t, MsgSystemError, out.Message)
}

func TestProcessStoreFailureStillSucceeds(t *testing.T) {
	store := &fakeStore{createFn: func(context.Context, *models.PaymentAttempt) error {
		return errors.New("db down")
	}}

	out := newService(&fakeGateway{}, WithAttemptStore(store)).Process(context.Background(), validRequest())
	assert.Equal(t, KindOK, out.Kind)
}

func TestAccountReference(t *testing.T) {
	assert.Equal(t, "DL001_20240305100809_0001", AccountReference("DL001", fixedNow, "254700000001"))
}
