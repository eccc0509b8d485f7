package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecitizenpay/internal/models"
	"ecitizenpay/internal/repository"
	"ecitizenpay/internal/testutil"
)

type captureReporter struct {
	texts []string
}

func (r *captureReporter) Report(text string) {
	r.texts = append(r.texts, text)
}

type panickingStore struct{}

func (panickingStore) ExpirePending(context.Context, time.Time) (int64, error) {
	panic("boom")
}

func (panickingStore) StatusCounts(context.Context, time.Time) (map[string]int64, error) {
	panic("boom")
}

func seedAttempt(t *testing.T, repo *repository.AttemptRepository, id, checkoutID, status string, created time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.PaymentAttempt{
		ID:                id,
		CheckoutRequestID: checkoutID,
		ServiceKey:        "business_permit",
		ServiceCode:       "BP001",
		Phone:             "254712345678",
		Amount:            2000,
		AccountReference:  "BP001_20240305100809_5678",
		Status:            status,
		CreatedAt:         created,
	}))
}

func TestPaymentExpire(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAttemptRepository(db)
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	seedAttempt(t, repo, "a1", "ws_CO_old", models.AttemptPending, now.Add(-3*time.Hour))
	seedAttempt(t, repo, "a2", "ws_CO_new", models.AttemptPending, now.Add(-10*time.Minute))
	seedAttempt(t, repo, "a3", "ws_CO_paid", models.AttemptPaid, now.Add(-5*time.Hour))

	s := New(repo, nil, 2*time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }
	s.paymentExpire()

	old, err := repo.FindByCheckoutID(context.Background(), "ws_CO_old")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptExpired, old.Status)

	fresh, err := repo.FindByCheckoutID(context.Background(), "ws_CO_new")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptPending, fresh.Status)

	paid, err := repo.FindByCheckoutID(context.Background(), "ws_CO_paid")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptPaid, paid.Status)
}

func TestDailyStatusReport(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAttemptRepository(db)
	// 20:00 UTC is 23:00 in Nairobi
	now := time.Date(2024, 3, 5, 20, 0, 0, 0, time.UTC)

	seedAttempt(t, repo, "a1", "ws_CO_1", models.AttemptPaid, now.Add(-time.Hour))
	seedAttempt(t, repo, "a2", "ws_CO_2", models.AttemptPaid, now.Add(-2*time.Hour))
	seedAttempt(t, repo, "a3", "ws_CO_3", models.AttemptFailed, now.Add(-3*time.Hour))
	seedAttempt(t, repo, "a4", "ws_CO_4", models.AttemptPaid, now.Add(-48*time.Hour))

	rep := &captureReporter{}
	s := New(repo, rep, time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }
	s.dailyStatusReport()

	require.Len(t, rep.texts, 1)
	assert.Contains(t, rep.texts[0], "2024-03-05")
	assert.Contains(t, rep.texts[0], "Requests: 3")
	assert.Contains(t, rep.texts[0], "Paid: 2")
	assert.Contains(t, rep.texts[0], "Failed: 1")
	assert.Contains(t, rep.texts[0], "Expired: 0")
}

func TestJobsRecoverFromPanic(t *testing.T) {
	s := New(panickingStore{}, &captureReporter{}, time.Hour, zap.NewNop())
	assert.NotPanics(t, s.paymentExpire)
	assert.NotPanics(t, s.dailyStatusReport)
}

func TestStartStop(t *testing.T) {
	s := New(panickingStore{}, &captureReporter{}, time.Hour, zap.NewNop())
	require.NoError(t, s.Start())
	<-s.Stop().Done()
}
