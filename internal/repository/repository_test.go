package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecitizenpay/internal/models"
	"ecitizenpay/internal/testutil"
)

func TestCallbackRecordIsInsertedOnce(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := NewCallbackRepository(db)

	rec := func() *models.CallbackRecord {
		return &models.CallbackRecord{
			CheckoutRequestID: "ws_CO_1",
			ResultCode:        resultCode(0),
			ResultDesc:        "ok",
			Amount:            decimal.NewFromInt(2000),
			ReceiptNo:         "ABC123",
		}
	}

	inserted, err := repo.Record(ctx, rec())
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Record(ctx, rec())
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.Equal(t, int64(1), testutil.CountRows(t, db, &models.CallbackRecord{}))

	got, err := repo.FindByCheckoutID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", got.ReceiptNo)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(2000)))
}

func resultCode(n int) *int { return &n }

func newAttempt(checkoutID string, created time.Time) *models.PaymentAttempt {
	return &models.PaymentAttempt{
		ID:                uuid.NewString(),
		CheckoutRequestID: checkoutID,
		ServiceKey:        "business_permit",
		ServiceCode:       "BP001",
		CustomerName:      "Jane",
		Phone:             "254712345678",
		Amount:            2000,
		AccountReference:  "BP001_20240305100809_5678",
		Status:            models.AttemptPending,
		CreatedAt:         created,
	}
}

func TestAttemptResolveOnlyOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewAttemptRepository(testutil.NewDB(t))
	require.NoError(t, repo.Create(ctx, newAttempt("ws_CO_1", time.Now().UTC())))

	ok, err := repo.Resolve(ctx, "ws_CO_1", models.AttemptPaid, resultCode(0), "done")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Resolve(ctx, "ws_CO_1", models.AttemptFailed, resultCode(1032), "cancelled")
	require.NoError(t, err)
	assert.False(t, ok)

	a, err := repo.FindByCheckoutID(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptPaid, a.Status)
	require.NotNil(t, a.ResultCode)
	assert.Equal(t, 0, *a.ResultCode)

	ok, err = repo.Resolve(ctx, "ws_CO_unknown", models.AttemptPaid, resultCode(0), "done")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpirePendingAndLateCallback(t *testing.T) {
	ctx := context.Background()
	repo := NewAttemptRepository(testutil.NewDB(t))
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newAttempt("ws_CO_old", now.Add(-3*time.Hour))))
	require.NoError(t, repo.Create(ctx, newAttempt("ws_CO_new", now)))

	n, err := repo.ExpirePending(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := repo.FindByCheckoutID(ctx, "ws_CO_old")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptExpired, old.Status)

	// a callback that shows up after expiry still wins
	ok, err := repo.Resolve(ctx, "ws_CO_old", models.AttemptPaid, resultCode(0), "done")
	require.NoError(t, err)
	assert.True(t, ok)

	list, total, err := repo.FindAll(ctx, 10, 1, models.AttemptPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "ws_CO_new", list[0].CheckoutRequestID)

	all, total, err := repo.FindAll(ctx, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)
}
