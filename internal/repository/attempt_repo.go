package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ecitizenpay/internal/models"
)

// AttemptRepository handles payment attempt database operations.
type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create stores a freshly accepted STK push.
func (r *AttemptRepository) Create(ctx context.Context, a *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// FindByCheckoutID returns the attempt for a gateway checkout ID.
func (r *AttemptRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindAll returns attempts with pagination, newest first, optionally
// filtered by status.
func (r *AttemptRepository) FindAll(ctx context.Context, limit, page int, status string) ([]models.PaymentAttempt, int64, error) {
	var attempts []models.PaymentAttempt
	var total int64

	db := r.db.WithContext(ctx).Model(&models.PaymentAttempt{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// Resolve moves a pending attempt to its final status. Attempts that were
// already resolved are left alone, so repeated callbacks are harmless.
func (r *AttemptRepository) Resolve(ctx context.Context, checkoutID, status string, resultCode *int, resultDesc string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("checkout_request_id = ? AND status IN ?", checkoutID, []string{models.AttemptPending, models.AttemptExpired}).
		Updates(map[string]interface{}{
			"status":      status,
			"result_code": resultCode,
			"result_desc": resultDesc,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ExpirePending marks attempts still pending since before cutoff as expired.
func (r *AttemptRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("status = ? AND created_at < ?", models.AttemptPending, cutoff.UTC()).
		Updates(map[string]interface{}{
			"status":     models.AttemptExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// StatusCounts groups attempts created since the given time by status.
func (r *AttemptRepository) StatusCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Select("status, COUNT(*) AS total").
		Where("created_at >= ?", since.UTC()).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
