package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecitizenpay/internal/models"
)

// CallbackRepository stores STK callback outcomes in the transactions table.
type CallbackRepository struct {
	db *gorm.DB
}

func NewCallbackRepository(db *gorm.DB) *CallbackRepository {
	return &CallbackRepository{db: db}
}

// Record inserts rec unless a row with the same CheckoutRequestID exists.
// inserted is false for a repeated delivery.
func (r *CallbackRepository) Record(ctx context.Context, rec *models.CallbackRecord) (inserted bool, err error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checkout_request_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByCheckoutID returns the callback stored for checkoutID.
func (r *CallbackRepository) FindByCheckoutID(ctx context.Context, checkoutID string) (*models.CallbackRecord, error) {
	var rec models.CallbackRecord
	if err := r.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
