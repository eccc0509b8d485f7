package models

import "time"

// Payment attempt statuses.
const (
	AttemptPending = "pending"
	AttemptPaid    = "paid"
	AttemptFailed  = "failed"
	AttemptExpired = "expired"
)

// PaymentAttempt maps to the `payment_attempts` table: one accepted STK push.
type PaymentAttempt struct {
	ID                string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	CheckoutRequestID string    `gorm:"column:checkout_request_id;size:100;uniqueIndex" json:"checkout_request_id"`
	MerchantRequestID string    `gorm:"column:merchant_request_id;size:100" json:"merchant_request_id"`
	ServiceKey        string    `gorm:"column:service_key;size:100" json:"service_key"`
	ServiceCode       string    `gorm:"column:service_code;size:20" json:"service_code"`
	CustomerName      string    `gorm:"column:customer_name;size:200" json:"customer_name"`
	Phone             string    `gorm:"column:phone;size:20" json:"phone"`
	Amount            int       `gorm:"column:amount" json:"amount"`
	AccountReference  string    `gorm:"column:account_reference;size:40" json:"account_reference"`
	Status            string    `gorm:"column:status;size:20;index" json:"status"`
	ResultCode        *int      `gorm:"column:result_code" json:"result_code,omitempty"`
	ResultDesc        string    `gorm:"column:result_desc;size:500" json:"result_desc,omitempty"`
	CreatedAt         time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
