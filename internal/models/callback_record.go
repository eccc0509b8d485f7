package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CallbackRecord maps to the `transactions` table. One row per
// CheckoutRequestID; rows are never updated.
type CallbackRecord struct {
	ID                uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	CheckoutRequestID string          `gorm:"column:checkout_request_id;size:100;uniqueIndex;not null" json:"checkout_request_id"`
	MerchantRequestID string          `gorm:"column:merchant_request_id;size:100" json:"merchant_request_id"`
	ResultCode        *int            `gorm:"column:result_code" json:"result_code"`
	ResultDesc        string          `gorm:"column:result_desc;size:500" json:"result_desc"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	ReceiptNo         string          `gorm:"column:receipt_no;size:50" json:"receipt_no"`
	TransactionDate   string          `gorm:"column:transaction_date;size:20" json:"transaction_date"`
	Phone             string          `gorm:"column:phone;size:20" json:"phone"`
	RawPayload        string          `gorm:"column:raw_payload;type:text" json:"-"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (CallbackRecord) TableName() string {
	return "transactions"
}

// Succeeded reports whether the payer completed the payment. A record
// without a result code never counts as paid.
func (r CallbackRecord) Succeeded() bool {
	return r.ResultCode != nil && *r.ResultCode == 0
}

// ResultCodeText renders ResultCode for logs and reports.
func (r CallbackRecord) ResultCodeText() string {
	if r.ResultCode == nil {
		return "none"
	}
	return strconv.Itoa(*r.ResultCode)
}
