package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxCallbackBody caps how much of a callback request is read.
const MaxCallbackBody = 1 << 20

// ErrNoSTKCallback is returned when a callback body lacks Body.stkCallback.
var ErrNoSTKCallback = errors.New("callback body has no Body.stkCallback")

// CallbackEnvelope is the JSON Daraja posts to CallBackURL.
type CallbackEnvelope struct {
	Body struct {
		STKCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// STKCallback carries the asynchronous result of one STK push.
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        Value  `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataItem is one Name/Value pair under CallbackMetadata.Item.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value Value  `json:"Value"`
}

// CallbackResult is a flattened STK callback. ResultCode is nil when the
// gateway sent no integer code.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        *int
	ResultDesc        string
	Metadata          map[string]Value
}

// ParseCallback decodes a callback body. Metadata items the gateway omitted
// are simply absent from Metadata.
func ParseCallback(body []byte) (*CallbackResult, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	cb := env.Body.STKCallback
	if cb == nil {
		return nil, ErrNoSTKCallback
	}

	meta := make(map[string]Value, len(cb.CallbackMetadata.Item))
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == "" {
			continue
		}
		meta[item.Name] = item.Value
	}

	res := &CallbackResult{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultDesc:        cb.ResultDesc,
		Metadata:          meta,
	}
	if code, ok := cb.ResultCode.IntOK(); ok {
		res.ResultCode = &code
	}
	return res, nil
}

// Succeeded reports whether the gateway confirmed the payment with code 0.
func (r *CallbackResult) Succeeded() bool {
	return r.ResultCode != nil && *r.ResultCode == 0
}

// Amount returns the paid amount, zero when absent or malformed.
func (r *CallbackResult) Amount() decimal.Decimal {
	v, ok := r.Metadata["Amount"]
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Receipt returns MpesaReceiptNumber.
func (r *CallbackResult) Receipt() string {
	return r.Metadata["MpesaReceiptNumber"].String()
}

// TransactionDate returns the gateway's yyyyMMddHHmmss completion time.
func (r *CallbackResult) TransactionDate() string {
	return r.Metadata["TransactionDate"].String()
}

// PhoneNumber returns the paying MSISDN.
func (r *CallbackResult) PhoneNumber() string {
	return r.Metadata["PhoneNumber"].String()
}
