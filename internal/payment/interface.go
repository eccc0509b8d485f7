package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a failed gateway interaction.
type Kind string

const (
	// KindInvalidPhone means the number was refused before any network call.
	KindInvalidPhone Kind = "invalid_phone"
	// KindAuthentication means no access token could be obtained.
	KindAuthentication Kind = "authentication"
	// KindRejected means the gateway answered but declined the request.
	KindRejected Kind = "rejected"
	// KindTransport covers network errors and timeouts.
	KindTransport Kind = "transport"
)

// Error is returned by every Client operation that does not succeed.
type Error struct {
	Kind    Kind
	Message string                 // safe to show to the payer
	Raw     map[string]interface{} // decoded gateway body, when there was one
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("mpesa %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PushResult is the synchronous acknowledgement of an accepted STK push.
type PushResult struct {
	CheckoutRequestID string                 `json:"checkout_request_id"`
	MerchantRequestID string                 `json:"merchant_request_id"`
	Message           string                 `json:"message"`
	Raw               map[string]interface{} `json:"raw"`
}

// QueryResult is the gateway's view of one STK push.
type QueryResult struct {
	ResponseCode        string                 `json:"response_code"`
	ResponseDescription string                 `json:"response_description"`
	MerchantRequestID   string                 `json:"merchant_request_id"`
	CheckoutRequestID   string                 `json:"checkout_request_id"`
	ResultCode          string                 `json:"result_code"`
	ResultDesc          string                 `json:"result_desc"`
	Raw                 map[string]interface{} `json:"raw"`
}

// Value holds a JSON value that Daraja sends either as a string or a number.
// Any other JSON kind is kept as its compact text.
type Value string

func (v *Value) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*v = ""
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*v = Value(str)
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, b); err != nil {
			return err
		}
		*v = Value(compact.String())
	}
	return nil
}

func (v Value) String() string {
	return string(v)
}

// Int parses v as an integer, returning 0 when it is not one.
func (v Value) Int() int {
	n, _ := v.IntOK()
	return n
}

// IntOK parses v as an integer. ok is false when v is empty or not an integer.
func (v Value) IntOK() (n int, ok bool) {
	n, err := strconv.Atoi(string(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// stkPushRequest is the body of /mpesa/stkpush/v1/processrequest.
type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// stkQueryRequest is the body of /mpesa/stkpushquery/v1/query.
type stkQueryRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type gatewayResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        Value  `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ResultCode          Value  `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
	RequestID           string `json:"requestId"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   Value  `json:"expires_in"`
}
