package models

// PaymentRequest is the form submitted by the browser to /process-payment.
type PaymentRequest struct {
	ServiceType  string `form:"service_type" json:"service_type"`
	PhoneNumber  string `form:"phone_number" json:"phone_number"`
	CustomerName string `form:"customer_name" json:"customer_name"`
	Amount       string `form:"amount" json:"amount"`
}

// PaymentResponse is the JSON envelope returned by /process-payment.
type PaymentResponse struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	ErrorDetails interface{} `json:"error_details,omitempty"`
}

// PaymentData is returned once the gateway has accepted a push.
type PaymentData struct {
	ServiceName       string `json:"service_name"`
	Amount            int    `json:"amount"`
	PhoneNumber       string `json:"phone_number"`
	AccountReference  string `json:"account_reference"`
	CheckoutRequestID string `json:"checkout_request_id"`
}

// CallbackAck is the body Daraja expects back from a callback endpoint.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// APIResponse is the envelope used by the operator API.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// PaginatedResponse wraps list results with pagination info.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}
