package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"ecitizenpay/internal/config"
	"ecitizenpay/internal/metrics"
	"ecitizenpay/internal/pkg/httpclient"
	"ecitizenpay/internal/pkg/phone"
)

const (
	transactionType = "CustomerPayBillOnline"
	timestampLayout = "20060102150405"

	maxTransactionDesc = 100

	msgAuthFailed    = "Failed to authenticate with M-Pesa API"
	msgNetworkError  = "Network error occurred. Please try again."
	msgPushFailed    = "STK Push failed"
	msgPushSent      = "STK Push sent successfully"
	msgQueryFailed   = "Failed to query transaction status"
	defaultTokenLife = 55 * time.Minute
)

// Kenya has no DST, so a fixed zone avoids depending on tzdata.
var nairobi = time.FixedZone("EAT", 3*60*60)

// Client talks to the Safaricom Daraja API.
type Client struct {
	cfg    config.MpesaConfig
	http   *httpclient.Client
	logger *zap.Logger
	now    func() time.Time

	authMu      sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// NewClient builds a Daraja client from immutable configuration.
func NewClient(cfg config.MpesaConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   httpclient.New().WithTimeout(timeout).WithBaseURL(cfg.GatewayBaseURL()),
		logger: logger,
		now:    time.Now,
	}
}

// AccessToken fetches an OAuth bearer token. With MPESA_TOKEN_CACHE enabled
// the token is reused until shortly before the issuer's expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cfg.CacheToken {
		c.authMu.Lock()
		token, valid := c.cachedToken, c.cachedToken != "" && c.now().Before(c.tokenExpiry)
		c.authMu.Unlock()
		if valid {
			return token, nil
		}
	}

	token, lifetime, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	if c.cfg.CacheToken {
		buffer := time.Minute
		if lifetime <= buffer {
			buffer = lifetime / 2
		}
		c.authMu.Lock()
		c.cachedToken = token
		c.tokenExpiry = c.now().Add(lifetime - buffer)
		c.authMu.Unlock()
	}
	return token, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	started := time.Now()
	resp, err := c.http.Get(ctx, "/oauth/v1/generate",
		httpclient.QueryParam("grant_type", "client_credentials"),
		httpclient.BasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret),
	)
	if err != nil {
		metrics.ObserveGateway("token", "transport_error", started)
		c.logger.Error("M-Pesa auth request failed", zap.Error(err))
		return "", 0, &Error{Kind: KindAuthentication, Message: msgAuthFailed, Err: err}
	}
	if !resp.OK() {
		metrics.ObserveGateway("token", "http_error", started)
		c.logger.Error("M-Pesa auth rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", resp.Body),
		)
		return "", 0, &Error{Kind: KindAuthentication, Message: msgAuthFailed, Raw: decodeRaw(resp.Body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil || tr.AccessToken == "" {
		metrics.ObserveGateway("token", "bad_response", started)
		c.logger.Error("M-Pesa auth response missing access_token", zap.ByteString("body", resp.Body))
		return "", 0, &Error{Kind: KindAuthentication, Message: msgAuthFailed, Err: err}
	}
	metrics.ObserveGateway("token", "ok", started)

	lifetime := time.Duration(tr.ExpiresIn.Int()) * time.Second
	if lifetime <= 0 {
		lifetime = defaultTokenLife
	}
	return tr.AccessToken, lifetime, nil
}

// Timestamp formats t as Nairobi wall-clock yyyyMMddHHmmss, the format
// Daraja expects in request timestamps.
func Timestamp(t time.Time) string {
	return t.In(nairobi).Format(timestampLayout)
}

// credentials derives the Timestamp and Password fields from one instant.
func (c *Client) credentials() (timestamp, password string) {
	timestamp = Timestamp(c.now())
	password = base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
	return timestamp, password
}

// InitiatePush sends an STK push prompt to the payer's phone. The returned
// error is always a *Error.
func (c *Client) InitiatePush(ctx context.Context, rawPhone string, amount int, accountReference, description string) (*PushResult, error) {
	msisdn, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, &Error{Kind: KindInvalidPhone, Message: "Invalid phone number format. Use 254XXXXXXXXX", Err: err}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp, password := c.credentials()
	body := stkPushRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            msisdn,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackEndpoint(),
		AccountReference:  accountReference,
		TransactionDesc:   truncate(description, maxTransactionDesc),
	}

	started := time.Now()
	resp, err := c.http.PostJSON(ctx, "/mpesa/stkpush/v1/processrequest", body, httpclient.BearerToken(token))
	if err != nil {
		metrics.ObserveGateway("stkpush", "transport_error", started)
		c.logger.Error("M-Pesa STK push request failed", zap.Error(err))
		return nil, &Error{Kind: KindTransport, Message: msgNetworkError, Err: err}
	}

	var gr gatewayResponse
	decodeErr := json.Unmarshal(resp.Body, &gr)
	raw := decodeRaw(resp.Body)

	if decodeErr == nil && resp.OK() && gr.ResponseCode.String() == "0" {
		metrics.ObserveGateway("stkpush", "accepted", started)
		return &PushResult{
			CheckoutRequestID: gr.CheckoutRequestID,
			MerchantRequestID: gr.MerchantRequestID,
			Message:           msgPushSent,
			Raw:               raw,
		}, nil
	}

	metrics.ObserveGateway("stkpush", "rejected", started)
	msg := msgPushFailed
	switch {
	case gr.ErrorMessage != "":
		msg = gr.ErrorMessage
	case gr.ResponseDescription != "":
		msg = gr.ResponseDescription
	}
	c.logger.Warn("M-Pesa STK push declined",
		zap.Int("status", resp.StatusCode),
		zap.String("response_code", gr.ResponseCode.String()),
		zap.String("error_code", gr.ErrorCode),
		zap.String("message", msg),
	)
	return nil, &Error{Kind: KindRejected, Message: msg, Raw: raw, Err: decodeErr}
}

// QueryStatus asks the gateway for the current state of an STK push.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	if checkoutRequestID == "" {
		return nil, &Error{Kind: KindRejected, Message: "CheckoutRequestID is required"}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp, password := c.credentials()
	body := stkQueryRequest{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          password,
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	started := time.Now()
	resp, err := c.http.PostJSON(ctx, "/mpesa/stkpushquery/v1/query", body, httpclient.BearerToken(token))
	if err != nil {
		metrics.ObserveGateway("stkquery", "transport_error", started)
		c.logger.Error("M-Pesa STK query request failed", zap.Error(err))
		return nil, &Error{Kind: KindTransport, Message: msgQueryFailed, Err: err}
	}

	var gr gatewayResponse
	if err := json.Unmarshal(resp.Body, &gr); err != nil {
		metrics.ObserveGateway("stkquery", "bad_response", started)
		return nil, &Error{Kind: KindRejected, Message: msgQueryFailed, Err: err}
	}
	raw := decodeRaw(resp.Body)
	if !resp.OK() {
		metrics.ObserveGateway("stkquery", "rejected", started)
		msg := msgQueryFailed
		if gr.ErrorMessage != "" {
			msg = gr.ErrorMessage
		}
		return nil, &Error{Kind: KindRejected, Message: msg, Raw: raw}
	}
	metrics.ObserveGateway("stkquery", "ok", started)

	return &QueryResult{
		ResponseCode:        gr.ResponseCode.String(),
		ResponseDescription: gr.ResponseDescription,
		MerchantRequestID:   gr.MerchantRequestID,
		CheckoutRequestID:   gr.CheckoutRequestID,
		ResultCode:          gr.ResultCode.String(),
		ResultDesc:          gr.ResultDesc,
		Raw:                 raw,
	}, nil
}

// IsKind reports whether err is a gateway *Error of kind k.
func IsKind(err error, k Kind) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Kind == k
}

func decodeRaw(body []byte) map[string]interface{} {
	if len(body) == 0 {
		return nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	return raw
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
