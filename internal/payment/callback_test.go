package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "Balance"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

func TestParseCallbackSuccess(t *testing.T) {
	res, err := ParseCallback([]byte(successCallback))
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_191220191020363925", res.CheckoutRequestID)
	assert.Equal(t, "29115-34620561-1", res.MerchantRequestID)
	require.NotNil(t, res.ResultCode)
	assert.Equal(t, 0, *res.ResultCode)
	assert.True(t, res.Succeeded())
	assert.True(t, res.Amount().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "NLJ7RT61SV", res.Receipt())
	assert.Equal(t, "20191219102115", res.TransactionDate())
	assert.Equal(t, "254708374149", res.PhoneNumber())
	assert.Equal(t, "", res.Metadata["Balance"].String())
}

func TestParseCallbackCancelledHasNoMetadata(t *testing.T) {
	res, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m","CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))
	require.NoError(t, err)

	require.NotNil(t, res.ResultCode)
	assert.Equal(t, 1032, *res.ResultCode)
	assert.False(t, res.Succeeded())
	assert.True(t, res.Amount().IsZero())
	assert.Empty(t, res.Receipt())
	assert.Empty(t, res.PhoneNumber())
}

func TestParseCallbackStringValues(t *testing.T) {
	res, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_3","ResultCode":"0","CallbackMetadata":{"Item":[{"Name":"Amount","Value":"2000"},{"Name":"MpesaReceiptNumber","Value":"ABC123"}]}}}}`))
	require.NoError(t, err)

	require.NotNil(t, res.ResultCode)
	assert.Equal(t, 0, *res.ResultCode)
	assert.True(t, res.Succeeded())
	assert.True(t, res.Amount().Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, "ABC123", res.Receipt())
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	_, err := ParseCallback([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseCallback([]byte(`{"Body":{}}`))
	assert.ErrorIs(t, err, ErrNoSTKCallback)

	_, err = ParseCallback([]byte(`{}`))
	assert.ErrorIs(t, err, ErrNoSTKCallback)
}

func TestValueInt(t *testing.T) {
	assert.Equal(t, 1032, Value("1032").Int())
	assert.Equal(t, 0, Value("").Int())
	assert.Equal(t, 0, Value("abc").Int())
}

func TestParseCallbackWithoutResultCode(t *testing.T) {
	for _, body := range []string{
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_9","ResultDesc":"?"}}}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_9","ResultCode":null}}}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_9","ResultCode":"n/a"}}}`,
	} {
		res, err := ParseCallback([]byte(body))
		require.NoError(t, err, body)
		assert.Nil(t, res.ResultCode, body)
		assert.False(t, res.Succeeded(), body)
	}
}

func TestParseCallbackToleratesOddMetadataValues(t *testing.T) {
	res, err := ParseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_4","ResultCode":0,"CallbackMetadata":{"Item":[{"Name":"Flag","Value":true},{"Name":"Extra","Value":{"a": 1}},{"Name":"MpesaReceiptNumber","Value":"ABC123"}]}}}}`))
	require.NoError(t, err)

	assert.Equal(t, "true", res.Metadata["Flag"].String())
	assert.Equal(t, `{"a":1}`, res.Metadata["Extra"].String())
	assert.Equal(t, "ABC123", res.Receipt())
}

func TestValueIntOK(t *testing.T) {
	n, ok := Value("0").IntOK()
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	_, ok = Value("").IntOK()
	assert.False(t, ok)
	_, ok = Value("1.5").IntOK()
	assert.False(t, ok)
}
