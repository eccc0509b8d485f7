package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayBaseURL(t *testing.T) {
	assert.Equal(t, "https://sandbox.safaricom.co.ke", MpesaConfig{Environment: EnvSandbox}.GatewayBaseURL())
	assert.Equal(t, "https://sandbox.safaricom.co.ke", MpesaConfig{}.GatewayBaseURL())
	assert.Equal(t, "https://api.safaricom.co.ke", MpesaConfig{Environment: EnvProduction}.GatewayBaseURL())
	assert.Equal(t, "http://127.0.0.1:9000", MpesaConfig{Environment: EnvProduction, BaseURL: "http://127.0.0.1:9000/"}.GatewayBaseURL())
}

func TestCallbackEndpoint(t *testing.T) {
	m := MpesaConfig{CallbackURL: "https://pay.example.go.ke/callback", CallbackSecret: "s3cret"}
	assert.Equal(t, "https://pay.example.go.ke/callback?key=s3cret", m.CallbackEndpoint())

	m.CallbackURL = "https://pay.example.go.ke/callback?key=already"
	assert.Equal(t, "https://pay.example.go.ke/callback?key=already", m.CallbackEndpoint())

	m = MpesaConfig{CallbackURL: "https://pay.example.go.ke/callback"}
	assert.Equal(t, "https://pay.example.go.ke/callback", m.CallbackEndpoint())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MPESA_CONSUMER_KEY", "ck")
	t.Setenv("MPESA_CONSUMER_SECRET", "cs")
	t.Setenv("MPESA_ENVIRONMENT", "Production")
	t.Setenv("MPESA_CALLBACK_SECRET", "hook")
	t.Setenv("MPESA_TIMEOUT", "not-a-duration")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ck", cfg.Mpesa.ConsumerKey)
	assert.Equal(t, EnvProduction, cfg.Mpesa.Environment)
	assert.Equal(t, SandboxShortcode, cfg.Mpesa.Shortcode)
	assert.Equal(t, 30*time.Second, cfg.Mpesa.Timeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "hook", cfg.Mpesa.CallbackSecret)
}
