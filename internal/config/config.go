package config

import (
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"

	// SandboxShortcode is the public Daraja test paybill.
	SandboxShortcode = "174379"

	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Mpesa    MpesaConfig
	Catalog  CatalogConfig
	Notify   NotifyConfig
	Cron     CronConfig
}

type ServerConfig struct {
	Port   int
	Env    string // "development", "production"
	APIKey string // operator API; empty disables /api
}

type DatabaseConfig struct {
	Driver  string // "mysql" or "sqlite"
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
	Path    string // sqlite file, ":memory:" allowed
}

type RedisConfig struct {
	Addr     string
	Pass     string
	DB       int
	DedupTTL time.Duration
}

// MpesaConfig holds the Daraja credentials and endpoints.
type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Passkey        string
	Shortcode      string
	Environment    string
	BaseURL        string
	CallbackURL    string
	CallbackSecret string
	Timeout        time.Duration
	CacheToken     bool
}

type CatalogConfig struct {
	File string
}

type NotifyConfig struct {
	TelegramToken  string
	TelegramChatID int64
}

type CronConfig struct {
	Enabled        bool
	AttemptTimeout time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_PATH", "ecitizenpay.db")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CALLBACK_DEDUP_TTL", "24h")
	viper.SetDefault("MPESA_SHORTCODE", SandboxShortcode)
	viper.SetDefault("MPESA_ENVIRONMENT", EnvSandbox)
	viper.SetDefault("MPESA_TIMEOUT", "30s")
	viper.SetDefault("MPESA_TOKEN_CACHE", false)
	viper.SetDefault("CRON_ENABLED", true)
	viper.SetDefault("ATTEMPT_TIMEOUT", "2h")

	cfg := &Config{
		Server: ServerConfig{
			Port:   viper.GetInt("APP_PORT"),
			Env:    viper.GetString("APP_ENV"),
			APIKey: viper.GetString("API_KEY"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Pass:     viper.GetString("REDIS_PASS"),
			DB:       viper.GetInt("REDIS_DB"),
			DedupTTL: durationOr("CALLBACK_DEDUP_TTL", 24*time.Hour),
		},
		Mpesa: MpesaConfig{
			ConsumerKey:    viper.GetString("MPESA_CONSUMER_KEY"),
			ConsumerSecret: viper.GetString("MPESA_CONSUMER_SECRET"),
			Passkey:        viper.GetString("MPESA_PASSKEY"),
			Shortcode:      viper.GetString("MPESA_SHORTCODE"),
			Environment:    strings.ToLower(strings.TrimSpace(viper.GetString("MPESA_ENVIRONMENT"))),
			BaseURL:        viper.GetString("MPESA_BASE_URL"),
			CallbackURL:    viper.GetString("MPESA_CALLBACK_URL"),
			CallbackSecret: viper.GetString("MPESA_CALLBACK_SECRET"),
			Timeout:        durationOr("MPESA_TIMEOUT", 30*time.Second),
			CacheToken:     viper.GetBool("MPESA_TOKEN_CACHE"),
		},
		Catalog: CatalogConfig{
			File: viper.GetString("SERVICE_CATALOG_FILE"),
		},
		Notify: NotifyConfig{
			TelegramToken:  viper.GetString("TELEGRAM_BOT_TOKEN"),
			TelegramChatID: viper.GetInt64("TELEGRAM_REPORT_CHAT_ID"),
		},
		Cron: CronConfig{
			Enabled:        viper.GetBool("CRON_ENABLED"),
			AttemptTimeout: durationOr("ATTEMPT_TIMEOUT", 2*time.Hour),
		},
	}

	if cfg.Mpesa.ConsumerKey == "" || cfg.Mpesa.ConsumerSecret == "" {
		log.Println("WARNING: MPESA_CONSUMER_KEY / MPESA_CONSUMER_SECRET not set, gateway authentication will fail")
	}
	if cfg.Mpesa.CallbackSecret == "" {
		log.Println("WARNING: MPESA_CALLBACK_SECRET is not set, all callbacks will be rejected")
	}
	if cfg.Database.Driver == "mysql" && cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}

	return cfg, nil
}

// LoadDatabaseOnly reads just enough configuration to open the database.
func LoadDatabaseOnly() (*DatabaseConfig, error) {
	_ = godotenv.Load()
	viper.AutomaticEnv()
	viper.SetDefault("DB_DRIVER", "mysql")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("DB_PATH", "ecitizenpay.db")
	db := loadDatabase()
	return &db, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Driver:  strings.ToLower(viper.GetString("DB_DRIVER")),
		Host:    viper.GetString("DB_HOST"),
		Port:    viper.GetString("DB_PORT"),
		Name:    viper.GetString("DB_NAME"),
		User:    viper.GetString("DB_USER"),
		Pass:    viper.GetString("DB_PASS"),
		Charset: viper.GetString("DB_CHARSET"),
		Path:    viper.GetString("DB_PATH"),
	}
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}

// GatewayBaseURL picks the Daraja host for the configured environment.
// An explicit MPESA_BASE_URL wins.
func (m MpesaConfig) GatewayBaseURL() string {
	if m.BaseURL != "" {
		return strings.TrimSuffix(m.BaseURL, "/")
	}
	if m.Environment == EnvProduction {
		return productionBaseURL
	}
	return sandboxBaseURL
}

// CallbackEndpoint returns the URL handed to Daraja as CallBackURL. The shared
// secret is appended as ?key= unless the configured URL already carries one.
func (m MpesaConfig) CallbackEndpoint() string {
	if m.CallbackURL == "" || m.CallbackSecret == "" {
		return m.CallbackURL
	}
	u, err := url.Parse(m.CallbackURL)
	if err != nil {
		return m.CallbackURL
	}
	q := u.Query()
	if q.Get("key") != "" {
		return m.CallbackURL
	}
	q.Set("key", m.CallbackSecret)
	u.RawQuery = q.Encode()
	return u.String()
}
