package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	Gateway      GatewayConfig
	Stripe       StripeConfig
	Square       SquareConfig
	Idempotency  IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	MerchantName string `envconfig:"STOREFRONT_MERCHANT_NAME" default:"Little Mirai"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// PricingConfig holds the fixed order-total constants.
type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal `envconfig:"STOREFRONT_FREE_SHIPPING_THRESHOLD" default:"500"`
	FlatShippingFee       decimal.Decimal `envconfig:"STOREFRONT_FLAT_SHIPPING_FEE" default:"50"`
	TaxRate               decimal.Decimal `envconfig:"STOREFRONT_TAX_RATE" default:"0.18"`
	Currency              string          `envconfig:"STOREFRONT_CURRENCY" default:"INR"`
}

func (p PricingConfig) validate() error {
	if p.FreeShippingThreshold.IsNegative() || p.FlatShippingFee.IsNegative() {
		return fmt.Errorf("shipping threshold and fee must be non-negative")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be a fraction in [0, 1)")
	}
	return nil
}

type CheckoutConfig struct {
	PaymentTimeout time.Duration `envconfig:"STOREFRONT_PAYMENT_TIMEOUT" default:"15m"`
	AwaitMax       time.Duration `envconfig:"STOREFRONT_PAYMENT_AWAIT_MAX" default:"25s"`
	SessionIdleTTL time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"2h"`
	SweepInterval  time.Duration `envconfig:"STOREFRONT_SESSION_SWEEP_INTERVAL" default:"5m"`
	SuccessURL     string        `envconfig:"STOREFRONT_CHECKOUT_SUCCESS_URL" default:"http://localhost:3000/checkout?status=success"`
	CancelURL      string        `envconfig:"STOREFRONT_CHECKOUT_CANCEL_URL" default:"http://localhost:3000/checkout?status=cancelled"`
	Description    string        `envconfig:"STOREFRONT_CHECKOUT_DESCRIPTION" default:"Baby Clothing Purchase"`
}

type GatewayConfig struct {
	Provider       string        `envconfig:"STOREFRONT_GATEWAY_PROVIDER" default:"stripe"`
	LoadRetryDelay time.Duration `envconfig:"STOREFRONT_GATEWAY_LOAD_RETRY_DELAY" default:"2s"`
	LoadMaxDelay   time.Duration `envconfig:"STOREFRONT_GATEWAY_LOAD_MAX_DELAY" default:"1m"`
}

// NormalizedProvider returns the lowercase provider name, defaulting to stripe.
func (g GatewayConfig) NormalizedProvider() string {
	provider := strings.TrimSpace(strings.ToLower(g.Provider))
	if provider == "" {
		return GatewayStripe
	}
	return provider
}

type StripeConfig struct {
	APIKey string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Secret string `envconfig:"STOREFRONT_STRIPE_SECRET"`
	Env    string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SquareConfig struct {
	AccessToken   string `envconfig:"STOREFRONT_SQUARE_ACCESS_TOKEN"`
	WebhookSecret string `envconfig:"STOREFRONT_SQUARE_WEBHOOK_SECRET"`
	WebhookURL    string `envconfig:"STOREFRONT_SQUARE_WEBHOOK_URL"`
	Env           string `envconfig:"STOREFRONT_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"STOREFRONT_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type IdempotencyConfig struct {
	ConfirmTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_CONFIRM_TTL" default:"24h"`
	WebhookTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_WEBHOOK_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required when %s is set", EnvSQLitePath, EnvUseSQLite)
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
