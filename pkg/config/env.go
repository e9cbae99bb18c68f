package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so it is informational.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	GatewayStripe = "stripe"
	GatewaySquare = "square"
)

const (
	EnvAppEnv     = "STOREFRONT_APP_ENV"
	EnvPort       = "STOREFRONT_APP_PORT"
	EnvDBDSN      = "STOREFRONT_DB_DSN"
	EnvDBHost     = "STOREFRONT_DB_HOST"
	EnvDBUser     = "STOREFRONT_DB_USER"
	EnvDBName     = "STOREFRONT_DB_NAME"
	EnvUseSQLite  = "STOREFRONT_USE_SQLITE"
	EnvSQLitePath = "STOREFRONT_SQLITE_PATH"
	EnvRedisURL   = "STOREFRONT_REDIS_URL"
	EnvTaxRate    = "STOREFRONT_TAX_RATE"
	EnvThreshold  = "STOREFRONT_FREE_SHIPPING_THRESHOLD"
	EnvProvider   = "STOREFRONT_GATEWAY_PROVIDER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
