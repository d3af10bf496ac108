package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it only matters for error text.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageBackendRedis  = "redis"
	StorageBackendSQL    = "sql"
	StorageBackendMemory = "memory"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvSessionSecret   = "STOREFRONT_SESSION_SECRET"
	EnvStorageBackend  = "STOREFRONT_STORAGE_BACKEND"
	EnvDBDSN           = "STOREFRONT_DB_DSN"
	EnvDBDriver        = "STOREFRONT_DB_DRIVER"
	EnvDBHost          = "STOREFRONT_DB_HOST"
	EnvDBUser          = "STOREFRONT_DB_USER"
	EnvDBName          = "STOREFRONT_DB_NAME"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvRedisAddr       = "STOREFRONT_REDIS_ADDR"
	EnvShopAPIBaseURL  = "STOREFRONT_SHOP_API_BASE_URL"
	EnvShopAPITimeout  = "STOREFRONT_SHOP_API_TIMEOUT"
	EnvGuestDomain     = "STOREFRONT_GUEST_EMAIL_DOMAIN"
	EnvRecentLimit     = "STOREFRONT_RECENT_LIMIT"
	EnvSweeperInterval = "STOREFRONT_SWEEPER_INTERVAL"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
