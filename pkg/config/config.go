package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Session   SessionConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	ShopAPI   ShopAPIConfig
	Guest     GuestConfig
	Recent    RecentConfig
	RateLimit RateLimitConfig
	Sweeper   SweeperConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == StorageBackendSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Storage.Backend == StorageBackendRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for the redis storage backend", EnvRedisURL, EnvRedisAddr)
	}
	if _, err := url.ParseRequestURI(cfg.ShopAPI.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvShopAPIBaseURL, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`

	CORSOrigins     []string      `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"STOREFRONT_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// SessionConfig signs the session tokens handed to storefront clients.
type SessionConfig struct {
	Secret   string        `envconfig:"STOREFRONT_SESSION_SECRET" required:"true"`
	Issuer   string        `envconfig:"STOREFRONT_SESSION_ISSUER" default:"storefront-session"`
	TokenTTL time.Duration `envconfig:"STOREFRONT_SESSION_TOKEN_TTL" default:"720h"`
}

type StorageConfig struct {
	Backend string        `envconfig:"STOREFRONT_STORAGE_BACKEND" default:"redis"`
	SlotTTL time.Duration `envconfig:"STOREFRONT_STORAGE_SLOT_TTL" default:"720h"`
}

func (s *StorageConfig) validate() error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	switch s.Backend {
	case StorageBackendRedis, StorageBackendSQL, StorageBackendMemory:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvStorageBackend, StorageBackendRedis, StorageBackendSQL, StorageBackendMemory)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	AutoMigrate     bool          `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type ShopAPIConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_SHOP_API_BASE_URL" required:"true"`
	APIKey  string        `envconfig:"STOREFRONT_SHOP_API_KEY"`
	Timeout time.Duration `envconfig:"STOREFRONT_SHOP_API_TIMEOUT" default:"10s"`
}

type GuestConfig struct {
	EmailDomain string `envconfig:"STOREFRONT_GUEST_EMAIL_DOMAIN" default:"guest.storefront.local"`
}

type RecentConfig struct {
	Limit int `envconfig:"STOREFRONT_RECENT_LIMIT" default:"10"`
}

type RateLimitConfig struct {
	GuestWindow       time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_GUEST_WINDOW" default:"5m"`
	GuestIPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_GUEST_IP_LIMIT" default:"20"`
	GuestContactLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_GUEST_CONTACT_LIMIT" default:"5"`
	LoginWindow       time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginContactLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_CONTACT_LIMIT" default:"5"`
}

type SweeperConfig struct {
	Interval  time.Duration `envconfig:"STOREFRONT_SWEEPER_INTERVAL" default:"1h"`
	BatchSize int           `envconfig:"STOREFRONT_SWEEPER_BATCH_SIZE" default:"500"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	db.DSN = u.String()
	return nil
}
