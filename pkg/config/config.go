package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Ledger       LedgerConfig
	Sweeper      SweeperConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STREETCONNECT_APP_ENV" required:"true"`
	Port         string `envconfig:"STREETCONNECT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STREETCONNECT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STREETCONNECT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STREETCONNECT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STREETCONNECT_DB_DSN"`
	Driver string `envconfig:"STREETCONNECT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STREETCONNECT_DB_HOST"`
	Port     int    `envconfig:"STREETCONNECT_DB_PORT" default:"5432"`
	User     string `envconfig:"STREETCONNECT_DB_USER"`
	Password string `envconfig:"STREETCONNECT_DB_PASSWORD"`
	Name     string `envconfig:"STREETCONNECT_DB_NAME"`
	SSLMode  string `envconfig:"STREETCONNECT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STREETCONNECT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STREETCONNECT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STREETCONNECT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STREETCONNECT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STREETCONNECT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STREETCONNECT_REDIS_ADDR"`
	Password     string        `envconfig:"STREETCONNECT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STREETCONNECT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STREETCONNECT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STREETCONNECT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STREETCONNECT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STREETCONNECT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STREETCONNECT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes the tokens minted by the external identity provider.
// The backend only verifies them; it never issues tokens itself.
type JWTConfig struct {
	Secret string `envconfig:"STREETCONNECT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STREETCONNECT_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STREETCONNECT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STREETCONNECT_AUTO_MIGRATE" default:"false"`
}

// LedgerConfig bounds the optimistic-concurrency retry loop for
// join/amend/withdraw operations.
type LedgerConfig struct {
	MaxRetries int `envconfig:"STREETCONNECT_LEDGER_MAX_RETRIES" default:"5"`
}

type SweeperConfig struct {
	Interval time.Duration `envconfig:"STREETCONNECT_SWEEP_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"STREETCONNECT_SWEEP_LOCK_TTL" default:"5m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STREETCONNECT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	GroupBuyTopic string `envconfig:"STREETCONNECT_PUBSUB_GROUPBUY_TOPIC" default:"sc-groupbuy-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STREETCONNECT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STREETCONNECT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STREETCONNECT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
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
