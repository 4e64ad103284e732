package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "DEALERDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv  = "DEALERDESK_APP_ENV"
	EnvAppPort = "DEALERDESK_APP_PORT"
	EnvDBDSN   = "DEALERDESK_DB_DSN"
	EnvDBHost  = "DEALERDESK_DB_HOST"
	EnvDBUser  = "DEALERDESK_DB_USER"
	EnvDBName  = "DEALERDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	AutoCancel   AutoCancelConfig
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
	Env          string `envconfig:"DEALERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"DEALERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DEALERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DEALERDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DEALERDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DEALERDESK_DB_DSN"`
	Driver string `envconfig:"DEALERDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DEALERDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"DEALERDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DEALERDESK_DB_USER"`
	LegacyPassword string `envconfig:"DEALERDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"DEALERDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"DEALERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DEALERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DEALERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DEALERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DEALERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DEALERDESK_REDIS_URL"`
	Address      string        `envconfig:"DEALERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"DEALERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"DEALERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DEALERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DEALERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DEALERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DEALERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DEALERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DEALERDESK_AUTO_MIGRATE" default:"false"`
	// StockClamp restores the legacy reserve behavior that floors stock at
	// zero instead of failing the decrement.
	StockClamp bool `envconfig:"DEALERDESK_STOCK_CLAMP" default:"false"`
}

type AutoCancelConfig struct {
	Enabled   bool          `envconfig:"DEALERDESK_AUTO_CANCEL_ENABLED" default:"true"`
	TTLHours  int           `envconfig:"DEALERDESK_AUTO_CANCEL_TTL_HOURS" default:"48"`
	BatchSize int           `envconfig:"DEALERDESK_AUTO_CANCEL_BATCH_SIZE" default:"100"`
	Interval  time.Duration `envconfig:"DEALERDESK_AUTO_CANCEL_INTERVAL" default:"1h"`
}

// TTL returns the configured time-to-live for orders awaiting re-approval.
func (a AutoCancelConfig) TTL() time.Duration {
	if a.TTLHours <= 0 {
		return 48 * time.Hour
	}
	return time.Duration(a.TTLHours) * time.Hour
}

func (db *DBConfig) ensureDSN() error {
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
