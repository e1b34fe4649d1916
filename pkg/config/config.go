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
	Booking      BookingConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"RIVERSIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"RIVERSIDE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RIVERSIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RIVERSIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RIVERSIDE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RIVERSIDE_DB_DSN"`
	Driver string `envconfig:"RIVERSIDE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RIVERSIDE_DB_HOST"`
	LegacyPort     int    `envconfig:"RIVERSIDE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RIVERSIDE_DB_USER"`
	LegacyPassword string `envconfig:"RIVERSIDE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RIVERSIDE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RIVERSIDE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RIVERSIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RIVERSIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RIVERSIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RIVERSIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RIVERSIDE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RIVERSIDE_REDIS_ADDR"`
	Password     string        `envconfig:"RIVERSIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RIVERSIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RIVERSIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RIVERSIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RIVERSIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RIVERSIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RIVERSIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RIVERSIDE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RIVERSIDE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RIVERSIDE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// BookingConfig carries booking-path tunables.
type BookingConfig struct {
	// MaxAdvanceDays bounds how far ahead an interval may start.
	MaxAdvanceDays int `envconfig:"RIVERSIDE_BOOKING_MAX_ADVANCE_DAYS" default:"365"`
	// ConflictRetries is the number of automatic retries after a
	// serialization conflict inside the booking transaction.
	ConflictRetries int `envconfig:"RIVERSIDE_BOOKING_CONFLICT_RETRIES" default:"1"`
}

// CronConfig carries the cadence of each background sweep.
type CronConfig struct {
	CompletionInterval time.Duration `envconfig:"RIVERSIDE_CRON_COMPLETION_INTERVAL" default:"1h"`
	ActivationInterval time.Duration `envconfig:"RIVERSIDE_CRON_ACTIVATION_INTERVAL" default:"30m"`
	AuditInterval      time.Duration `envconfig:"RIVERSIDE_CRON_AUDIT_INTERVAL" default:"6h"`
	DeepAuditInterval  time.Duration `envconfig:"RIVERSIDE_CRON_DEEP_AUDIT_INTERVAL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RIVERSIDE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RIVERSIDE_AUTO_MIGRATE" default:"false"`
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
