package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Sweep   SweepConfig
	Cache   CacheConfig
	GCS     GCSConfig
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
	Env          string `envconfig:"GATEWATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"GATEWATCH_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GATEWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GATEWATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GATEWATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GATEWATCH_DB_DSN"`
	Driver string `envconfig:"GATEWATCH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GATEWATCH_DB_HOST"`
	Port     int    `envconfig:"GATEWATCH_DB_PORT" default:"5432"`
	User     string `envconfig:"GATEWATCH_DB_USER"`
	Password string `envconfig:"GATEWATCH_DB_PASSWORD"`
	Name     string `envconfig:"GATEWATCH_DB_NAME"`
	SSLMode  string `envconfig:"GATEWATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GATEWATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GATEWATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GATEWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GATEWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds the DSN from discrete parts when GATEWATCH_DB_DSN is not set.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either GATEWATCH_DB_DSN or host/user/name must be provided")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"GATEWATCH_REDIS_URL"`
	Address      string        `envconfig:"GATEWATCH_REDIS_ADDR"`
	Password     string        `envconfig:"GATEWATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"GATEWATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GATEWATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GATEWATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GATEWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GATEWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GATEWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"GATEWATCH_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"GATEWATCH_JWT_ISSUER" default:"gatewatch"`
}

type SweepConfig struct {
	Interval    time.Duration `envconfig:"GATEWATCH_SWEEP_INTERVAL" default:"15m"`
	LockTTL     time.Duration `envconfig:"GATEWATCH_SWEEP_LOCK_TTL" default:"30m"`
	GuestAccess time.Duration `envconfig:"GATEWATCH_GUEST_ACCESS_WINDOW" default:"24h"`
}

type CacheConfig struct {
	ListTTL time.Duration `envconfig:"GATEWATCH_CACHE_LIST_TTL" default:"5m"`
}

type GCSConfig struct {
	BucketName         string `envconfig:"GATEWATCH_GCS_BUCKET"`
	ServiceAccountJSON string `envconfig:"GATEWATCH_GCS_SERVICE_ACCOUNT_JSON"`
}
