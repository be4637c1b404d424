package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "HOOKLOG_"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Store         StoreConfig          `koanf:"store" validate:"required"`
	Database      DatabaseConfig       `koanf:"database"`
	Redis         RedisConfig          `koanf:"redis"`
	O3            *O3Config            `koanf:"o3"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required,oneof=development staging production test"`
}

type ServerConfig struct {
	Port               string        `koanf:"port" validate:"required,numeric"`
	ReadTimeout        time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout       time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout        time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout    time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins" validate:"required,min=1"`
	// BodyLimit uses echo's size notation, e.g. "1M".
	BodyLimit string `koanf:"body_limit" validate:"required"`
	// RateLimit is webhook POSTs per second per client IP; 0 disables it.
	RateLimit      float64 `koanf:"rate_limit" validate:"gte=0"`
	BetaRedirectTo string  `koanf:"beta_redirect_to" validate:"required"`
}

type StoreConfig struct {
	Backend string `koanf:"backend" validate:"required,oneof=memory postgres redis"`
	// MaxEntries bounds retention to the newest N entries; 0 keeps everything.
	MaxEntries int `koanf:"max_entries" validate:"gte=0"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=0,lte=65535"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int32         `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int32         `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

// Configured reports whether a database connection was configured at all.
func (d DatabaseConfig) Configured() bool { return d.Host != "" }

// URL returns the postgres connection string for the config.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

type RedisConfig struct {
	URL string `koanf:"url" validate:"omitempty,url"`
	Key string `koanf:"key"`
}

// O3Config points at an Akave O3 (S3-compatible) bucket used to archive cleared logs.
type O3Config struct {
	Endpoint  string `koanf:"endpoint" validate:"required,url"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket" validate:"required"`
	Prefix    string `koanf:"prefix"`
}

// Default returns the configuration used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       15 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    30 * time.Second,
			CORSAllowedOrigins: []string{"*"},
			BodyLimit:          "1M",
			RateLimit:          0,
			BetaRedirectTo:     "/admin",
		},
		Store: StoreConfig{Backend: BackendMemory},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
			MigrateOnStart:  true,
		},
		Redis:         RedisConfig{Key: "hooklog:webhook_logs"},
		Observability: DefaultObservabilityConfig(),
	}
}

// envKey maps HOOKLOG_SERVER_READ_TIMEOUT to server.read_timeout.
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
}

// LoadConfig loads the configuration from environment variables using koanf.
// A .env file in the working directory is read first when present.
func LoadConfig() (mainConfig *Config, err error) {
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err = k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	mainConfig = Default()
	if err = k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// in config struct we set Observability as pointer type to check whether it is nil or not
	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err = mainConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// Validate runs struct tag validation plus the checks that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	switch c.Store.Backend {
	case BackendPostgres:
		if !c.Database.Configured() {
			return errors.New("store backend postgres requires HOOKLOG_DATABASE_HOST")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("store backend redis requires HOOKLOG_REDIS_URL")
		}
	}
	if c.Database.Configured() && (c.Database.User == "" || c.Database.Name == "") {
		return errors.New("database user and name are required when a database host is set")
	}

	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return fmt.Errorf("invalid observability config: %w", err)
		}
	}
	return nil
}
