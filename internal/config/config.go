// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML file named by CONFIG_FILE. Environment
// variables win over the file.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var (
	ErrMissingSecret  = errors.New("JWT_SECRET is required")
	ErrInvalidStorage = errors.New("STORAGE must be postgres or memory")
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Attempts int
}

// DSN renders the connection URL for the pgx driver.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type Config struct {
	Port            string
	Storage         string
	DB              DBConfig
	Redis           RedisConfig
	Auth            AuthConfig
	DefaultTimezone string
	RateLimit       int
	RateWindow      time.Duration
	AllowedOrigins  []string
	WorkerQueueSize int
	ShutdownTimeout time.Duration
}

var defaults = map[string]any{
	"port":              "8080",
	"storage":           StoragePostgres,
	"db_host":           "localhost",
	"db_port":           "5432",
	"db_user":           "kanso_user",
	"db_password":       "",
	"db_name":           "kanso_db",
	"db_sslmode":        "disable",
	"db_connect_tries":  5,
	"redis_host":        "",
	"redis_port":        "6379",
	"redis_password":    "",
	"redis_db":          0,
	"jwt_secret":        "",
	"jwt_issuer":        "kanso-streaks",
	"token_ttl":         "72h",
	"default_timezone":  "UTC",
	"rate_limit":        100,
	"rate_window":       "1m",
	"allowed_origins":   "*",
	"worker_queue_size": 100,
	"shutdown_timeout":  "5s",
}

// Load reads the configuration. envFile may be empty; a missing file is not
// an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:    v.GetString("port"),
		Storage: strings.ToLower(v.GetString("storage")),
		DB: DBConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
			Attempts: v.GetInt("db_connect_tries"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis_host"),
			Port:     v.GetString("redis_port"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Auth: AuthConfig{
			Secret:   v.GetString("jwt_secret"),
			Issuer:   v.GetString("jwt_issuer"),
			TokenTTL: v.GetDuration("token_ttl"),
		},
		DefaultTimezone: v.GetString("default_timezone"),
		RateLimit:       v.GetInt("rate_limit"),
		RateWindow:      v.GetDuration("rate_window"),
		AllowedOrigins:  splitList(v.GetString("allowed_origins")),
		WorkerQueueSize: v.GetInt("worker_queue_size"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return ErrMissingSecret
	}
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("%w, got %q", ErrInvalidStorage, c.Storage)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("config: DEFAULT_TIMEZONE: %w", err)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.RateLimit < 0 || c.RateWindow <= 0 {
		return errors.New("config: RATE_LIMIT must be >= 0 and RATE_WINDOW positive")
	}
	if c.WorkerQueueSize < 1 {
		return errors.New("config: WORKER_QUEUE_SIZE must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
