package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "kanso-streaks", cfg.Auth.Issuer)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.RateWindow)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "postgres://kanso_user:@localhost:5432/kanso_db?sslmode=disable", cfg.DB.DSN())
}

func TestDBConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"Hostname", "db.internal", "postgres://u:p@db.internal:5432/kanso?sslmode=disable"},
		{"IPv4", "10.0.0.5", "postgres://u:p@10.0.0.5:5432/kanso?sslmode=disable"},
		{"IPv6 literal", "::1", "postgres://u:p@[::1]:5432/kanso?sslmode=disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DBConfig{Host: tt.host, Port: "5432", User: "u", Password: "p", Name: "kanso", SSLMode: "disable"}
			assert.Equal(t, tt.want, cfg.DSN())
		})
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE", "Memory")
	t.Setenv("DEFAULT_TIMEZONE", "Europe/Rome")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.app, https://b.app")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("DB_PASSWORD", "p@ss word")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "Europe/Rome", cfg.DefaultTimezone)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.app", "https://b.app"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled())
	assert.Contains(t, cfg.DB.DSN(), "p%40ss%20word")
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()

	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=from-dotenv\n"), 0o600))
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	yamlFile := filepath.Join(dir, "kanso.yaml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("port: \"9090\"\nrate_limit: 5\n"), 0o600))
	t.Setenv("CONFIG_FILE", yamlFile)
	t.Setenv("RATE_LIMIT", "7")

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Auth.Secret)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 7, cfg.RateLimit, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"Missing secret", map[string]string{}, ErrMissingSecret},
		{"Unknown storage", map[string]string{"JWT_SECRET": "x", "STORAGE": "sqlite"}, ErrInvalidStorage},
		{"Bad timezone", map[string]string{"JWT_SECRET": "x", "DEFAULT_TIMEZONE": "Moon/Base"}, nil},
		{"Zero queue", map[string]string{"JWT_SECRET": "x", "WORKER_QUEUE_SIZE": "0"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
