package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/vaxportal/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfigWithLookuper(context.Background(), "does-not-exist.yaml", envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15, cfg.App.DriveLeadDays)
	assert.Equal(t, 30, cfg.App.UpcomingWindowDays)
	assert.Equal(t, "24h", cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, "vaxportal.activity", cfg.NATS.Subject)
	assert.Empty(t, cfg.NATS.URL)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  read_timeout: 5s
database:
  host: db.internal
  dbname: school
jwt:
  secret: from-file
app:
  timezone: Asia/Kolkata
  drive_lead_days: 20
`)

	cfg, err := config.LoadConfigWithLookuper(context.Background(), path, envconfig.MapLookuper(map[string]string{
		"SERVER_PORT":            "7070",
		"DB_NAME":                "override",
		"NATS_URL":               "nats://localhost:4222",
		"SERVER_ALLOWED_ORIGINS": "http://a.test,http://b.test",
	}))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "override", cfg.Database.DBName)
	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, 20, cfg.App.DriveLeadDays)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{}},
		{name: "bad expiration", env: map[string]string{"JWT_SECRET": "s", "JWT_ACCESS_TOKEN_EXPIRATION": "tomorrow"}},
		{name: "bad timezone", env: map[string]string{"JWT_SECRET": "s", "APP_TIMEZONE": "Mars/Olympus"}},
		{name: "negative lead days", env: map[string]string{"JWT_SECRET": "s", "APP_DRIVE_LEAD_DAYS": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfigWithLookuper(context.Background(), "missing.yaml", envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestGetPostgresConnectionString(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Host = "h"
	cfg.Database.Port = "5432"
	cfg.Database.DBName = "d"

	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", cfg.GetPostgresConnectionString())
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		mode string
		want bool
	}{
		{"production", true},
		{" Production ", true},
		{"development", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Server.Mode = tt.mode
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}
