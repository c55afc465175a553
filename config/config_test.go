package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, MaxBodyBytes: 1 << 20},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef-secret"},
		Scheduling: SchedulingConfig{
			BookingTimeout:     5 * time.Second,
			LockTimeout:        3 * time.Second,
			DefaultSlotMinutes: 30,
			MinDurationMinutes: 15,
			MaxDurationMinutes: 180,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"no body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, true},
		{"no booking timeout", func(c *Config) { c.Scheduling.BookingTimeout = 0 }, true},
		{"lock timeout above booking timeout", func(c *Config) { c.Scheduling.LockTimeout = 10 * time.Second }, true},
		{"min above max", func(c *Config) { c.Scheduling.MinDurationMinutes = 200 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
  env: development
auth:
  jwt_secret: "file-secret-at-least-16"
scheduling:
  booking_timeout: 4s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("SCHEDULIX_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 4*time.Second, cfg.Scheduling.BookingTimeout)
	assert.Equal(t, 3*time.Second, cfg.Scheduling.LockTimeout)
	assert.Equal(t, 15, cfg.Scheduling.MinDurationMinutes)
	assert.Equal(t, "UTC", cfg.Database.Timezone)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 12*time.Hour, cfg.Server.CORS.MaxAge)
}

func TestDSN(t *testing.T) {
	c := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable", Timezone: "UTC"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", c.DSN())
}
