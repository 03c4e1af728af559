package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenLifetime)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenLifetime)
	assert.Equal(t, RotationReuse, cfg.RefreshRotation)
	assert.False(t, cfg.RotateRefreshTokens())
	assert.False(t, cfg.LogoutRevokesAll)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_ACCESS_LIFETIME_MS", "60000")
	t.Setenv("JWT_REFRESH_LIFETIME_MS", "3600000")
	t.Setenv("REFRESH_ROTATION", "rotate")
	t.Setenv("LOGOUT_REVOKES_ALL", "true")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Minute, cfg.AccessTokenLifetime)
	assert.Equal(t, time.Hour, cfg.RefreshTokenLifetime)
	assert.True(t, cfg.RotateRefreshTokens())
	assert.True(t, cfg.LogoutRevokesAll)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
auth:
  jwt:
    secret: "`+testSecret+`"
    accessLifetimeMs: 120000
  refreshRotation: rotate
store:
  driver: memory
cors:
  allowedOrigins: ["https://app.example"]
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "7070", cfg.ServerPort)
	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.AccessTokenLifetime)
	assert.Equal(t, RotationRotate, cfg.RefreshRotation)
	assert.Equal(t, []string{"https://app.example"}, cfg.CORSAllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "JWT_SECRET is required"},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "change-me" }, wantErr: "at least 32 bytes"},
		{name: "bad rotation", mutate: func(c *Config) { c.RefreshRotation = "sometimes" }, wantErr: "REFRESH_ROTATION"},
		{name: "bad driver", mutate: func(c *Config) { c.StoreDriver = "mongo" }, wantErr: "STORE_DRIVER"},
		{name: "bad token store", mutate: func(c *Config) { c.TokenStore = "file" }, wantErr: "TOKEN_STORE"},
		{name: "zero lifetime", mutate: func(c *Config) { c.AccessTokenLifetime = 0 }, wantErr: "JWT_ACCESS_LIFETIME_MS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
