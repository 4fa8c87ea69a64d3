package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("MAINTENANCE_KEY", "sweep")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, TokenFormatJWT, cfg.Auth.TokenFormat)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.VerificationTTL)
	assert.Equal(t, int64(5<<20), cfg.Media.MaxUploadSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("MAINTENANCE_KEY", "sweep")
	t.Setenv("TOKEN_TTL", "60")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("SMTP_USER", "noreply@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "noreply@example.com", cfg.Email.FromEmail)
}

func TestLoad_InvalidSecrets(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "short jwt secret",
			env:  map[string]string{"JWT_SECRET": "short", "MAINTENANCE_KEY": "k"},
		},
		{
			name: "paseto key wrong length",
			env:  map[string]string{"AUTH_TOKEN_FORMAT": "paseto", "PASETO_KEY": "short", "MAINTENANCE_KEY": "k"},
		},
		{
			name: "unknown format",
			env:  map[string]string{"AUTH_TOKEN_FORMAT": "saml", "MAINTENANCE_KEY": "k"},
		},
		{
			name: "missing maintenance key",
			env:  map[string]string{"JWT_SECRET": testSecret},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			t.Setenv("PASETO_KEY", "")
			t.Setenv("AUTH_TOKEN_FORMAT", "")
			t.Setenv("MAINTENANCE_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "d", SSLMode: "require", ChannelBinding: "require"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=require channel_binding=require", c.ConnectionString())
}

func TestLoadDatabase_IgnoresAuthSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MAINTENANCE_KEY", "")
	t.Setenv("DB_NAME", "tasks_ops")

	db := LoadDatabase()

	assert.Equal(t, "tasks_ops", db.DBName)
	assert.Equal(t, "localhost", db.Host)
}
