package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the variables a developer shell may carry; viper treats
// empty values as unset.
func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "PORT", "SERVER_PORT", "SERVER_MODE",
		"STATIC_TOKENS", "AUTH_STATIC_TOKENS", "JWT_HMAC_SECRET", "AUTH_JWT_SECRET",
		"RELAY_BURST", "RELAY_TIMEOUT", "TWILIO_ACCOUNT_SID", "TWILIO_FROM_NUMBER"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
server:
  port: 9090
  mode: debug
database:
  url: postgres://localhost/recruitflow
auth:
  static_tokens: ["alpha", " beta ", ""]
twilio:
  account_sid: AC1
relay:
  timeout: 3s
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Auth.StaticTokens)
	assert.Equal(t, 3*time.Second, cfg.Relay.Timeout)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 64, cfg.Realtime.Buffer)
	assert.Equal(t, "json", cfg.Logging.Format)

	rc := cfg.RelaySettings()
	assert.Equal(t, "AC1", rc.Twilio.AccountSID)
	assert.Equal(t, "https://api.twilio.com/2010-04-01", rc.Twilio.BaseURL)
	assert.NotEmpty(t, rc.Google.TokenURL)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
database:
  url: postgres://file/db
auth:
  jwt_secret: from-file
`)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550000000")
	t.Setenv("PORT", "7000")
	t.Setenv("STATIC_TOKENS", "one, two")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "+15550000000", cfg.Twilio.FromNumber)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"one", "two"}, cfg.Auth.StaticTokens)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"no database", "auth:\n  jwt_secret: s\n", "database.url"},
		{"no auth", "database:\n  url: postgres://x\n", "auth.jwt_secret"},
		{"bad mode", "database:\n  url: postgres://x\nauth:\n  jwt_secret: s\nserver:\n  mode: loud\n", "server.mode"},
		{"bad burst", "database:\n  url: postgres://x\nauth:\n  jwt_secret: s\nrelay:\n  burst: -1\n", "relay.rate_per_second"},
	}
	clearEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
