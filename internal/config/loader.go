package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"recruitflow/internal/relay"
)

// Load reads configs/config.yaml when present and lets the environment
// override every key (server.port -> SERVER_PORT).
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// names the service was deployed with before the config tree existed
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_HMAC_SECRET")
	_ = v.BindEnv("auth.static_tokens", "AUTH_STATIC_TOKENS", "STATIC_TOKENS")
	_ = v.BindEnv("google.redirect_url", "GOOGLE_REDIRECT_URL", "GOOGLE_REDIRECT_URI")
	return v
}

// setDefaults also registers every key so AutomaticEnv values reach
// Unmarshal for keys absent from the file.
func setDefaults(v *viper.Viper) {
	rc := relay.DefaultConfig()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.static_tokens", []string{})

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("google.refresh_token", "")
	v.SetDefault("google.gmail_user", "")
	v.SetDefault("google.token_url", rc.Google.TokenURL)
	v.SetDefault("google.api_endpoint", "")

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.from_number", "")
	v.SetDefault("twilio.base_url", rc.Twilio.BaseURL)

	v.SetDefault("relay.timeout", rc.Timeout.String())
	v.SetDefault("relay.rate_per_second", 1.0)
	v.SetDefault("relay.burst", 5)

	v.SetDefault("realtime.buffer", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Auth.StaticTokens = cleanTokens(cfg.Auth.StaticTokens)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func cleanTokens(in []string) []string {
	out := in[:0]
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Validate fails fast on settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" && len(c.Auth.StaticTokens) == 0 {
		return errors.New("auth.jwt_secret or auth.static_tokens is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Redis.Address == "" {
		return errors.New("redis.address is required")
	}
	if c.Relay.RatePerSecond <= 0 || c.Relay.Burst <= 0 {
		return errors.New("relay.rate_per_second and relay.burst must be positive")
	}
	if c.Realtime.Buffer <= 0 {
		return errors.New("realtime.buffer must be positive")
	}
	return c.RelaySettings().Validate()
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
