package config

import (
	"time"

	"recruitflow/internal/relay"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Google   GoogleConfig   `mapstructure:"google"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
	// Migrations is applied at startup when non-empty.
	Migrations string `mapstructure:"migrations"`
	MaxConns   int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	StaticTokens []string `mapstructure:"static_tokens"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	RefreshToken string `mapstructure:"refresh_token"`
	GmailUser    string `mapstructure:"gmail_user"`
	TokenURL     string `mapstructure:"token_url"`
	APIEndpoint  string `mapstructure:"api_endpoint"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	BaseURL    string `mapstructure:"base_url"`
}

type RelayConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// RatePerSecond and Burst bound relay calls per client.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type RealtimeConfig struct {
	// Buffer is the per-subscriber channel size on the change hub.
	Buffer int `mapstructure:"buffer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RelaySettings maps the loaded settings onto the relay package.
func (c *Config) RelaySettings() relay.Config {
	return relay.Config{
		Google: relay.GoogleConfig{
			ClientID:     c.Google.ClientID,
			ClientSecret: c.Google.ClientSecret,
			RedirectURL:  c.Google.RedirectURL,
			RefreshToken: c.Google.RefreshToken,
			GmailUser:    c.Google.GmailUser,
			TokenURL:     c.Google.TokenURL,
			APIEndpoint:  c.Google.APIEndpoint,
		},
		Twilio: relay.TwilioConfig{
			AccountSID: c.Twilio.AccountSID,
			AuthToken:  c.Twilio.AuthToken,
			FromNumber: c.Twilio.FromNumber,
			BaseURL:    c.Twilio.BaseURL,
		},
		Timeout: c.Relay.Timeout,
	}
}
