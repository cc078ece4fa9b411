// Package relay forwards one communication or task request to a third-party
// provider per call: Twilio for voice and SMS, Gmail for mail, Google Tasks
// and Calendar for scheduling. Nothing is retried and nothing is stored.
package relay

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2/google"

	"recruitflow/internal/metrics"
)

// Function names as exposed over HTTP.
const (
	FuncMakeCall   = "make-call"
	FuncSendSMS    = "send-sms"
	FuncSendEmail  = "send-email"
	FuncCreateTask = "create-task"
	FuncCalendar   = "calendar"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// RefreshToken is the server-held token used when a user has not
	// connected their own account.
	RefreshToken string
	GmailUser    string
	TokenURL     string
	// APIEndpoint overrides the Google API base URL. Empty means the
	// library default.
	APIEndpoint string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
}

type Config struct {
	Google  GoogleConfig
	Twilio  TwilioConfig
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Google:  GoogleConfig{TokenURL: google.Endpoint.TokenURL},
		Twilio:  TwilioConfig{BaseURL: "https://api.twilio.com/2010-04-01"},
		Timeout: 15 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("relay timeout must be positive")
	}
	if _, err := url.ParseRequestURI(c.Twilio.BaseURL); err != nil {
		return fmt.Errorf("twilio base url: %w", err)
	}
	if _, err := url.ParseRequestURI(c.Google.TokenURL); err != nil {
		return fmt.Errorf("google token url: %w", err)
	}
	return nil
}

func (c Config) TwilioConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.FromNumber != ""
}

func (c Config) GoogleConfigured() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// Failure is a relay error with a reason fit to show the user.
type Failure struct {
	Op     string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Reason, f.Err)
	}
	return f.Op + ": " + f.Reason
}

func (f *Failure) Unwrap() error { return f.Err }

func fail(op, reason string, err error) *Failure {
	return &Failure{Op: op, Reason: reason, Err: err}
}

// Reason extracts the user-facing reason from err.
func Reason(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func observe(fn string, start time.Time, err error) {
	metrics.RelayDuration.WithLabelValues(fn).Observe(time.Since(start).Seconds())
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	metrics.RelayCalls.WithLabelValues(fn, outcome).Inc()
}

// Relays bundles the providers behind one value for wiring.
type Relays struct {
	Tokens   *GoogleTokens
	Twilio   *Twilio
	Gmail    *Gmail
	Tasks    *Tasks
	Calendar *Calendar
}

func New(cfg Config, store TokenStore) *Relays {
	hc := &http.Client{Timeout: cfg.Timeout}
	tokens := NewGoogleTokens(cfg.Google, store, hc)
	return &Relays{
		Tokens:   tokens,
		Twilio:   NewTwilio(cfg.Twilio, hc),
		Gmail:    NewGmail(tokens, cfg.Google.GmailUser, cfg.Google.APIEndpoint),
		Tasks:    NewTasks(tokens, cfg.Google.APIEndpoint),
		Calendar: NewCalendar(tokens, cfg.Google.APIEndpoint),
	}
}
