package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// Method is the channel a communication goes out on.
type Method string

const (
	MethodTwilio Method = "twilio"
	MethodGmail  Method = "gmail"
	MethodNative Method = "native"
)

type Preferences struct {
	Theme       Theme  `json:"theme"`
	CallMethod  Method `json:"call_method"`
	SMSMethod   Method `json:"sms_method"`
	EmailMethod Method `json:"email_method"`
	// NativeFallback opens the device channel when a relay fails.
	NativeFallback bool `json:"native_fallback"`
}

func Defaults() Preferences {
	return Preferences{
		Theme:          ThemeAuto,
		CallMethod:     MethodTwilio,
		SMSMethod:      MethodTwilio,
		EmailMethod:    MethodGmail,
		NativeFallback: true,
	}
}

func (p Preferences) Validate() error {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeAuto:
	default:
		return fmt.Errorf("theme must be light, dark or auto, got %q", p.Theme)
	}
	if p.CallMethod != MethodTwilio && p.CallMethod != MethodNative {
		return fmt.Errorf("call_method must be twilio or native, got %q", p.CallMethod)
	}
	if p.SMSMethod != MethodTwilio && p.SMSMethod != MethodNative {
		return fmt.Errorf("sms_method must be twilio or native, got %q", p.SMSMethod)
	}
	if p.EmailMethod != MethodGmail && p.EmailMethod != MethodNative {
		return fmt.Errorf("email_method must be gmail or native, got %q", p.EmailMethod)
	}
	return nil
}

// Store persists per-user preferences. Get never fails for a user who has
// saved nothing; it returns Defaults.
type Store interface {
	Get(ctx context.Context, userID string) (Preferences, error)
	Put(ctx context.Context, userID string, p Preferences) error
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func prefsKey(userID string) string   { return "prefs:" + userID }
func refreshKey(userID string) string { return "google:refresh:" + userID }

func (s *RedisStore) Get(ctx context.Context, userID string) (Preferences, error) {
	p := Defaults()
	vals, err := s.rdb.HGetAll(ctx, prefsKey(userID)).Result()
	if err != nil {
		return p, fmt.Errorf("read preferences: %w", err)
	}
	if v, ok := vals["theme"]; ok {
		p.Theme = Theme(v)
	}
	if v, ok := vals["call_method"]; ok {
		p.CallMethod = Method(v)
	}
	if v, ok := vals["sms_method"]; ok {
		p.SMSMethod = Method(v)
	}
	if v, ok := vals["email_method"]; ok {
		p.EmailMethod = Method(v)
	}
	if v, ok := vals["native_fallback"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.NativeFallback = b
		}
	}
	// a stored value that no longer validates falls back to defaults
	if err := p.Validate(); err != nil {
		return Defaults(), nil
	}
	return p, nil
}

func (s *RedisStore) Put(ctx context.Context, userID string, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.rdb.HSet(ctx, prefsKey(userID), map[string]any{
		"theme":           string(p.Theme),
		"call_method":     string(p.CallMethod),
		"sms_method":      string(p.SMSMethod),
		"email_method":    string(p.EmailMethod),
		"native_fallback": strconv.FormatBool(p.NativeFallback),
	}).Err()
}

// SaveRefreshToken keeps the Google refresh token a user granted.
func (s *RedisStore) SaveRefreshToken(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return errors.New("user id and token are required")
	}
	return s.rdb.Set(ctx, refreshKey(userID), token, 0).Err()
}

// RefreshToken returns "" when the user never connected Google.
func (s *RedisStore) RefreshToken(ctx context.Context, userID string) (string, error) {
	tok, err := s.rdb.Get(ctx, refreshKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return tok, err
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
