package relay

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// TokenStore returns the refresh token a user stored when connecting their
// Google account, or "" if they never did.
type TokenStore interface {
	RefreshToken(ctx context.Context, userID string) (string, error)
}

// GoogleTokens turns a refresh token into an authorised HTTP client.
type GoogleTokens struct {
	conf     *oauth2.Config
	fallback string
	store    TokenStore
	hc       *http.Client
}

func NewGoogleTokens(cfg GoogleConfig, store TokenStore, hc *http.Client) *GoogleTokens {
	endpoint := google.Endpoint
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	return &GoogleTokens{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				gmail.GmailSendScope,
				tasks.TasksScope,
				calendar.CalendarEventsScope,
			},
			Endpoint: endpoint,
		},
		fallback: cfg.RefreshToken,
		store:    store,
		hc:       hc,
	}
}

// OAuthConfig is used by the connect/callback flow.
func (g *GoogleTokens) OAuthConfig() *oauth2.Config { return g.conf }

func (g *GoogleTokens) withClient(ctx context.Context) context.Context {
	if g.hc == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.hc)
}

// Exchange trades an authorization code from the consent redirect for a
// token.
func (g *GoogleTokens) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.conf.Exchange(g.withClient(ctx), code, oauth2.AccessTypeOffline)
}

func (g *GoogleTokens) refreshToken(ctx context.Context, op, userID string) (string, error) {
	if g.store != nil && userID != "" {
		rt, err := g.store.RefreshToken(ctx, userID)
		if err != nil {
			return "", fail(op, "could not read stored Google credentials", err)
		}
		if rt != "" {
			return rt, nil
		}
	}
	if g.fallback != "" {
		return g.fallback, nil
	}
	return "", fail(op, "Google account not connected", nil)
}

// Client exchanges the user's refresh token (or the server-held one) for an
// access token and returns a client that sends it.
func (g *GoogleTokens) Client(ctx context.Context, op, userID string) (*http.Client, error) {
	if g.conf.ClientID == "" || g.conf.ClientSecret == "" {
		return nil, fail(op, "Google is not configured", nil)
	}
	rt, err := g.refreshToken(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	ctx = g.withClient(ctx)
	tok, err := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return nil, fail(op, "Failed to get access token", err)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok)), nil
}

func serviceOptions(client *http.Client, endpoint string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}
