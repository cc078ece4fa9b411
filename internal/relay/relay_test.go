package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]string

func (s staticTokens) RefreshToken(_ context.Context, userID string) (string, error) {
	return s[userID], nil
}

// googleStub serves the token endpoint and the Gmail, Tasks and Calendar
// paths the client libraries call when pointed at a custom endpoint.
type googleStub struct {
	*httptest.Server
	tokenCalls  atomic.Int32
	lastRefresh atomic.Value
	lastBody    atomic.Value
	failAPI     bool
}

func newGoogleStub(t *testing.T) *googleStub {
	g := &googleStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		g.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		g.lastRefresh.Store(r.Form.Get("refresh_token"))
		if r.Form.Get("refresh_token") == "revoked" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`)
	})
	api := func(resp string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
			body, _ := io.ReadAll(r.Body)
			g.lastBody.Store(string(body))
			if g.failAPI {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"error":{"code":403,"message":"insufficient scope"}}`)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, resp)
		}
	}
	mux.HandleFunc("/gmail/v1/users/me/messages/send", api(`{"id":"msg-1"}`))
	mux.HandleFunc("/tasks/v1/lists/", api(`{"id":"task-1","title":"Follow up"}`))
	mux.HandleFunc("/users/me/calendarList", api(`{"items":[{"id":"primary","summary":"Recruiting","primary":true,"accessRole":"owner"}]}`))
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			api(`{"id":"ev-1"}`)(w, r)
			return
		}
		api(`{"items":[
			{"id":"a","summary":"Onsite","start":{"dateTime":"2024-05-01T10:00:00Z"},"end":{"dateTime":"2024-05-01T11:00:00Z"},"creator":{"email":"r@example.com"}},
			{"id":"b","summary":"Holiday","start":{"date":"2024-05-02"},"end":{"date":"2024-05-03"}}
		]}`)(w, r)
	})
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func (g *googleStub) config() GoogleConfig {
	return GoogleConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "server-token",
		GmailUser:    "recruiting@example.com",
		TokenURL:     g.URL + "/token",
		APIEndpoint:  g.URL + "/",
	}
}

func TestGmailSend(t *testing.T) {
	g := newGoogleStub(t)
	tokens := NewGoogleTokens(g.config(), staticTokens{"u1": "user-token"}, g.Client())
	gm := NewGmail(tokens, "recruiting@example.com", g.URL+"/")

	res, err := gm.Send(context.Background(), EmailRequest{
		To: "ada@example.com", Subject: "Next steps", Body: "Hi Ada", UserID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, "user-token", g.lastRefresh.Load())

	var sent struct {
		Raw string `json:"raw"`
	}
	require.NoError(t, json.Unmarshal([]byte(g.lastBody.Load().(string)), &sent))
	raw, err := base64.RawURLEncoding.DecodeString(sent.Raw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "To: ada@example.com\r\n")
	assert.Contains(t, string(raw), "From: recruiting@example.com\r\n")
	assert.True(t, strings.HasSuffix(string(raw), "\r\n\r\nHi Ada"))
}

func TestGmailFallsBackToServerToken(t *testing.T) {
	g := newGoogleStub(t)
	gm := NewGmail(NewGoogleTokens(g.config(), staticTokens{}, g.Client()), "", g.URL+"/")

	_, err := gm.Send(context.Background(), EmailRequest{To: "a@example.com", Subject: "s", Body: "b", UserID: "nobody"})
	require.NoError(t, err)
	assert.Equal(t, "server-token", g.lastRefresh.Load())
}

func TestGmailFailures(t *testing.T) {
	g := newGoogleStub(t)

	t.Run("missing fields skip token exchange", func(t *testing.T) {
		gm := NewGmail(NewGoogleTokens(g.config(), nil, g.Client()), "", g.URL+"/")
		before := g.tokenCalls.Load()
		_, err := gm.Send(context.Background(), EmailRequest{To: "a@example.com"})
		require.Error(t, err)
		assert.Equal(t, "Missing required fields: to, subject, body", Reason(err))
		assert.Equal(t, before, g.tokenCalls.Load())
	})

	t.Run("token exchange", func(t *testing.T) {
		cfg := g.config()
		cfg.RefreshToken = "revoked"
		gm := NewGmail(NewGoogleTokens(cfg, nil, g.Client()), "", g.URL+"/")
		_, err := gm.Send(context.Background(), EmailRequest{To: "a@example.com", Subject: "s", Body: "b"})
		var f *Failure
		require.True(t, errors.As(err, &f))
		assert.Equal(t, "Failed to get access token", f.Reason)
		assert.Equal(t, FuncSendEmail, f.Op)
	})

	t.Run("not connected", func(t *testing.T) {
		cfg := g.config()
		cfg.RefreshToken = ""
		gm := NewGmail(NewGoogleTokens(cfg, staticTokens{}, g.Client()), "", g.URL+"/")
		_, err := gm.Send(context.Background(), EmailRequest{To: "a@example.com", Subject: "s", Body: "b", UserID: "u9"})
		assert.Equal(t, "Google account not connected", Reason(err))
	})
}

func TestGmailUpstreamRejection(t *testing.T) {
	g := newGoogleStub(t)
	g.failAPI = true
	gm := NewGmail(NewGoogleTokens(g.config(), nil, g.Client()), "", g.URL+"/")
	_, err := gm.Send(context.Background(), EmailRequest{To: "a@example.com", Subject: "s", Body: "b"})
	assert.Equal(t, "Gmail API error", Reason(err))
}

func TestBuildMessageStripsHeaderBreaks(t *testing.T) {
	msg := string(BuildMessage("", "a@example.com\r\nBcc: evil@example.com", "Hi", "body"))
	assert.NotContains(t, msg, "\r\nBcc:")
}

func TestTasksCreate(t *testing.T) {
	g := newGoogleStub(t)
	tk := NewTasks(NewGoogleTokens(g.config(), nil, g.Client()), g.URL+"/")

	res, err := tk.Create(context.Background(), TaskRequest{Title: "Follow up", Notes: "call back", Due: "2024-06-01"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", res.TaskID)
	require.NotNil(t, res.Task)
	assert.Equal(t, "Follow up", res.Task.Title)
	assert.Contains(t, g.lastBody.Load().(string), `"due":"2024-06-01T00:00:00Z"`)

	_, err = tk.Create(context.Background(), TaskRequest{})
	assert.Equal(t, "Missing required field: title", Reason(err))

	_, err = tk.Create(context.Background(), TaskRequest{Title: "x", Due: "soon"})
	assert.Error(t, err)
}

func TestCalendarInsertAndList(t *testing.T) {
	g := newGoogleStub(t)
	cal := NewCalendar(NewGoogleTokens(g.config(), nil, g.Client()), g.URL+"/")
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := cal.Insert(context.Background(), EventRequest{Title: "Onsite", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "ev-1", id)

	_, err = cal.Insert(context.Background(), EventRequest{Title: "Onsite", Start: start, End: start})
	assert.Error(t, err)

	events, err := cal.List(context.Background(), "", "", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, start, events[0].StartTime.UTC())
	assert.Equal(t, "r@example.com", events[0].Creator)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), events[1].StartTime)
}

func TestCalendarList(t *testing.T) {
	g := newGoogleStub(t)
	cal := NewCalendar(NewGoogleTokens(g.config(), nil, g.Client()), g.URL+"/")

	cals, err := cal.Calendars(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.True(t, cals[0].Primary)
	assert.Equal(t, "owner", cals[0].AccessRole)
}

func twilioStub(t *testing.T, status int, resp string) (*httptest.Server, *atomic.Value) {
	var form atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "tok", pass)
		assert.NoError(t, r.ParseForm())
		form.Store(struct {
			Path string
			Form url.Values
		}{r.URL.Path, r.PostForm})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &form
}

func twilioFor(srv *httptest.Server) *Twilio {
	return NewTwilio(TwilioConfig{AccountSID: "AC123", AuthToken: "tok", FromNumber: "+15550000000", BaseURL: srv.URL + "/"}, srv.Client())
}

func TestTwilioSMS(t *testing.T) {
	srv, seen := twilioStub(t, http.StatusCreated, `{"sid":"SM1","status":"queued"}`)
	res, err := twilioFor(srv).SMS(context.Background(), SMSRequest{To: "+15551234567", Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "SM1", res.MessageSID)
	assert.Equal(t, "queued", res.Status)

	got := seen.Load().(struct {
		Path string
		Form url.Values
	})
	assert.Equal(t, "/Accounts/AC123/Messages.json", got.Path)
	assert.Equal(t, "Hello", got.Form.Get("Body"))
	assert.Equal(t, "+15550000000", got.Form.Get("From"))
}

func TestTwilioCall(t *testing.T) {
	srv, seen := twilioStub(t, http.StatusCreated, `{"sid":"CA1","status":"queued"}`)
	res, err := twilioFor(srv).Call(context.Background(), CallRequest{To: "+15551234567", CandidateName: "Ada & Co", UserName: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "CA1", res.CallSID)

	got := seen.Load().(struct {
		Path string
		Form url.Values
	})
	assert.Equal(t, "/Accounts/AC123/Calls.json", got.Path)
	assert.Contains(t, got.Form.Get("Twiml"), "Ada &amp; Co")
}

func TestTwilioFailures(t *testing.T) {
	srv, _ := twilioStub(t, http.StatusBadRequest, `{"code":21211,"message":"The 'To' number is not a valid phone number."}`)
	_, err := twilioFor(srv).SMS(context.Background(), SMSRequest{To: "123", Message: "Hello"})
	assert.Equal(t, "Twilio error: The 'To' number is not a valid phone number.", Reason(err))

	_, err = twilioFor(srv).SMS(context.Background(), SMSRequest{To: "123"})
	assert.Equal(t, "Missing required fields: to, message", Reason(err))

	unconfigured := NewTwilio(TwilioConfig{BaseURL: srv.URL}, nil)
	_, err = unconfigured.Call(context.Background(), CallRequest{To: "+1555"})
	assert.Equal(t, "Twilio is not configured", Reason(err))

	unreachable := NewTwilio(TwilioConfig{AccountSID: "AC123", AuthToken: "tok", FromNumber: "+1", BaseURL: "http://127.0.0.1:1"}, nil)
	_, err = unreachable.SMS(context.Background(), SMSRequest{To: "+1555", Message: "x"})
	assert.Equal(t, "Twilio unreachable", Reason(err))
}

func TestTwilioCancelledBeforeSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := twilioFor(srv).Call(ctx, CallRequest{To: "+15551234567"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRebaseKeepsResourcePath(t *testing.T) {
	var got string
	next := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.URL.String()
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}")), Request: r}, nil
	})
	to, err := url.Parse("http://relay.internal:8080/twilio")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, twilioAPIBase+"/Accounts/AC123/Calls.json", nil)
	_, err = rebase{to: to, next: next}.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "http://relay.internal:8080/twilio/Accounts/AC123/Calls.json", got)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.TwilioConfigured())

	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())
}
