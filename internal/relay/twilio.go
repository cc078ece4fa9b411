package relay

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type CallRequest struct {
	To            string `json:"to"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
}

type CallResult struct {
	CallSID string `json:"callSid"`
	Status  string `json:"status"`
}

type SMSRequest struct {
	To            string `json:"to"`
	Message       string `json:"message"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
}

type SMSResult struct {
	MessageSID string `json:"messageSid"`
	Status     string `json:"status"`
}

// twilioAPIBase is where the SDK sends requests; a different
// TwilioConfig.BaseURL replaces it.
const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// Twilio places calls and texts through the Twilio SDK.
type Twilio struct {
	cfg TwilioConfig
	api *twilio.RestClient
}

func NewTwilio(cfg TwilioConfig, hc *http.Client) *Twilio {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	var httpClient http.Client
	if hc != nil {
		httpClient = *hc
	}
	if cfg.BaseURL != "" && cfg.BaseURL != twilioAPIBase {
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			base := httpClient.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			httpClient.Transport = rebase{to: u, next: base}
		}
	}

	c := &client.Client{
		Credentials: client.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  &httpClient,
	}
	c.SetAccountSid(cfg.AccountSID)
	return &Twilio{
		cfg: cfg,
		api: twilio.NewRestClientWithParams(twilio.ClientParams{Client: c}),
	}
}

// rebase sends SDK requests to another host, keeping the resource path.
type rebase struct {
	to   *url.URL
	next http.RoundTripper
}

func (r rebase) RoundTrip(req *http.Request) (*http.Response, error) {
	prefix := ""
	if u, err := url.Parse(twilioAPIBase); err == nil {
		prefix = u.Path
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = r.to.Scheme
	out.URL.Host = r.to.Host
	out.URL.Path = strings.TrimRight(r.to.Path, "/") + strings.TrimPrefix(req.URL.Path, prefix)
	out.URL.RawPath = ""
	out.Host = r.to.Host
	return r.next.RoundTrip(out)
}

func (t *Twilio) configured(op string) error {
	if t.cfg.AccountSID == "" || t.cfg.AuthToken == "" || t.cfg.FromNumber == "" {
		return fail(op, "Twilio is not configured", nil)
	}
	return nil
}

// twilioFailure maps an SDK error onto the function's failure reason.
func twilioFailure(op string, err error) error {
	var rest *client.TwilioRestError
	if errors.As(err, &rest) {
		reason := rest.Message
		if reason == "" {
			reason = fmt.Sprintf("status %d", rest.Status)
		}
		return fail(op, "Twilio error: "+reason, err)
	}
	return fail(op, "Twilio unreachable", err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// CallTwiML is what the callee hears before the call is bridged.
func CallTwiML(userName, candidateName string) string {
	var msg bytes.Buffer
	msg.WriteString("Hello")
	if candidateName != "" {
		msg.WriteString(" " + candidateName)
	}
	msg.WriteString(", this is a call")
	if userName != "" {
		msg.WriteString(" from " + userName)
	}
	msg.WriteString(" regarding your application.")

	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, msg.Bytes())
	return "<Response><Say>" + escaped.String() + "</Say></Response>"
}

// Call places an outbound voice call.
func (t *Twilio) Call(ctx context.Context, req CallRequest) (res *CallResult, err error) {
	defer func(start time.Time) { observe(FuncMakeCall, start, err) }(time.Now())

	if req.To == "" {
		return nil, fail(FuncMakeCall, "Missing required field: to", nil)
	}
	if err := t.configured(FuncMakeCall); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(FuncMakeCall, "request cancelled", err)
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.To)
	params.SetFrom(t.cfg.FromNumber)
	params.SetTwiml(CallTwiML(req.UserName, req.CandidateName))

	call, err := t.api.Api.CreateCall(params)
	if err != nil {
		return nil, twilioFailure(FuncMakeCall, err)
	}
	if deref(call.Sid) == "" {
		return nil, fail(FuncMakeCall, "Twilio response had no sid", nil)
	}
	return &CallResult{CallSID: *call.Sid, Status: deref(call.Status)}, nil
}

// SMS sends one text message.
func (t *Twilio) SMS(ctx context.Context, req SMSRequest) (res *SMSResult, err error) {
	defer func(start time.Time) { observe(FuncSendSMS, start, err) }(time.Now())

	if req.To == "" || req.Message == "" {
		return nil, fail(FuncSendSMS, "Missing required fields: to, message", nil)
	}
	if err := t.configured(FuncSendSMS); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(FuncSendSMS, "request cancelled", err)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(req.To)
	params.SetFrom(t.cfg.FromNumber)
	params.SetBody(req.Message)

	msg, err := t.api.Api.CreateMessage(params)
	if err != nil {
		return nil, twilioFailure(FuncSendSMS, err)
	}
	if deref(msg.Sid) == "" {
		return nil, fail(FuncSendSMS, "Twilio response had no sid", nil)
	}
	return &SMSResult{MessageSID: *msg.Sid, Status: deref(msg.Status)}, nil
}
