// Package comms runs a user-initiated call, text or email end to end: it
// picks the channel from the user's preferences, invokes the relay, falls
// back to the device's own app when allowed, and records what happened.
package comms

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"recruitflow/internal/candidate"
	"recruitflow/internal/metrics"
	"recruitflow/internal/preferences"
	"recruitflow/internal/relay"
	"recruitflow/internal/store"
)

// Recorder is the part of the store a dispatch writes to.
type Recorder interface {
	LogCall(ctx context.Context, c store.Call) (store.Call, error)
	LogSMS(ctx context.Context, m store.SMS) (store.SMS, error)
	LogEmail(ctx context.Context, e store.Email) (store.Email, error)
	CreateActivity(ctx context.Context, candidateID string, typ store.ActivityType, description string, by store.Actor) (store.Activity, error)
	CreateTask(ctx context.Context, in store.NewTask, assignee store.Actor) (store.Task, error)
	SetGoogleTaskID(ctx context.Context, id, googleID string) error
	CreateEvent(ctx context.Context, candidateID string, in store.EventInput, by store.Actor) (store.CalendarEvent, error)
	SetGoogleEventID(ctx context.Context, id, googleID string) error
}

type Voice interface {
	Call(ctx context.Context, req relay.CallRequest) (*relay.CallResult, error)
	SMS(ctx context.Context, req relay.SMSRequest) (*relay.SMSResult, error)
}

type Mailer interface {
	Send(ctx context.Context, req relay.EmailRequest) (*relay.EmailResult, error)
}

type TaskCreator interface {
	Create(ctx context.Context, req relay.TaskRequest) (*relay.TaskResult, error)
}

type EventPusher interface {
	Insert(ctx context.Context, req relay.EventRequest) (string, error)
}

type Channel string

const (
	ChannelCall  Channel = "call"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// StatusNative marks a comm record that was handed to the device.
const StatusNative = "native"

// Outcome tells the client what was done. When IntentURL is set the client
// opens it to finish the communication on the device.
type Outcome struct {
	Channel   Channel            `json:"channel"`
	Method    preferences.Method `json:"method"`
	ID        string             `json:"id,omitempty"`
	Status    string             `json:"status,omitempty"`
	IntentURL string             `json:"intent_url,omitempty"`
	Fallback  bool               `json:"fallback"`
	// Reason is the relay failure that caused a fallback.
	Reason string `json:"reason,omitempty"`
}

type CallInput struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	Phone         string `json:"phone"`
}

type SMSInput struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	Phone         string `json:"phone"`
	Message       string `json:"message"`
}

type EmailInput struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

type Dispatcher struct {
	rec      Recorder
	prefs    preferences.Store
	voice    Voice
	mail     Mailer
	tasks    TaskCreator
	calendar EventPusher
	log      *zap.Logger
}

func NewDispatcher(rec Recorder, prefs preferences.Store, voice Voice, mail Mailer, tasks TaskCreator, calendar EventPusher, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		rec:      rec,
		prefs:    prefs,
		voice:    voice,
		mail:     mail,
		tasks:    tasks,
		calendar: calendar,
		log:      log,
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &candidate.ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// prefsFor reads preferences once per dispatch; a read failure falls back to
// defaults so a Redis outage does not block outreach
func (d *Dispatcher) prefsFor(ctx context.Context, userID string) preferences.Preferences {
	p, err := d.prefs.Get(ctx, userID)
	if err != nil {
		d.log.Warn("preferences unavailable, using defaults", zap.String("user_id", userID), zap.Error(err))
		return preferences.Defaults()
	}
	return p
}

// CallIntent is the dialer URL for phone.
func CallIntent(phone string) string {
	return "tel:" + strings.ReplaceAll(phone, " ", "")
}

// SMSIntent is the messaging URL for phone with a prefilled body.
func SMSIntent(phone, body string) string {
	u := "sms:" + strings.ReplaceAll(phone, " ", "")
	if body != "" {
		u += "?body=" + strings.ReplaceAll(url.QueryEscape(body), "+", "%20")
	}
	return u
}

// EmailIntent is the mail composer URL.
func EmailIntent(to, subject, body string) string {
	q := url.Values{}
	if subject != "" {
		q.Set("subject", subject)
	}
	if body != "" {
		q.Set("body", body)
	}
	u := "mailto:" + to
	if len(q) > 0 {
		// mail clients expect %20, not +
		u += "?" + strings.ReplaceAll(q.Encode(), "+", "%20")
	}
	return u
}

func callDescription(name, phone string) string {
	if name != "" {
		return "Called " + name + " at " + phone
	}
	return "Called " + phone
}

func smsDescription(name, phone string) string {
	if name != "" {
		return "SMS sent to " + name
	}
	return "SMS sent to " + phone
}

func emailDescription(name, subject string) string {
	if name != "" {
		return "Email sent to " + name + ": " + subject
	}
	return "Email sent: " + subject
}

// fallback reports whether a relay failure should go native instead.
func (d *Dispatcher) fallback(p preferences.Preferences, ch Channel, err error) bool {
	if !p.NativeFallback {
		return false
	}
	// cancelled requests are the caller giving up, not a channel failure
	if errors.Is(err, context.Canceled) {
		return false
	}
	reason := "relay_error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	metrics.NativeFallbacks.WithLabelValues(string(ch), reason).Inc()
	return true
}

// record writes the activity; the communication already happened so a
// failure here is logged and swallowed.
func (d *Dispatcher) record(ctx context.Context, candidateID string, typ store.ActivityType, desc string, by store.Actor) {
	if _, err := d.rec.CreateActivity(ctx, candidateID, typ, desc, by); err != nil {
		d.log.Error("failed to record activity",
			zap.String("candidate_id", candidateID),
			zap.String("activity_type", string(typ)),
			zap.Error(err))
	}
}

func (d *Dispatcher) Call(ctx context.Context, in CallInput, by store.Actor) (*Outcome, error) {
	if err := required("candidate_id", in.CandidateID); err != nil {
		return nil, err
	}
	if err := required("phone", in.Phone); err != nil {
		return nil, err
	}
	p := d.prefsFor(ctx, by.ID)
	if p.CallMethod == preferences.MethodNative {
		return d.nativeCall(ctx, in, by, nil)
	}

	res, err := d.voice.Call(ctx, relay.CallRequest{
		To:            in.Phone,
		CandidateID:   in.CandidateID,
		CandidateName: in.CandidateName,
		UserID:        by.ID,
		UserName:      by.Name,
	})
	if err != nil {
		d.log.Warn("call relay failed", zap.String("candidate_id", in.CandidateID), zap.Error(err))
		if d.fallback(p, ChannelCall, err) {
			return d.nativeCall(ctx, in, by, err)
		}
		return nil, err
	}

	if _, err := d.rec.LogCall(ctx, store.Call{
		CandidateID:   in.CandidateID,
		CallType:      "outbound",
		PhoneNumber:   in.Phone,
		Status:        res.Status,
		TwilioCallSID: res.CallSID,
		CreatedBy:     by.ID,
		CreatedByName: by.Name,
	}); err != nil {
		d.log.Error("failed to log call", zap.String("candidate_id", in.CandidateID), zap.Error(err))
	}
	d.record(ctx, in.CandidateID, store.ActivityCall, callDescription(in.CandidateName, in.Phone), by)
	return &Outcome{Channel: ChannelCall, Method: preferences.MethodTwilio, ID: res.CallSID, Status: res.Status}, nil
}

func (d *Dispatcher) nativeCall(ctx context.Context, in CallInput, by store.Actor, cause error) (*Outcome, error) {
	if _, err := d.rec.LogCall(ctx, store.Call{
		CandidateID:   in.CandidateID,
		CallType:      "outbound",
		PhoneNumber:   in.Phone,
		Status:        StatusNative,
		CreatedBy:     by.ID,
		CreatedByName: by.Name,
	}); err != nil {
		d.log.Error("failed to log call", zap.String("candidate_id", in.CandidateID), zap.Error(err))
	}
	d.record(ctx, in.CandidateID, store.ActivityCall, callDescription(in.CandidateName, in.Phone), by)
	return native(ChannelCall, CallIntent(in.Phone), cause), nil
}

func (d *Dispatcher) SMS(ctx context.Context, in SMSInput, by store.Actor) (*Outcome, error) {
	if err := required("candidate_id", in.CandidateID); err != nil {
		return nil, err
	}
	if err := required("phone", in.Phone); err != nil {
		return nil, err
	}
	if err := required("message", in.Message); err != nil {
		return nil, err
	}
	p := d.prefsFor(ctx, by.ID)
	if p.SMSMethod == preferences.MethodNative {
		return d.nativeSMS(ctx, in, by, nil)
	}

	res, err := d.voice.SMS(ctx, relay.SMSRequest{
		To:            in.Phone,
		Message:       in.Message,
		CandidateID:   in.CandidateID,
		CandidateName: in.CandidateName,
		UserID:        by.ID,
		UserName:      by.Name,
	})
	if err != nil {
		d.log.Warn("sms relay failed", zap.String("candidate_id", in.CandidateID), zap.Error(err))
		if d.fallback(p, ChannelSMS, err) {
			return d.nativeSMS(ctx, in, by, err)
		}
		return nil, err
	}

	if _, err := d.rec.LogSMS(ctx, store.SMS{
		CandidateID:      in.CandidateID,
		Direction:        "outbound",
		PhoneNumber:      in.Phone,
		MessageBody:      in.Message,
		Status:           res.Status,
		TwilioMessageSID: res.MessageSID,
		CreatedBy:        by.ID,
		CreatedByName:    by.Name,
	}); err != nil {
		d.log.Error("failed to log sms", zap.String("candidate_id", in.CandidateID), zap.Error(err))
	}
	d.record(ctx, in.CandidateID, store.ActivitySMS, smsDescription(in.CandidateName, in.Phone), by)
	return &Outcome{Channel: ChannelSMS, Method: preferences.MethodTwilio, ID: res.MessageSID, Status: res.Status}, nil
}

func (d *Dispatcher) nativeSMS(ctx context.Context, in SMSInput, by store.Actor, cause error) (*Outcome, error) {
	if _, err := d.rec.LogSMS(ctx, store.SMS{
		CandidateID:   in.CandidateID,
		Direction:     "outbound",
		PhoneNumber:   in.Phone,
		MessageBody:   in.Message,
		Status:        StatusNative,
		CreatedBy:     by.ID,
		CreatedByName: by.Name,
	}); err != nil {
		d.log.Error("failed to log sms", zap.String("candidate_id", in.CandidateID), zap.Error(err))
	}
	d.record(ctx, in.CandidateID, store.ActivitySMS, smsDescription(in.CandidateName, in.Phone), by)
	return native(ChannelSMS, SMSIntent(in.Phone, in.Message), cause), nil
}

func (d *Dispatcher) Email(ctx context.Context, in EmailInput, by store.Actor) (*Outcome, error) {
	if err := required("candidate_id", in.CandidateID); err != nil {
		return nil, err
	}
	if err := candidate.ValidateEmail(in.To); err != nil {
		return nil, err
	}
	if err := required("subject", in.Subject); err != nil {
		return nil, err
	}
	if err := required("body", in.Body); err != nil {
		return nil, err
	}
	p := d.prefsFor(ctx, by.ID)
	if p.EmailMethod == preferences.MethodNative {
		return d.nativeEmail(ctx, in, by, nil)
	}

	res, err := d.mail.Send(ctx, relay.EmailRequest{
		To:            in.To,
		Subject:       in.Subject,
		Body:          in.Body,
		CandidateID:   in.CandidateID,
		CandidateName: in.CandidateName,
		UserID:        by.ID,
		UserName:      by.Name,
	})
	if err != nil {
		d.log.Warn("email relay failed", zap.String("candidate_id", in.CandidateID), zap.Error(err))
		if d.fallback(p, ChannelEmail, err) {
			return d.nativeEmail(ctx, in, by, err)
		}
		return nil, err
	}

	if _, err := d.rec.LogEmail(ctx, store.Email{
		CandidateID:    in.CandidateID,
		Direction:      "outbound",
		ToEmail:        in.To,
		Subject:        in.Subject,
		Body:           in.Body,
		Status:         "sent",
		GmailMessageID: res.MessageID,
		CreatedBy:      by.ID,
		CreatedByName:  by.Name,
	}); err != nil {
		d.log.Error("failed to log email", zap.String("candidate_id", in.CandidateID), zap.Error(err))
	}
	d.record(ctx, in.CandidateID, store.ActivityEmail, emailDescription(in.CandidateName, in.Subject), by)
	return &Outcome{Channel: ChannelEmail, Method: preferences.MethodGmail, ID: res.MessageID, Status: "sent"}, nil
}

func (d *Dispatcher) nativeEmail(ctx context.Context, in EmailInput, by store.Actor, cause error) (*Outcome, error) {
	if _, err := d.rec.LogEmail(ctx, store.Email{
		CandidateID:   in.CandidateID,
		Direction:     "outbound",
		ToEmail:       in.To,
		Subject:       in.Subject,
		Body:          in.Body,
		Status:        StatusNative,
		CreatedBy:     by.ID,
		CreatedByName: by.Name,
	}); err != nil {
		d.log.Error("failed to log email", zap.String("candidate_id", in.CandidateID), zap.Error(err))
	}
	d.record(ctx, in.CandidateID, store.ActivityEmail, emailDescription(in.CandidateName, in.Subject), by)
	return native(ChannelEmail, EmailIntent(in.To, in.Subject, in.Body), cause), nil
}

func native(ch Channel, intent string, cause error) *Outcome {
	o := &Outcome{Channel: ch, Method: preferences.MethodNative, Status: StatusNative, IntentURL: intent}
	if cause != nil {
		o.Fallback = true
		o.Reason = relay.Reason(cause)
	}
	return o
}
