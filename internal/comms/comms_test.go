package comms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"recruitflow/internal/candidate"
	"recruitflow/internal/preferences"
	"recruitflow/internal/relay"
	"recruitflow/internal/store"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) LogCall(ctx context.Context, c store.Call) (store.Call, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(store.Call), args.Error(1)
}

func (m *MockRecorder) LogSMS(ctx context.Context, s store.SMS) (store.SMS, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(store.SMS), args.Error(1)
}

func (m *MockRecorder) LogEmail(ctx context.Context, e store.Email) (store.Email, error) {
	args := m.Called(ctx, e)
	return args.Get(0).(store.Email), args.Error(1)
}

func (m *MockRecorder) CreateActivity(ctx context.Context, candidateID string, typ store.ActivityType, description string, by store.Actor) (store.Activity, error) {
	args := m.Called(ctx, candidateID, typ, description, by)
	return args.Get(0).(store.Activity), args.Error(1)
}

func (m *MockRecorder) CreateTask(ctx context.Context, in store.NewTask, assignee store.Actor) (store.Task, error) {
	args := m.Called(ctx, in, assignee)
	return args.Get(0).(store.Task), args.Error(1)
}

func (m *MockRecorder) SetGoogleTaskID(ctx context.Context, id, googleID string) error {
	return m.Called(ctx, id, googleID).Error(0)
}

func (m *MockRecorder) CreateEvent(ctx context.Context, candidateID string, in store.EventInput, by store.Actor) (store.CalendarEvent, error) {
	args := m.Called(ctx, candidateID, in, by)
	return args.Get(0).(store.CalendarEvent), args.Error(1)
}

func (m *MockRecorder) SetGoogleEventID(ctx context.Context, id, googleID string) error {
	return m.Called(ctx, id, googleID).Error(0)
}

type MockRelays struct {
	mock.Mock
}

func (m *MockRelays) Call(ctx context.Context, req relay.CallRequest) (*relay.CallResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*relay.CallResult)
	return res, args.Error(1)
}

func (m *MockRelays) SMS(ctx context.Context, req relay.SMSRequest) (*relay.SMSResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*relay.SMSResult)
	return res, args.Error(1)
}

func (m *MockRelays) Send(ctx context.Context, req relay.EmailRequest) (*relay.EmailResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*relay.EmailResult)
	return res, args.Error(1)
}

func (m *MockRelays) Create(ctx context.Context, req relay.TaskRequest) (*relay.TaskResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*relay.TaskResult)
	return res, args.Error(1)
}

func (m *MockRelays) Insert(ctx context.Context, req relay.EventRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type fixedPrefs struct {
	p   preferences.Preferences
	err error
}

func (f fixedPrefs) Get(context.Context, string) (preferences.Preferences, error) { return f.p, f.err }
func (f fixedPrefs) Put(context.Context, string, preferences.Preferences) error  { return nil }

var sam = store.Actor{ID: "u1", Name: "Sam"}

func newDispatcher(t *testing.T, p preferences.Preferences) (*Dispatcher, *MockRecorder, *MockRelays) {
	rec := &MockRecorder{}
	rl := &MockRelays{}
	t.Cleanup(func() {
		rec.AssertExpectations(t)
		rl.AssertExpectations(t)
	})
	return NewDispatcher(rec, fixedPrefs{p: p}, rl, rl, rl, rl, zaptest.NewLogger(t)), rec, rl
}

func TestCallViaRelay(t *testing.T) {
	d, rec, rl := newDispatcher(t, preferences.Defaults())
	ctx := context.Background()

	rl.On("Call", ctx, relay.CallRequest{To: "+15551234567", CandidateID: "c1", CandidateName: "Ada Lovelace", UserID: "u1", UserName: "Sam"}).
		Return(&relay.CallResult{CallSID: "CA1", Status: "queued"}, nil).Once()
	rec.On("LogCall", ctx, mock.MatchedBy(func(c store.Call) bool {
		return c.TwilioCallSID == "CA1" && c.Status == "queued" && c.CallType == "outbound"
	})).Return(store.Call{ID: "call-1"}, nil).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivityCall, "Called Ada Lovelace at +15551234567", sam).
		Return(store.Activity{}, nil).Once()

	out, err := d.Call(ctx, CallInput{CandidateID: "c1", CandidateName: "Ada Lovelace", Phone: "+15551234567"}, sam)
	require.NoError(t, err)
	assert.Equal(t, "CA1", out.ID)
	assert.Equal(t, preferences.MethodTwilio, out.Method)
	assert.False(t, out.Fallback)
	assert.Empty(t, out.IntentURL)
}

func TestRelayFailureFallsBackToNative(t *testing.T) {
	d, rec, rl := newDispatcher(t, preferences.Defaults())
	ctx := context.Background()
	upstream := &relay.Failure{Op: relay.FuncSendSMS, Reason: "Twilio error: invalid number"}

	rl.On("SMS", ctx, mock.Anything).Return(nil, upstream).Once()
	rec.On("LogSMS", ctx, mock.MatchedBy(func(s store.SMS) bool {
		return s.Status == StatusNative && s.TwilioMessageSID == ""
	})).Return(store.SMS{}, nil).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivitySMS, "SMS sent to Ada", sam).
		Return(store.Activity{}, nil).Once()

	out, err := d.SMS(ctx, SMSInput{CandidateID: "c1", CandidateName: "Ada", Phone: "+1 555", Message: "See you at 3"}, sam)
	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, preferences.MethodNative, out.Method)
	assert.Equal(t, "Twilio error: invalid number", out.Reason)
	assert.Equal(t, "sms:+1555?body=See%20you%20at%203", out.IntentURL)
}

func TestRelayFailureWithoutFallbackRecordsNothing(t *testing.T) {
	p := preferences.Defaults()
	p.NativeFallback = false
	d, rec, rl := newDispatcher(t, p)
	ctx := context.Background()
	upstream := &relay.Failure{Op: relay.FuncSendEmail, Reason: "Gmail API error"}

	rl.On("Send", ctx, mock.Anything).Return(nil, upstream).Once()

	out, err := d.Email(ctx, EmailInput{CandidateID: "c1", To: "ada@example.com", Subject: "Hi", Body: "Hello"}, sam)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, upstream)
	rec.AssertNotCalled(t, "CreateActivity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	rec.AssertNotCalled(t, "LogEmail", mock.Anything, mock.Anything)
}

func TestNativePreferenceSkipsRelay(t *testing.T) {
	p := preferences.Defaults()
	p.EmailMethod = preferences.MethodNative
	d, rec, rl := newDispatcher(t, p)
	ctx := context.Background()

	rec.On("LogEmail", ctx, mock.Anything).Return(store.Email{}, nil).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivityEmail, "Email sent: Next steps", sam).
		Return(store.Activity{}, nil).Once()

	out, err := d.Email(ctx, EmailInput{CandidateID: "c1", To: "ada@example.com", Subject: "Next steps", Body: "Hi Ada"}, sam)
	require.NoError(t, err)
	assert.False(t, out.Fallback)
	assert.Equal(t, "mailto:ada@example.com?body=Hi%20Ada&subject=Next%20steps", out.IntentURL)
	rl.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestValidationHappensBeforeRelay(t *testing.T) {
	d, _, _ := newDispatcher(t, preferences.Defaults())
	ctx := context.Background()

	var verr *candidate.ValidationError
	_, err := d.Call(ctx, CallInput{CandidateID: "c1"}, sam)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)

	_, err = d.SMS(ctx, SMSInput{CandidateID: "c1", Phone: "+1555"}, sam)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "message", verr.Field)

	_, err = d.Email(ctx, EmailInput{CandidateID: "c1", To: "not-an-address", Subject: "s", Body: "b"}, sam)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestPreferenceOutageUsesDefaults(t *testing.T) {
	rec := &MockRecorder{}
	rl := &MockRelays{}
	d := NewDispatcher(rec, fixedPrefs{err: errors.New("redis down")}, rl, rl, rl, rl, zaptest.NewLogger(t))
	ctx := context.Background()

	rl.On("Call", ctx, mock.Anything).Return(&relay.CallResult{CallSID: "CA2", Status: "queued"}, nil).Once()
	rec.On("LogCall", ctx, mock.Anything).Return(store.Call{}, nil).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivityCall, "Called +1555", sam).Return(store.Activity{}, nil).Once()

	out, err := d.Call(ctx, CallInput{CandidateID: "c1", Phone: "+1555"}, sam)
	require.NoError(t, err)
	assert.Equal(t, "CA2", out.ID)
	rec.AssertExpectations(t)
	rl.AssertExpectations(t)
}

func TestCreateTaskMirrorsToGoogle(t *testing.T) {
	d, rec, rl := newDispatcher(t, preferences.Defaults())
	ctx := context.Background()
	due := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	in := store.NewTask{CandidateID: "c1", Title: "Check references", DueDate: &due}

	rec.On("CreateTask", ctx, in, sam).Return(store.Task{ID: "t1", CandidateID: "c1", Title: "Check references", DueDate: &due}, nil).Once()
	rl.On("Create", ctx, mock.MatchedBy(func(r relay.TaskRequest) bool {
		return r.Title == "Check references" && r.Due == "2024-06-01T09:00:00Z" && r.CandidateName == "Ada"
	})).Return(&relay.TaskResult{TaskID: "g-1"}, nil).Once()
	rec.On("SetGoogleTaskID", ctx, "t1", "g-1").Return(nil).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivityTaskCreated, "Task created: Check references", sam).
		Return(store.Activity{}, nil).Once()

	task, err := d.CreateTask(ctx, in, "Ada", sam)
	require.NoError(t, err)
	assert.Equal(t, "g-1", task.GoogleTaskID)
}

func TestCreateTaskSurvivesMirrorFailure(t *testing.T) {
	d, rec, rl := newDispatcher(t, preferences.Defaults())
	ctx := context.Background()
	in := store.NewTask{CandidateID: "c1", Title: "Send offer"}

	rec.On("CreateTask", ctx, in, sam).Return(store.Task{ID: "t2", CandidateID: "c1", Title: "Send offer"}, nil).Once()
	rl.On("Create", ctx, mock.Anything).Return(nil, &relay.Failure{Op: relay.FuncCreateTask, Reason: "Google account not connected"}).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivityTaskCreated, "Task created: Send offer", sam).
		Return(store.Activity{}, nil).Once()

	task, err := d.CreateTask(ctx, in, "", sam)
	require.NoError(t, err)
	assert.Empty(t, task.GoogleTaskID)
	rec.AssertNotCalled(t, "SetGoogleTaskID", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduleEvent(t *testing.T) {
	d, rec, rl := newDispatcher(t, preferences.Defaults())
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)
	in := store.EventInput{Title: "Onsite", EventType: "phone_screen", StartTime: start, Location: "HQ"}
	normalized := in
	normalized.EndTime = start.Add(time.Hour)
	ev := store.CalendarEvent{ID: "e1", CandidateID: "c1", Title: "Onsite", EventType: "phone_screen", StartTime: start, EndTime: start.Add(time.Hour), Location: "HQ"}

	rec.On("CreateEvent", ctx, "c1", normalized, sam).Return(ev, nil).Once()
	rl.On("Insert", ctx, mock.MatchedBy(func(r relay.EventRequest) bool {
		return r.Title == "Onsite" && r.Start.Equal(start) && len(r.Attendees) == 1
	})).Return("g-ev", nil).Once()
	rec.On("SetGoogleEventID", ctx, "e1", "g-ev").Return(nil).Once()
	rec.On("CreateActivity", ctx, "c1", store.ActivityInterviewScheduled, "Scheduled phone screen - 3:30 PM, May 1 at HQ", sam).
		Return(store.Activity{}, nil).Once()

	got, err := d.ScheduleEvent(ctx, "c1", in, true, []string{"ada@example.com"}, sam)
	require.NoError(t, err)
	assert.Equal(t, "g-ev", got.GoogleEventID)
}

func TestIntents(t *testing.T) {
	assert.Equal(t, "tel:+15551234567", CallIntent("+1 555 123 4567"))
	assert.Equal(t, "sms:+1555", SMSIntent("+1555", ""))
	assert.Equal(t, "mailto:a@example.com", EmailIntent("a@example.com", "", ""))
}
