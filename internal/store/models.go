package store

import "time"

type ActivityType string

const (
	ActivityCall               ActivityType = "call"
	ActivitySMS                ActivityType = "sms"
	ActivityEmail              ActivityType = "email"
	ActivityNoteAdded          ActivityType = "note_added"
	ActivityStatusChange       ActivityType = "status_change"
	ActivityInterviewScheduled ActivityType = "interview_scheduled"
	ActivityTaskCreated        ActivityType = "task_created"
)

// Actor is who performed an action. ID may be empty for service-initiated
// writes.
type Actor struct {
	ID   string `json:"user_id"`
	Name string `json:"user_name"`
}

type Note struct {
	ID            string    `json:"id"`
	CandidateID   string    `json:"candidate_id"`
	Content       string    `json:"content"`
	NoteType      string    `json:"note_type"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedByName string    `json:"created_by_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Task struct {
	ID             string     `json:"id"`
	CandidateID    string     `json:"candidate_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	AssignedToName string     `json:"assigned_to_name,omitempty"`
	GoogleTaskID   string     `json:"google_task_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
}

type CalendarEvent struct {
	ID            string    `json:"id"`
	CandidateID   string    `json:"candidate_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	EventType     string    `json:"event_type"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location,omitempty"`
	MeetingLink   string    `json:"meeting_link,omitempty"`
	GoogleEventID string    `json:"google_event_id,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedByName string    `json:"created_by_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Activity struct {
	ID            string       `json:"id"`
	CandidateID   string       `json:"candidate_id"`
	Type          ActivityType `json:"activity_type"`
	Description   string       `json:"description"`
	CreatedBy     string       `json:"created_by,omitempty"`
	CreatedByName string       `json:"created_by_name,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Call struct {
	ID            string    `json:"id"`
	CandidateID   string    `json:"candidate_id"`
	CallType      string    `json:"call_type"`
	PhoneNumber   string    `json:"phone_number"`
	Duration      *int      `json:"duration,omitempty"`
	Status        string    `json:"status,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	TwilioCallSID string    `json:"twilio_call_sid,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedByName string    `json:"created_by_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type SMS struct {
	ID               string    `json:"id"`
	CandidateID      string    `json:"candidate_id"`
	Direction        string    `json:"direction"`
	PhoneNumber      string    `json:"phone_number"`
	MessageBody      string    `json:"message_body"`
	Status           string    `json:"status,omitempty"`
	TwilioMessageSID string    `json:"twilio_message_sid,omitempty"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedByName    string    `json:"created_by_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type Email struct {
	ID             string    `json:"id"`
	CandidateID    string    `json:"candidate_id"`
	Direction      string    `json:"direction"`
	ToEmail        string    `json:"to_email"`
	FromEmail      string    `json:"from_email,omitempty"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	Status         string    `json:"status,omitempty"`
	GmailMessageID string    `json:"gmail_message_id,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedByName  string    `json:"created_by_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
