package app

import (
	"recruitflow/internal/store"
)

type noteRequest struct {
	Content  string `json:"content" binding:"required"`
	NoteType string `json:"note_type"`
}

type taskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type createTaskRequest struct {
	store.NewTask
	CandidateName string `json:"candidate_name"`
}

type createEventRequest struct {
	store.EventInput
	// AddToGoogle pushes the event to the organiser's Google Calendar.
	AddToGoogle bool     `json:"add_to_google"`
	Attendees   []string `json:"attendees"`
}

// relay function bodies; field names follow the client contract

type callResponse struct {
	Success bool   `json:"success"`
	CallSID string `json:"callSid,omitempty"`
	Error   string `json:"error,omitempty"`
}

type smsResponse struct {
	Success    bool   `json:"success"`
	MessageSID string `json:"messageSid"`
	Status     string `json:"status"`
}

type emailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

type taskResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"taskId"`
	Task    any    `json:"task"`
}
