package relay

import (
	"context"
	"time"

	"google.golang.org/api/tasks/v1"

	"recruitflow/internal/candidate"
)

type TaskRequest struct {
	Title         string `json:"title"`
	Notes         string `json:"notes"`
	Due           string `json:"due"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
}

type TaskResult struct {
	TaskID string      `json:"taskId"`
	Task   *tasks.Task `json:"task"`
}

type Tasks struct {
	tokens   *GoogleTokens
	endpoint string
}

func NewTasks(tokens *GoogleTokens, endpoint string) *Tasks {
	return &Tasks{tokens: tokens, endpoint: endpoint}
}

// Create adds a task to the user's default Google Tasks list.
func (t *Tasks) Create(ctx context.Context, req TaskRequest) (res *TaskResult, err error) {
	defer func(start time.Time) { observe(FuncCreateTask, start, err) }(time.Now())

	if req.Title == "" {
		return nil, fail(FuncCreateTask, "Missing required field: title", nil)
	}
	body := &tasks.Task{Title: req.Title, Notes: req.Notes}
	if req.Due != "" {
		due, err := candidate.ParseTime(req.Due)
		if err != nil {
			return nil, fail(FuncCreateTask, "due must be a date or RFC 3339 timestamp", err)
		}
		body.Due = due.Format(time.RFC3339)
	}

	client, err := t.tokens.Client(ctx, FuncCreateTask, req.UserID)
	if err != nil {
		return nil, err
	}
	svc, err := tasks.NewService(ctx, serviceOptions(client, t.endpoint)...)
	if err != nil {
		return nil, fail(FuncCreateTask, "could not create Tasks client", err)
	}
	created, err := svc.Tasks.Insert("@default", body).Context(ctx).Do()
	if err != nil {
		return nil, fail(FuncCreateTask, "Google Tasks API error", err)
	}
	return &TaskResult{TaskID: created.Id, Task: created}, nil
}
