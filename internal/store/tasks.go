package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	taskPriorities = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}
	taskStatuses   = map[string]bool{"pending": true, "in_progress": true, "completed": true, "cancelled": true}
)

func ValidTaskPriority(p string) bool { return taskPriorities[p] }
func ValidTaskStatus(s string) bool   { return taskStatuses[s] }

const taskColumns = `id::text, candidate_id::text, title, COALESCE(description,''), due_date,
	priority, status, COALESCE(assigned_to,''), COALESCE(assigned_to_name,''),
	COALESCE(google_task_id,''), created_at, updated_at, completed_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.CandidateID, &t.Title, &t.Description, &t.DueDate,
		&t.Priority, &t.Status, &t.AssignedTo, &t.AssignedToName,
		&t.GoogleTaskID, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	return t, err
}

func (s *Store) queryTasks(ctx context.Context, q string, args ...any) ([]Task, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListTasks(ctx context.Context, candidateID string) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE candidate_id = $1 ORDER BY due_date ASC NULLS LAST`,
		candidateID)
}

// ListMyTasks returns the open tasks assigned to userID.
func (s *Store) ListMyTasks(ctx context.Context, userID string) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE assigned_to = $1 AND status <> 'completed'
		 ORDER BY due_date ASC NULLS LAST`, userID)
}

type NewTask struct {
	CandidateID string     `json:"-"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    string     `json:"priority"`
}

func (s *Store) CreateTask(ctx context.Context, in NewTask, assignee Actor) (Task, error) {
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if !ValidTaskPriority(in.Priority) {
		return Task{}, fmt.Errorf("%w: priority %q", ErrInvalid, in.Priority)
	}
	return scanTask(s.pool.QueryRow(ctx,
		`INSERT INTO tasks (id, candidate_id, title, description, due_date, priority, status, assigned_to, assigned_to_name)
		 VALUES ($1,$2,$3,$4,$5,$6,'pending',$7,$8) RETURNING `+taskColumns,
		uuid.New().String(), in.CandidateID, in.Title, nullable(in.Description), in.DueDate,
		in.Priority, nullable(assignee.ID), nullable(assignee.Name)))
}

func (s *Store) SetGoogleTaskID(ctx context.Context, id, googleID string) error {
	return exactlyOne(s.pool.Exec(ctx, `UPDATE tasks SET google_task_id = $2 WHERE id = $1`, id, googleID))
}

// UpdateTaskStatus sets completed_at when the task is completed and clears it
// otherwise.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, status string) (Task, error) {
	if !ValidTaskStatus(status) {
		return Task{}, fmt.Errorf("%w: status %q", ErrInvalid, status)
	}
	return scanTask(s.pool.QueryRow(ctx,
		`UPDATE tasks SET status = $2,
		   completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE NULL END
		 WHERE id = $1 RETURNING `+taskColumns, id, status))
}

func (s *Store) UpdateTask(ctx context.Context, id string, p TaskPatch) (Task, error) {
	var set []string
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", nullable(*p.Description))
	}
	if p.DueDate != nil {
		add("due_date", *p.DueDate)
	}
	if p.Priority != nil {
		if !ValidTaskPriority(*p.Priority) {
			return Task{}, fmt.Errorf("%w: priority %q", ErrInvalid, *p.Priority)
		}
		add("priority", *p.Priority)
	}
	if len(set) == 0 {
		return scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	}
	return scanTask(s.pool.QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(set, ", ")+` WHERE id = $1 RETURNING `+taskColumns, args...))
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return exactlyOne(s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id))
}
