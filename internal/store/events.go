package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var eventTypes = map[string]bool{"interview": true, "phone_screen": true, "meeting": true, "follow_up": true}

func ValidEventType(t string) bool { return eventTypes[t] }

const eventColumns = `id::text, candidate_id::text, title, COALESCE(description,''), event_type,
	start_time, end_time, COALESCE(location,''), COALESCE(meeting_link,''),
	COALESCE(google_event_id,''), COALESCE(created_by,''), COALESCE(created_by_name,''),
	created_at, updated_at`

func scanEvent(row pgx.Row) (CalendarEvent, error) {
	var e CalendarEvent
	err := row.Scan(&e.ID, &e.CandidateID, &e.Title, &e.Description, &e.EventType,
		&e.StartTime, &e.EndTime, &e.Location, &e.MeetingLink,
		&e.GoogleEventID, &e.CreatedBy, &e.CreatedByName, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) queryEvents(ctx context.Context, q string, args ...any) ([]CalendarEvent, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) ListEvents(ctx context.Context, candidateID string) ([]CalendarEvent, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE candidate_id = $1 ORDER BY start_time`,
		candidateID)
}

// ListUpcomingEvents returns events starting at or after from.
func (s *Store) ListUpcomingEvents(ctx context.Context, from time.Time) ([]CalendarEvent, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM calendar_events WHERE start_time >= $1 ORDER BY start_time`, from)
}

// EventInput is a new or replacement event. Zero start/end default to now and
// one hour later.
type EventInput struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`
	MeetingLink string    `json:"meeting_link"`
}

func (in *EventInput) Normalize(now time.Time) error {
	if in.EventType == "" {
		in.EventType = "interview"
	}
	if !ValidEventType(in.EventType) {
		return ErrInvalid
	}
	if in.StartTime.IsZero() {
		in.StartTime = now
	}
	if in.EndTime.IsZero() {
		in.EndTime = in.StartTime.Add(time.Hour)
	}
	if !in.EndTime.After(in.StartTime) {
		return ErrInvalid
	}
	return nil
}

func (s *Store) CreateEvent(ctx context.Context, candidateID string, in EventInput, by Actor) (CalendarEvent, error) {
	return scanEvent(s.pool.QueryRow(ctx,
		`INSERT INTO calendar_events
		   (id, candidate_id, title, description, event_type, start_time, end_time, location, meeting_link, created_by, created_by_name)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING `+eventColumns,
		uuid.New().String(), candidateID, in.Title, nullable(in.Description), in.EventType,
		in.StartTime, in.EndTime, nullable(in.Location), nullable(in.MeetingLink),
		nullable(by.ID), nullable(by.Name)))
}

func (s *Store) UpdateEvent(ctx context.Context, id string, in EventInput) (CalendarEvent, error) {
	return scanEvent(s.pool.QueryRow(ctx,
		`UPDATE calendar_events SET title = $2, description = $3, event_type = $4,
		   start_time = $5, end_time = $6, location = $7, meeting_link = $8
		 WHERE id = $1 RETURNING `+eventColumns,
		id, in.Title, nullable(in.Description), in.EventType, in.StartTime, in.EndTime,
		nullable(in.Location), nullable(in.MeetingLink)))
}

func (s *Store) SetGoogleEventID(ctx context.Context, id, googleID string) error {
	return exactlyOne(s.pool.Exec(ctx, `UPDATE calendar_events SET google_event_id = $2 WHERE id = $1`, id, googleID))
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return exactlyOne(s.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id))
}
