package comms

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"recruitflow/internal/relay"
	"recruitflow/internal/store"
)

// CreateTask stores the task and mirrors it to Google Tasks. The mirror is
// best effort; the task exists once the row is written.
func (d *Dispatcher) CreateTask(ctx context.Context, in store.NewTask, candidateName string, by store.Actor) (store.Task, error) {
	if err := required("candidate_id", in.CandidateID); err != nil {
		return store.Task{}, err
	}
	if err := required("title", in.Title); err != nil {
		return store.Task{}, err
	}
	task, err := d.rec.CreateTask(ctx, in, by)
	if err != nil {
		return store.Task{}, err
	}

	if d.tasks != nil {
		req := relay.TaskRequest{
			Title:         task.Title,
			Notes:         task.Description,
			CandidateID:   task.CandidateID,
			CandidateName: candidateName,
			UserID:        by.ID,
			UserName:      by.Name,
		}
		if task.DueDate != nil {
			req.Due = task.DueDate.Format(time.RFC3339)
		}
		res, err := d.tasks.Create(ctx, req)
		switch {
		case err != nil:
			d.log.Warn("google task mirror failed", zap.String("task_id", task.ID), zap.Error(err))
		case res.TaskID != "":
			if err := d.rec.SetGoogleTaskID(ctx, task.ID, res.TaskID); err != nil {
				d.log.Error("failed to store google task id", zap.String("task_id", task.ID), zap.Error(err))
			} else {
				task.GoogleTaskID = res.TaskID
			}
		}
	}

	d.record(ctx, task.CandidateID, store.ActivityTaskCreated, "Task created: "+task.Title, by)
	return task, nil
}

// ScheduleDescription is the activity line for a newly scheduled event.
func ScheduleDescription(ev store.CalendarEvent) string {
	desc := "Scheduled " + strings.ReplaceAll(ev.EventType, "_", " ") +
		" - " + ev.StartTime.Format("3:04 PM, Jan 2")
	if ev.Location != "" {
		desc += " at " + ev.Location
	}
	return desc
}

// ScheduleEvent stores the event and, when pushToGoogle is set, adds it to
// the organiser's Google Calendar. attendees are invited by email.
func (d *Dispatcher) ScheduleEvent(ctx context.Context, candidateID string, in store.EventInput, pushToGoogle bool, attendees []string, by store.Actor) (store.CalendarEvent, error) {
	if err := required("candidate_id", candidateID); err != nil {
		return store.CalendarEvent{}, err
	}
	if err := required("title", in.Title); err != nil {
		return store.CalendarEvent{}, err
	}
	if err := in.Normalize(time.Now()); err != nil {
		return store.CalendarEvent{}, err
	}
	ev, err := d.rec.CreateEvent(ctx, candidateID, in, by)
	if err != nil {
		return store.CalendarEvent{}, err
	}

	if pushToGoogle && d.calendar != nil {
		desc := ev.Description
		if ev.MeetingLink != "" {
			desc = strings.TrimSpace(desc + "\n\n" + ev.MeetingLink)
		}
		gid, err := d.calendar.Insert(ctx, relay.EventRequest{
			UserID:      by.ID,
			Title:       ev.Title,
			Description: desc,
			Location:    ev.Location,
			Start:       ev.StartTime,
			End:         ev.EndTime,
			Attendees:   attendees,
		})
		if err != nil {
			d.log.Warn("google calendar push failed", zap.String("event_id", ev.ID), zap.Error(err))
		} else if err := d.rec.SetGoogleEventID(ctx, ev.ID, gid); err != nil {
			d.log.Error("failed to store google event id", zap.String("event_id", ev.ID), zap.Error(err))
		} else {
			ev.GoogleEventID = gid
		}
	}

	d.record(ctx, candidateID, store.ActivityInterviewScheduled, ScheduleDescription(ev), by)
	return ev, nil
}
