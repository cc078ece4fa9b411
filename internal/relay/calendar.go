package relay

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Event is a Google Calendar event as the schedule view shows it.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	Creator     string    `json:"creator,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

type EventRequest struct {
	UserID      string
	CalendarID  string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

type Calendar struct {
	tokens   *GoogleTokens
	endpoint string
}

func NewCalendar(tokens *GoogleTokens, endpoint string) *Calendar {
	return &Calendar{tokens: tokens, endpoint: endpoint}
}

func (c *Calendar) service(ctx context.Context, userID string) (*calendar.Service, error) {
	client, err := c.tokens.Client(ctx, FuncCalendar, userID)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, serviceOptions(client, c.endpoint)...)
	if err != nil {
		return nil, fail(FuncCalendar, "could not create Calendar client", err)
	}
	return svc, nil
}

// Insert creates the event and returns its Google id.
func (c *Calendar) Insert(ctx context.Context, req EventRequest) (id string, err error) {
	defer func(start time.Time) { observe(FuncCalendar, start, err) }(time.Now())

	if req.Title == "" || req.Start.IsZero() || !req.End.After(req.Start) {
		return "", fail(FuncCalendar, "event needs a title and a start before its end", nil)
	}
	calID := req.CalendarID
	if calID == "" {
		calID = "primary"
	}
	svc, err := c.service(ctx, req.UserID)
	if err != nil {
		return "", err
	}

	ev := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Location:    req.Location,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
	}
	for _, a := range req.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: a})
	}
	created, err := svc.Events.Insert(calID, ev).Context(ctx).Do()
	if err != nil {
		return "", fail(FuncCalendar, "Google Calendar API error", err)
	}
	return created.Id, nil
}

// List returns single (expanded) events between from and to, ordered by
// start. Zero bounds are left open.
func (c *Calendar) List(ctx context.Context, userID, calendarID string, from, to time.Time) ([]Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	svc, err := c.service(ctx, userID)
	if err != nil {
		return nil, err
	}
	call := svc.Events.List(calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	if !from.IsZero() {
		call = call.TimeMin(from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		call = call.TimeMax(to.Format(time.RFC3339))
	}
	events, err := call.Context(ctx).Do()
	if err != nil {
		return nil, fail(FuncCalendar, "failed to retrieve events", err)
	}

	out := make([]Event, 0, len(events.Items))
	for _, item := range events.Items {
		e := Event{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Location:    item.Location,
			Status:      item.Status,
			HTMLLink:    item.HtmlLink,
			StartTime:   eventTime(item.Start),
			EndTime:     eventTime(item.End),
		}
		if item.Creator != nil {
			e.Creator = item.Creator.Email
		}
		out = append(out, e)
	}
	return out, nil
}

// eventTime reads a timed or all-day boundary.
func eventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CalendarInfo is one entry of the user's calendar list.
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"access_role"`
}

// Calendars lists the calendars the user can see.
func (c *Calendar) Calendars(ctx context.Context, userID string) ([]CalendarInfo, error) {
	svc, err := c.service(ctx, userID)
	if err != nil {
		return nil, err
	}
	list, err := svc.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fail(FuncCalendar, "failed to retrieve calendars", err)
	}
	out := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		out = append(out, CalendarInfo{
			ID:          item.Id,
			Summary:     item.Summary,
			Description: item.Description,
			Primary:     item.Primary,
			AccessRole:  item.AccessRole,
		})
	}
	return out, nil
}
