package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"recruitflow/internal/candidate"
	"recruitflow/internal/comms"
	"recruitflow/internal/pipeline"
	"recruitflow/internal/preferences"
	"recruitflow/internal/realtime"
	"recruitflow/internal/relay"
	"recruitflow/internal/store"
)

// Store is the persistence the handlers use; *store.Store satisfies it.
type Store interface {
	Ping(ctx context.Context) error

	GetCandidate(ctx context.Context, id string) (candidate.Candidate, error)
	SearchCandidates(ctx context.Context, query string) ([]candidate.Candidate, error)
	CreateCandidate(ctx context.Context, in candidate.CreateInput) (candidate.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, p candidate.Patch) (candidate.Candidate, error)
	UpdateCandidateStatus(ctx context.Context, id string, ch candidate.StatusChange, by store.Actor) (candidate.Candidate, error)
	UpdateCandidateRating(ctx context.Context, id string, rating int) (candidate.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error

	ListNotes(ctx context.Context, candidateID string) ([]store.Note, error)
	CreateNote(ctx context.Context, candidateID, content, noteType string, by store.Actor) (store.Note, error)
	UpdateNote(ctx context.Context, id, content string) (store.Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListTasks(ctx context.Context, candidateID string) ([]store.Task, error)
	ListMyTasks(ctx context.Context, userID string) ([]store.Task, error)
	UpdateTaskStatus(ctx context.Context, id, status string) (store.Task, error)
	UpdateTask(ctx context.Context, id string, p store.TaskPatch) (store.Task, error)
	DeleteTask(ctx context.Context, id string) error

	ListEvents(ctx context.Context, candidateID string) ([]store.CalendarEvent, error)
	ListUpcomingEvents(ctx context.Context, from time.Time) ([]store.CalendarEvent, error)
	UpdateEvent(ctx context.Context, id string, in store.EventInput) (store.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error

	RecentActivities(ctx context.Context, limit int) ([]store.Activity, error)
	CandidateActivities(ctx context.Context, candidateID string) ([]store.Activity, error)

	CallHistory(ctx context.Context, candidateID string) ([]store.Call, error)
	SMSHistory(ctx context.Context, candidateID string) ([]store.SMS, error)
	EmailHistory(ctx context.Context, candidateID string) ([]store.Email, error)
}

// Prefs is the per-user settings store, including connected Google tokens.
type Prefs interface {
	preferences.Store
	SaveRefreshToken(ctx context.Context, userID, token string) error
}

// CalendarReader backs the schedule view.
type CalendarReader interface {
	List(ctx context.Context, userID, calendarID string, from, to time.Time) ([]relay.Event, error)
	Calendars(ctx context.Context, userID string) ([]relay.CalendarInfo, error)
}

// Connector runs the Google consent flow.
type Connector interface {
	OAuthConfig() *oauth2.Config
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

type App struct {
	Store      Store
	Reconciler *pipeline.Reconciler
	Hub        *realtime.Hub
	Comms      *comms.Dispatcher
	Prefs      Prefs

	Voice    comms.Voice
	Mail     comms.Mailer
	Tasks    comms.TaskCreator
	Calendar CalendarReader
	Google   Connector

	// StateSecret signs the OAuth state parameter.
	StateSecret []byte
	// FeedBuffer is the hub buffer for each SSE subscriber.
	FeedBuffer int
	Log        *zap.Logger
}

func (a *App) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}

// fail writes the error body for err and logs server-side failures.
func (a *App) fail(c *gin.Context, err error) {
	var verr *candidate.ValidationError
	var rf *relay.Failure
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, store.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case store.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &rf):
		c.JSON(http.StatusBadGateway, gin.H{"error": rf.Reason})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		a.logger().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (a *App) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
