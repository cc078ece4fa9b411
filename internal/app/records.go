package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"recruitflow/internal/store"
)

// GET /candidates/:id/notes
func (a *App) ListNotesHandler(c *gin.Context) {
	notes, err := a.Store.ListNotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

// POST /candidates/:id/notes
func (a *App) CreateNoteHandler(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	note, err := a.Store.CreateNote(c.Request.Context(), c.Param("id"), req.Content, req.NoteType, actorFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

// PATCH /notes/:id
func (a *App) UpdateNoteHandler(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	note, err := a.Store.UpdateNote(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

// DELETE /notes/:id
func (a *App) DeleteNoteHandler(c *gin.Context) {
	if err := a.Store.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /candidates/:id/tasks
func (a *App) ListTasksHandler(c *gin.Context) {
	tasks, err := a.Store.ListTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// POST /candidates/:id/tasks
// The task is mirrored to Google Tasks when the user has connected Google.
func (a *App) CreateTaskHandler(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	req.CandidateID = c.Param("id")
	task, err := a.Comms.CreateTask(c.Request.Context(), req.NewTask, req.CandidateName, actorFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GET /tasks/mine
func (a *App) MyTasksHandler(c *gin.Context) {
	me := actorFrom(c)
	if me.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no user on this token"})
		return
	}
	tasks, err := a.Store.ListMyTasks(c.Request.Context(), me.ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// PUT /tasks/:id/status
func (a *App) UpdateTaskStatusHandler(c *gin.Context) {
	var req taskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	task, err := a.Store.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// PATCH /tasks/:id
func (a *App) UpdateTaskHandler(c *gin.Context) {
	var p store.TaskPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		a.badRequest(c, err)
		return
	}
	task, err := a.Store.UpdateTask(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DELETE /tasks/:id
func (a *App) DeleteTaskHandler(c *gin.Context) {
	if err := a.Store.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /candidates/:id/events
func (a *App) ListEventsHandler(c *gin.Context) {
	events, err := a.Store.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// POST /candidates/:id/events
func (a *App) CreateEventHandler(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	ev, err := a.Comms.ScheduleEvent(c.Request.Context(), c.Param("id"), req.EventInput, req.AddToGoogle, req.Attendees, actorFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// GET /events?from=ISO
// Upcoming events across all candidates, from now unless from is given.
func (a *App) UpcomingEventsHandler(c *gin.Context) {
	from := time.Now()
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		from = t
	}
	events, err := a.Store.ListUpcomingEvents(c.Request.Context(), from)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// PATCH /events/:id
func (a *App) UpdateEventHandler(c *gin.Context) {
	var in store.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := in.Normalize(time.Now()); err != nil {
		a.fail(c, err)
		return
	}
	ev, err := a.Store.UpdateEvent(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// DELETE /events/:id
func (a *App) DeleteEventHandler(c *gin.Context) {
	if err := a.Store.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /activities/recent?limit=
func (a *App) RecentActivitiesHandler(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	acts, err := a.Store.RecentActivities(c.Request.Context(), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acts)
}

// GET /candidates/:id/activities
func (a *App) CandidateActivitiesHandler(c *gin.Context) {
	acts, err := a.Store.CandidateActivities(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acts)
}
