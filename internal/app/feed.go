package app

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/realtime"
)

var feedTables = []string{"notes", "tasks", "calendar_events", "activities"}

const feedKeepAlive = 25 * time.Second

// GET /candidates/:id/feed
// Server-sent events for the detail view: every note, task, event and
// activity change that belongs to the candidate.
func (a *App) FeedHandler(c *gin.Context) {
	id := c.Param("id")
	events, cancel := a.Hub.Subscribe(realtime.Filter{
		Tables: feedTables,
		Column: "candidate_id",
		Value:  id,
	}, a.FeedBuffer)
	defer cancel()

	a.logger().Debug("feed opened", zap.String("candidate_id", id))
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Content-Type", "text/event-stream")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	ping := time.NewTicker(feedKeepAlive)
	defer ping.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(e.Table, e)
			return true
		case <-ping.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
	a.logger().Debug("feed closed", zap.String("candidate_id", id))
}
