package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/candidate"
	"recruitflow/internal/pipeline"
)

// track applies a write's result to the held collection right away; the
// change feed delivers the same row later and the version guard makes the
// second apply a no-op.
func (a *App) track(c candidate.Candidate) {
	if a.Reconciler != nil {
		a.Reconciler.Apply(pipeline.Event{Op: pipeline.Upsert, Candidate: c})
	}
}

// GET /candidates?q=&filter=
func (a *App) ListCandidatesHandler(c *gin.Context) {
	mode, err := pipeline.ParseFilterMode(c.Query("filter"))
	if err != nil {
		a.badRequest(c, err)
		return
	}
	list := a.Reconciler.Visible(c.Query("q"), mode)
	c.JSON(http.StatusOK, gin.H{"candidates": list, "count": len(list)})
}

// GET /candidates/stats
func (a *App) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Reconciler.Stats())
}

// GET /candidates/analytics
func (a *App) AnalyticsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.Reconciler.Analytics(time.Now()))
}

// GET /candidates/search?q=
// Searches the database directly instead of the held collection.
func (a *App) SearchCandidatesHandler(c *gin.Context) {
	list, err := a.Store.SearchCandidates(c.Request.Context(), c.Query("q"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": list, "count": len(list)})
}

// POST /candidates/reload
func (a *App) ReloadHandler(c *gin.Context) {
	if err := a.Reconciler.Load(c.Request.Context()); err != nil {
		a.logger().Error("candidate reload failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load candidates"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": a.Reconciler.Snapshot().Len()})
}

// POST /candidates
func (a *App) CreateCandidateHandler(c *gin.Context) {
	var in candidate.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		a.fail(c, err)
		return
	}
	if in.RecruiterID == "" {
		in.RecruiterID = actorFrom(c).ID
	}
	created, err := a.Store.CreateCandidate(c.Request.Context(), in)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.track(created)
	c.JSON(http.StatusCreated, created)
}

// GET /candidates/:id
// Opening a candidate marks them viewed.
func (a *App) GetCandidateHandler(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	cand, ok := a.Reconciler.Get(id)
	if !ok {
		var err error
		cand, err = a.Store.GetCandidate(ctx, id)
		if err != nil {
			a.fail(c, err)
			return
		}
		a.track(cand)
	}
	if !cand.Viewed {
		if err := a.Reconciler.MarkViewed(ctx, id); err != nil {
			// the profile is still shown; the flag is retried on next open
			a.logger().Warn("mark viewed failed", zap.String("candidate_id", id), zap.Error(err))
		} else {
			cand.Viewed = true
		}
	}
	c.JSON(http.StatusOK, cand)
}

// PATCH /candidates/:id
func (a *App) UpdateCandidateHandler(c *gin.Context) {
	var p candidate.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := p.Validate(); err != nil {
		a.fail(c, err)
		return
	}
	updated, err := a.Store.UpdateCandidate(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.track(updated)
	c.JSON(http.StatusOK, updated)
}

// PUT /candidates/:id/status
func (a *App) UpdateStatusHandler(c *gin.Context) {
	var ch candidate.StatusChange
	if err := c.ShouldBindJSON(&ch); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := ch.Validate(); err != nil {
		a.fail(c, err)
		return
	}
	updated, err := a.Store.UpdateCandidateStatus(c.Request.Context(), c.Param("id"), ch, actorFrom(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.track(updated)
	c.JSON(http.StatusOK, updated)
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

// PUT /candidates/:id/rating
func (a *App) UpdateRatingHandler(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := candidate.ValidateRating(req.Rating); err != nil {
		a.fail(c, err)
		return
	}
	updated, err := a.Store.UpdateCandidateRating(c.Request.Context(), c.Param("id"), req.Rating)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.track(updated)
	c.JSON(http.StatusOK, updated)
}

// POST /candidates/:id/viewed
func (a *App) MarkViewedHandler(c *gin.Context) {
	if err := a.Reconciler.MarkViewed(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DELETE /candidates/:id
func (a *App) DeleteCandidateHandler(c *gin.Context) {
	id := c.Param("id")
	if err := a.Store.DeleteCandidate(c.Request.Context(), id); err != nil {
		a.fail(c, err)
		return
	}
	a.Reconciler.Apply(pipeline.Event{Op: pipeline.Delete, Candidate: candidate.Candidate{ID: id}})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
