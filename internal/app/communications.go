package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"recruitflow/internal/candidate"
	"recruitflow/internal/comms"
)

// lookup fills contact details the client left out from the held record.
func (a *App) lookup(c *gin.Context) (candidate.Candidate, bool) {
	if a.Reconciler == nil {
		return candidate.Candidate{}, false
	}
	return a.Reconciler.Get(c.Param("id"))
}

func (a *App) respondOutcome(c *gin.Context, out *comms.Outcome, err error) {
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// POST /candidates/:id/call
func (a *App) CallHandler(c *gin.Context) {
	var in comms.CallInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	in.CandidateID = c.Param("id")
	if held, ok := a.lookup(c); ok {
		if in.Phone == "" {
			in.Phone = held.Phone
		}
		if in.CandidateName == "" {
			in.CandidateName = held.FullName()
		}
	}
	out, err := a.Comms.Call(c.Request.Context(), in, actorFrom(c))
	a.respondOutcome(c, out, err)
}

// POST /candidates/:id/sms
func (a *App) SMSHandler(c *gin.Context) {
	var in comms.SMSInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	in.CandidateID = c.Param("id")
	if held, ok := a.lookup(c); ok {
		if in.Phone == "" {
			in.Phone = held.Phone
		}
		if in.CandidateName == "" {
			in.CandidateName = held.FullName()
		}
	}
	out, err := a.Comms.SMS(c.Request.Context(), in, actorFrom(c))
	a.respondOutcome(c, out, err)
}

// POST /candidates/:id/email
func (a *App) EmailHandler(c *gin.Context) {
	var in comms.EmailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, err)
		return
	}
	in.CandidateID = c.Param("id")
	if held, ok := a.lookup(c); ok {
		if in.To == "" {
			in.To = held.Email
		}
		if in.CandidateName == "" {
			in.CandidateName = held.FullName()
		}
	}
	out, err := a.Comms.Email(c.Request.Context(), in, actorFrom(c))
	a.respondOutcome(c, out, err)
}

// GET /candidates/:id/calls
func (a *App) CallHistoryHandler(c *gin.Context) {
	calls, err := a.Store.CallHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, calls)
}

// GET /candidates/:id/sms
func (a *App) SMSHistoryHandler(c *gin.Context) {
	msgs, err := a.Store.SMSHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// GET /candidates/:id/emails
func (a *App) EmailHistoryHandler(c *gin.Context) {
	emails, err := a.Store.EmailHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, emails)
}
