package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/relay"
)

// The /functions endpoints are the bare relays: one upstream call, no
// database writes. Failures answer 400 with {"error": reason}.

// asCaller makes the authenticated user the one whose credentials are used.
func asCaller(c *gin.Context, userID, userName *string) {
	me := actorFrom(c)
	if me.ID != "" {
		*userID = me.ID
	}
	if *userName == "" {
		*userName = me.Name
	}
}

func (a *App) relayFailed(fn string, err error) {
	a.logger().Warn("relay failed", zap.String("function", fn), zap.Error(err))
}

// POST /functions/make-call
func (a *App) MakeCallFunction(c *gin.Context) {
	var req relay.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, callResponse{Success: false, Error: "invalid request body"})
		return
	}
	asCaller(c, &req.UserID, &req.UserName)
	res, err := a.Voice.Call(c.Request.Context(), req)
	if err != nil {
		a.relayFailed(relay.FuncMakeCall, err)
		c.JSON(http.StatusBadRequest, callResponse{Success: false, Error: relay.Reason(err)})
		return
	}
	c.JSON(http.StatusOK, callResponse{Success: true, CallSID: res.CallSID})
}

// POST /functions/send-sms
func (a *App) SendSMSFunction(c *gin.Context) {
	var req relay.SMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	asCaller(c, &req.UserID, &req.UserName)
	res, err := a.Voice.SMS(c.Request.Context(), req)
	if err != nil {
		a.relayFailed(relay.FuncSendSMS, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": relay.Reason(err)})
		return
	}
	c.JSON(http.StatusOK, smsResponse{Success: true, MessageSID: res.MessageSID, Status: res.Status})
}

// POST /functions/send-email
func (a *App) SendEmailFunction(c *gin.Context) {
	var req relay.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	asCaller(c, &req.UserID, &req.UserName)
	res, err := a.Mail.Send(c.Request.Context(), req)
	if err != nil {
		a.relayFailed(relay.FuncSendEmail, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": relay.Reason(err)})
		return
	}
	c.JSON(http.StatusOK, emailResponse{Success: true, MessageID: res.MessageID})
}

// POST /functions/create-task
func (a *App) CreateTaskFunction(c *gin.Context) {
	var req relay.TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	asCaller(c, &req.UserID, &req.UserName)
	res, err := a.Tasks.Create(c.Request.Context(), req)
	if err != nil {
		a.relayFailed(relay.FuncCreateTask, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": relay.Reason(err)})
		return
	}
	c.JSON(http.StatusOK, taskResponse{Success: true, TaskID: res.TaskID, Task: res.Task})
}
