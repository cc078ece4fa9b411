package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Mode         string
	JWTSecret    string
	StaticTokens []string
	Limiter      *RateLimiter
}

// NewRouter wires every route. Health, metrics and the OAuth callback are
// public; everything under /api needs a token.
func NewRouter(a *App, cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestid.New(requestid.WithGenerator(uuid.NewString)),
		accessLog(a.logger()),
		cors.New(corsConfig()),
	)

	router.GET("/healthz", a.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api")
	api.Use(AuthMiddleware(cfg.JWTSecret, cfg.StaticTokens), validID())
	{
		candidates := api.Group("/candidates")
		{
			candidates.GET("", a.ListCandidatesHandler)
			candidates.GET("/stats", a.StatsHandler)
			candidates.GET("/analytics", a.AnalyticsHandler)
			candidates.GET("/search", a.SearchCandidatesHandler)
			candidates.POST("/reload", a.ReloadHandler)
			candidates.POST("", a.CreateCandidateHandler)
			candidates.GET("/:id", a.GetCandidateHandler)
			candidates.PATCH("/:id", a.UpdateCandidateHandler)
			candidates.PUT("/:id/status", a.UpdateStatusHandler)
			candidates.PUT("/:id/rating", a.UpdateRatingHandler)
			candidates.POST("/:id/viewed", a.MarkViewedHandler)
			candidates.DELETE("/:id", a.DeleteCandidateHandler)

			candidates.GET("/:id/notes", a.ListNotesHandler)
			candidates.POST("/:id/notes", a.CreateNoteHandler)
			candidates.GET("/:id/tasks", a.ListTasksHandler)
			candidates.POST("/:id/tasks", a.CreateTaskHandler)
			candidates.GET("/:id/events", a.ListEventsHandler)
			candidates.POST("/:id/events", a.CreateEventHandler)
			candidates.GET("/:id/activities", a.CandidateActivitiesHandler)
			candidates.GET("/:id/feed", a.FeedHandler)

			candidates.POST("/:id/call", a.CallHandler)
			candidates.POST("/:id/sms", a.SMSHandler)
			candidates.POST("/:id/email", a.EmailHandler)
			candidates.GET("/:id/calls", a.CallHistoryHandler)
			candidates.GET("/:id/sms", a.SMSHistoryHandler)
			candidates.GET("/:id/emails", a.EmailHistoryHandler)
		}

		api.GET("/tasks/mine", a.MyTasksHandler)
		api.PUT("/tasks/:id/status", a.UpdateTaskStatusHandler)
		api.PATCH("/tasks/:id", a.UpdateTaskHandler)
		api.DELETE("/tasks/:id", a.DeleteTaskHandler)

		api.PATCH("/notes/:id", a.UpdateNoteHandler)
		api.DELETE("/notes/:id", a.DeleteNoteHandler)

		api.GET("/events", a.UpcomingEventsHandler)
		api.PATCH("/events/:id", a.UpdateEventHandler)
		api.DELETE("/events/:id", a.DeleteEventHandler)

		api.GET("/activities/recent", a.RecentActivitiesHandler)

		api.GET("/preferences", a.GetPreferencesHandler)
		api.PUT("/preferences", a.PutPreferencesHandler)

		functions := api.Group("/functions")
		if cfg.Limiter != nil {
			functions.Use(RateLimit(cfg.Limiter))
		}
		{
			functions.POST("/make-call", a.MakeCallFunction)
			functions.POST("/send-sms", a.SendSMSFunction)
			functions.POST("/send-email", a.SendEmailFunction)
			functions.POST("/create-task", a.CreateTaskFunction)
		}

		// Google account and calendar
		api.GET("/google/auth", a.GoogleAuthHandler)
		calendar := api.Group("/calendar")
		{
			calendar.GET("/events", a.GetGoogleCalendarEvents)
			calendar.GET("/calendars", a.GetGoogleCalendarList)
		}
	}
	return router
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/healthz" || c.FullPath() == "/metrics" {
			return
		}
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestid.Get(c)))
	}
}

func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type", "X-User-ID", "X-User-Name", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}
}

// validID answers 404 for an :id that is not a UUID; every row key is one.
func validID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" {
			if _, err := uuid.Parse(id); err != nil {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
		}
		c.Next()
	}
}

func (a *App) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK
	if a.Store != nil {
		if err := a.Store.Ping(c.Request.Context()); err != nil {
			a.logger().Warn("health check ping failed", zap.Error(err))
			status = gin.H{"status": "degraded", "database": "unreachable"}
			code = http.StatusServiceUnavailable
		}
	}
	if a.Reconciler != nil {
		status["candidates"] = a.Reconciler.Snapshot().Len()
	}
	c.JSON(code, status)
}
