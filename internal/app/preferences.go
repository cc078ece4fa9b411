package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruitflow/internal/preferences"
)

// GET /preferences
// Falls back to defaults when nothing is stored or the store is down.
func (a *App) GetPreferencesHandler(c *gin.Context) {
	p, err := a.Prefs.Get(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		a.logger().Warn("preferences unavailable, serving defaults", zap.Error(err))
	}
	c.JSON(http.StatusOK, p)
}

// PUT /preferences
func (a *App) PutPreferencesHandler(c *gin.Context) {
	me := actorFrom(c)
	if me.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no user on this token"})
		return
	}
	p := preferences.Defaults()
	if err := c.ShouldBindJSON(&p); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := p.Validate(); err != nil {
		a.badRequest(c, err)
		return
	}
	if err := a.Prefs.Put(c.Request.Context(), me.ID, p); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
