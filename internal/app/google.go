package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	stateTTL      = 10 * time.Minute
	stateAudience = "oauth-state"
)

// stateKey derives the signing key for consent state from StateSecret, so a
// state token never verifies as a session token even when both come from
// the same secret.
func (a *App) stateKey() []byte {
	mac := hmac.New(sha256.New, a.StateSecret)
	mac.Write([]byte(stateAudience))
	return mac.Sum(nil)
}

// signState binds the consent redirect to the user who started it.
func (a *App) signState(userID string, now time.Time) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}).SignedString(a.stateKey())
}

func (a *App) parseState(state string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return a.stateKey(), nil
	}, jwt.WithAudience(stateAudience))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("state has no user")
	}
	return claims.Subject, nil
}

func (a *App) googleReady(c *gin.Context) bool {
	if a.Google == nil || a.Google.OAuthConfig().ClientID == "" || len(a.StateSecret) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google is not configured"})
		return false
	}
	return true
}

// GET /google/auth
// Starts the consent flow for the calling user.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if !a.googleReady(c) {
		return
	}
	me := actorFrom(c)
	if me.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no user on this token"})
		return
	}
	state, err := a.signState(me.ID, time.Now())
	if err != nil {
		a.fail(c, err)
		return
	}
	url := a.Google.OAuthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{
		"auth_url": url,
		"state":    state,
	})
}

// GET /oauth2callback
// Exchanges the code and keeps the refresh token for the user named in state.
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if !a.googleReady(c) {
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code required"})
		return
	}
	userID, err := a.parseState(c.Query("state"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired state"})
		return
	}

	token, err := a.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		a.logger().Warn("google code exchange failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to exchange code for token"})
		return
	}
	if token.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Google did not return a refresh token; revoke access and connect again"})
		return
	}
	if err := a.Prefs.SaveRefreshToken(c.Request.Context(), userID, token.RefreshToken); err != nil {
		a.fail(c, err)
		return
	}
	a.logger().Info("google account connected", zap.String("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful"})
}

// GET /calendar/events?calendar_id=&time_min=&time_max=
func (a *App) GetGoogleCalendarEvents(c *gin.Context) {
	var from, to time.Time
	if s := c.Query("time_min"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_min"})
			return
		}
		from = t
	}
	if s := c.Query("time_max"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid time_max"})
			return
		}
		to = t
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_min must be before time_max"})
		return
	}

	events, err := a.Calendar.List(c.Request.Context(), actorFrom(c).ID, c.DefaultQuery("calendar_id", "primary"), from, to)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GET /calendar/calendars
func (a *App) GetGoogleCalendarList(c *gin.Context) {
	calendars, err := a.Calendar.Calendars(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"calendars": calendars,
		"count":     len(calendars),
	})
}
