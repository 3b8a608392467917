package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"grumblr/internal/models"
	"grumblr/internal/store"
)

const CheckUserKey = "user"

// SessionUserKey is the session field holding the logged-in user's id
const SessionUserKey = "user_id"

// AuthRequired redirects anonymous visitors to the login page
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/auth/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIAuthRequired answers 401 JSON for anonymous API calls
func APIAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

// LoadUser retrieves user from session and sets to context.
// Sessions pointing at unknown or inactive users are cleared.
func LoadUser(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(SessionUserKey).(uint)

		if ok {
			user, err := st.UserByID(c.Request.Context(), userID)
			if err == nil && user.IsActive {
				c.Set(CheckUserKey, user)
			} else {
				session.Delete(SessionUserKey)
				_ = session.Save()
			}
		}
		c.Next()
	}
}

// CurrentUser returns the logged-in user or nil
func CurrentUser(c *gin.Context) *models.User {
	v, exists := c.Get(CheckUserKey)
	if !exists {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
