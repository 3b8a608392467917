package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"grumblr/internal/feed"
	"grumblr/internal/middleware"
	"grumblr/internal/store"
	"grumblr/internal/validation"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError renders the error page
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Title": http.StatusText(code), "Error": message})
}

// abortJSON writes the API error shape
func abortJSON(c *gin.Context, code int, message string, fields map[string]string) {
	body := gin.H{"error": message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(code, body)
}

// apiError maps domain errors onto status codes for the JSON API
func apiError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, feed.ErrLoginRequired):
		abortJSON(c, http.StatusUnauthorized, "login required", nil)
	case errors.Is(err, store.ErrNotFound):
		abortJSON(c, http.StatusNotFound, "not found", nil)
	case validation.IsValidation(err):
		abortJSON(c, http.StatusBadRequest, "invalid input", validation.Fields(err))
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		abortJSON(c, http.StatusInternalServerError, "internal error", nil)
	}
}

// safeNext only allows redirects to local paths
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}
