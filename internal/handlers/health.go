package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"grumblr/internal/store"
)

type HealthHandler struct {
	store *store.Store
	log   zerolog.Logger
}

func NewHealthHandler(st *store.Store, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{store: st, log: log}
}

// Check reports whether the database answers
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
