package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"pm-bot/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP statuses. what names the
// request kind in the 500 body, e.g. "task".
func respondError(c *gin.Context, what string, err error) {
	var ve *services.ValidationError
	var nf *services.NotFoundError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"field":   ve.Field,
			"details": ve.Message,
		})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to process " + what + " request",
		})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request",
		"details": err.Error(),
	})
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
