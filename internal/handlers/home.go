package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Home describes the API for anyone who opens the root URL.
func Home(appName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"app":    appName,
			"health": "/health",
			"tip":    "Use POST /tasks to create tasks; GET /tasks to list.",
		})
	}
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
