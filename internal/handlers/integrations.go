package handlers

import (
	"errors"
	"net/http"

	"pm-bot/backend/internal/integrations"

	"github.com/gin-gonic/gin"
)

type IntegrationHandler struct {
	issues integrations.IssueTracker
	pulls  integrations.PullRequestSource
}

func NewIntegrationHandler(issues integrations.IssueTracker, pulls integrations.PullRequestSource) *IntegrationHandler {
	return &IntegrationHandler{issues: issues, pulls: pulls}
}

func (h *IntegrationHandler) IssueCounts(c *gin.Context) {
	key := c.Param("key")
	counts, err := h.issues.IssueCounts(c.Request.Context(), key)
	if err != nil {
		upstreamError(c, "issue tracker", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": key, "counts": counts})
}

func (h *IntegrationHandler) PullRequestAges(c *gin.Context) {
	owner, repo := c.Param("owner"), c.Param("repo")
	ages, err := h.pulls.PullRequestAges(c.Request.Context(), owner, repo)
	if err != nil {
		upstreamError(c, "pull request source", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"repo": owner + "/" + repo, "ages": ages})
}

func upstreamError(c *gin.Context, source string, err error) {
	_ = c.Error(err)
	status := http.StatusBadGateway
	if errors.Is(err, integrations.ErrBreakerOpen) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": source + " unavailable", "details": err.Error()})
}
