package handlers

import (
	"net/http"

	"pm-bot/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type createProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

type ProjectHandler struct {
	projects services.ProjectService
	progress services.ProgressService
}

func NewProjectHandler(projects services.ProjectService, progress services.ProgressService) *ProjectHandler {
	return &ProjectHandler{projects: projects, progress: progress}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), services.ProjectCreate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, "project", err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.projects.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, "project", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProgress reports completion for a project. Unknown projects read as
// zero progress rather than 404.
func (h *ProjectHandler) GetProgress(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	progress, err := h.progress.ProjectProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, "progress", err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
