package handlers

import (
	"net/http"
	"strconv"
	"time"

	"pm-bot/backend/internal/models"
	"pm-bot/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// TaskResponse is the public task representation.
type TaskResponse struct {
	ID          uint       `json:"id"`
	ProjectID   uint       `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	AssigneeID  *uint      `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"`
	IsOverdue   bool       `json:"is_overdue"`
}

func NewTaskResponse(task *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		AssigneeID:  task.AssigneeID,
		Status:      task.Status,
		Priority:    task.Priority,
		IsOverdue:   task.IsOverdue,
	}
	if task.DueAt != nil {
		due := task.DueAt.UTC()
		resp.DueAt = &due
	}
	return resp
}

type createTaskRequest struct {
	ProjectID   uint              `json:"project_id" binding:"required"`
	Title       string            `json:"title" binding:"required"`
	Description *string           `json:"description"`
	AssigneeID  *uint             `json:"assignee_id"`
	DueAt       *models.Timestamp `json:"due_at"`
	Priority    *int              `json:"priority"`
}

func (r createTaskRequest) toCreate() services.TaskCreate {
	input := services.TaskCreate{
		ProjectID:   r.ProjectID,
		Title:       r.Title,
		Description: r.Description,
		AssigneeID:  r.AssigneeID,
		Priority:    r.Priority,
	}
	if r.DueAt != nil {
		input.DueAt = r.DueAt.InUTC()
	}
	return input
}

// updateTaskRequest keeps absent and null apart so PATCH can clear
// nullable columns.
type updateTaskRequest struct {
	Title       models.Optional[string]           `json:"title"`
	Description models.Optional[string]           `json:"description"`
	AssigneeID  models.Optional[uint]             `json:"assignee_id"`
	DueAt       models.Optional[models.Timestamp] `json:"due_at"`
	Status      models.Optional[string]           `json:"status"`
	Priority    models.Optional[int]              `json:"priority"`
}

func (r updateTaskRequest) toUpdate() services.TaskUpdate {
	update := services.TaskUpdate{
		Title:       r.Title,
		Description: r.Description,
		AssigneeID:  r.AssigneeID,
		Status:      r.Status,
		Priority:    r.Priority,
	}
	if r.DueAt.Set {
		update.DueAt = models.Null[time.Time]()
		if r.DueAt.Value != nil {
			update.DueAt = models.Some(*r.DueAt.Value.InUTC())
		}
	}
	return update
}

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), req.toCreate())
	if err != nil {
		respondError(c, "task", err)
		return
	}
	c.JSON(http.StatusCreated, NewTaskResponse(task))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, NewTaskResponse(task))
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	var filter services.TaskFilter

	if raw := c.Query("project_id"); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		id := uint(projectID)
		filter.ProjectID = &id
	}
	if status := c.Query("status"); status != "" {
		if !models.ValidStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status", "field": "status"})
			return
		}
		filter.Status = &status
	}

	tasks, err := h.tasks.ListTasks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "task", err)
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, NewTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	task, err := h.tasks.UpdateTask(c.Request.Context(), id, req.toUpdate())
	if err != nil {
		respondError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, NewTaskResponse(task))
}
