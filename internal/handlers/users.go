package handlers

import (
	"net/http"

	"pm-bot/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type createUserRequest struct {
	Name        string  `json:"name" binding:"required"`
	ExternalRef *string `json:"external_ref"`
}

type UserHandler struct {
	users services.UserService
}

func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), services.UserCreate{
		Name:        req.Name,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		respondError(c, "user", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, users)
}
